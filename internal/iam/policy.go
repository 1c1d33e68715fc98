package iam

import "fmt"

// Policy encodes the authorization rules for account administration. It is
// pure decision logic: no storage access, deny unless explicitly allowed.
//
// Check ordering matters. The self-deletion rule is evaluated before the
// super_admin requirement, and the escalation rule before the generic admin
// requirement, so the most specific denial wins.
type Policy struct{}

// CanListUsers allows admins and super admins to enumerate accounts.
func (Policy) CanListUsers(actor Actor) error {
	if !actor.Roles.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// CanUpdateUser gates non-role field updates on any account.
func (Policy) CanUpdateUser(actor Actor) error {
	if !actor.Roles.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// CanAssignRoles gates replacement of a target's membership set. Granting
// super_admin requires the actor to already hold super_admin; holding admin
// is not enough.
func (Policy) CanAssignRoles(actor Actor, roles []string) error {
	for _, role := range roles {
		if role == RoleSuperAdmin && !actor.Roles.IsSuperAdmin() {
			return fmt.Errorf("%w: only super admins can assign the super_admin role", ErrForbidden)
		}
	}
	if !actor.Roles.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// CanDeleteUser gates hard deletion. Self-deletion is always denied, for any
// role; otherwise the actor must hold super_admin.
func (Policy) CanDeleteUser(actor Actor, targetID string) error {
	if actor.ID == targetID {
		return ErrSelfDeletion
	}
	if !actor.Roles.IsSuperAdmin() {
		return fmt.Errorf("%w: super_admin role required", ErrForbidden)
	}
	return nil
}

// CanRegister gates unauthenticated account creation.
func (Policy) CanRegister(registrationEnabled bool) error {
	if !registrationEnabled {
		return ErrRegistrationDisabled
	}
	return nil
}
