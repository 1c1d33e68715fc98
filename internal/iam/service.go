package iam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"idfort.org/internal/ids"
)

// BootstrapAccount carries configuration-supplied credentials for a seeded
// account.
type BootstrapAccount struct {
	Email    string
	Username string
	Password string
}

// Service orchestrates registration, bootstrap seeding, profile updates and
// deletion across the credential store and role registry, applying the
// authorization policy before touching storage.
type Service struct {
	store  Store
	policy Policy
	hasher Hasher
	log    zerolog.Logger
	now    func() time.Time

	registrationEnabled bool
	usernameEnabled     bool
	usernameRequired    bool
}

// Option configures Service behavior.
type Option func(*Service)

// WithRegistration toggles self-service registration.
func WithRegistration(enabled bool) Option {
	return func(s *Service) { s.registrationEnabled = enabled }
}

// WithUsernamePolicy controls whether usernames are collected and whether
// registration demands one. When usernames are disabled or omitted, the email
// address doubles as the username.
func WithUsernamePolicy(enabled, required bool) Option {
	return func(s *Service) {
		s.usernameEnabled = enabled
		s.usernameRequired = enabled && required
	}
}

// WithHasher overrides the password hasher.
func WithHasher(h Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the account lifecycle service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("iam: store is required")
	}
	svc := &Service{
		store:            store,
		log:              zerolog.Nop(),
		now:              time.Now,
		usernameEnabled:  true,
		usernameRequired: true,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegistrationEnabled reports whether self-service registration is open.
func (s *Service) RegistrationEnabled() bool { return s.registrationEnabled }

var defaultRoles = []Role{
	{Name: RoleAdmin, Description: "Administrator"},
	{Name: RoleSuperAdmin, Description: "Super Administrator"},
	{Name: RoleUser, Description: "Regular User"},
}

// Bootstrap idempotently seeds the three default roles plus the admin and
// super admin accounts. Safe to run on every startup; re-running against
// already seeded data is a no-op, not an error.
func (s *Service) Bootstrap(ctx context.Context, admin, superAdmin BootstrapAccount) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		for _, role := range defaultRoles {
			if _, err := tx.Roles().Ensure(ctx, role.Name, role.Description); err != nil {
				return fmt.Errorf("ensure role %s: %w", role.Name, err)
			}
		}
		if err := s.seedAccount(ctx, tx, admin, RoleAdmin); err != nil {
			return err
		}
		return s.seedAccount(ctx, tx, superAdmin, RoleSuperAdmin)
	})
}

func (s *Service) seedAccount(ctx context.Context, tx Store, account BootstrapAccount, roleName string) error {
	email := normalizeEmail(account.Email)
	if email == "" || account.Password == "" {
		s.log.Warn().Str("role", roleName).Msg("bootstrap account not configured, skipping")
		return nil
	}
	if _, err := tx.Users().FindByEmail(ctx, email); err == nil {
		return nil
	} else if !isNotFound(err) {
		return err
	}

	username := strings.TrimSpace(account.Username)
	if username == "" || !s.usernameEnabled {
		username = email
	}
	digest, err := s.hasher.Hash(account.Password)
	if err != nil {
		return fmt.Errorf("hash %s password: %w", roleName, err)
	}
	user := &User{
		ID:             ids.New(),
		Username:       username,
		Email:          email,
		PasswordDigest: digest,
		Active:         true,
		CreatedAt:      s.now().UTC(),
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		return fmt.Errorf("seed %s account: %w", roleName, err)
	}
	if err := tx.Roles().AddRole(ctx, user.ID, roleName); err != nil {
		return fmt.Errorf("grant %s role: %w", roleName, err)
	}
	s.log.Info().Str("role", roleName).Str("username", username).Msg("bootstrap account created")
	return nil
}

// Register creates a self-service account holding exactly the user role. The
// user record and the role grant commit in one transaction.
func (s *Service) Register(ctx context.Context, username, email, password string) (Profile, error) {
	if err := s.policy.CanRegister(s.registrationEnabled); err != nil {
		return Profile{}, err
	}

	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return Profile{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if password == "" {
		return Profile{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		if s.usernameRequired {
			return Profile{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		username = email
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return Profile{}, err
	}
	user := &User{
		ID:             ids.New(),
		Username:       username,
		Email:          email,
		PasswordDigest: digest,
		Active:         true,
		CreatedAt:      s.now().UTC(),
	}
	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Roles().AddRole(ctx, user.ID, RoleUser)
	})
	if err != nil {
		return Profile{}, err
	}
	return NewProfile(*user, []string{RoleUser}), nil
}

// Authenticate verifies credentials. Unknown username, inactive account and
// wrong password all collapse into ErrUnauthenticated so the response never
// reveals which part was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, RoleSet, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, ErrUnauthenticated
	}
	user, err := s.store.Users().FindByUsername(ctx, username)
	if isNotFound(err) && strings.Contains(username, "@") {
		user, err = s.store.Users().FindByEmail(ctx, username)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, ErrUnauthenticated
	}
	if err := s.hasher.Verify(user.PasswordDigest, password); err != nil {
		return nil, nil, ErrUnauthenticated
	}
	roles, err := s.store.Roles().RolesOf(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, NewRoleSet(roles...), nil
}

// Identity resolves a user id from an established session back into a live
// identity. Deleted or deactivated accounts fail with ErrUnauthenticated.
func (s *Service) Identity(ctx context.Context, userID string) (*User, RoleSet, error) {
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, ErrUnauthenticated
	}
	roles, err := s.store.Roles().RolesOf(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, NewRoleSet(roles...), nil
}

// ListUsers returns every account with its roles. Admin or super_admin only.
func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]Profile, error) {
	if err := s.policy.CanListUsers(actor); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(users))
	for _, user := range users {
		roles, err := s.store.Roles().RolesOf(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, NewProfile(*user, roles))
	}
	return profiles, nil
}

// UpdateUser applies a partial update to the target account. Policy runs
// before any storage access; field changes and role replacement commit in one
// transaction.
func (s *Service) UpdateUser(ctx context.Context, actor Actor, targetID string, patch UserPatch) (Profile, error) {
	if patch.Roles != nil {
		if err := s.policy.CanAssignRoles(actor, patch.Roles); err != nil {
			return Profile{}, err
		}
	} else if err := s.policy.CanUpdateUser(actor); err != nil {
		return Profile{}, err
	}

	upd := UserUpdate{Username: patch.Username, Email: patch.Email, Active: patch.Active}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" || !strings.Contains(email, "@") {
			return Profile{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return Profile{}, fmt.Errorf("%w: username must not be empty", ErrInvalidInput)
		}
		upd.Username = &username
	}

	var profile Profile
	err := s.store.WithTx(ctx, func(tx Store) error {
		user, err := tx.Users().Update(ctx, targetID, upd)
		if err != nil {
			return err
		}
		if patch.Roles != nil {
			if err := tx.Roles().SetRoles(ctx, targetID, patch.Roles); err != nil {
				return err
			}
		}
		roles, err := tx.Roles().RolesOf(ctx, targetID)
		if err != nil {
			return err
		}
		profile = NewProfile(*user, roles)
		return nil
	})
	if err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// DeleteUser hard-deletes the target account; membership edges cascade in the
// store. Self-deletion is always denied before any lookup happens.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, targetID string) error {
	if err := s.policy.CanDeleteUser(actor, targetID); err != nil {
		return err
	}
	return s.store.Users().Delete(ctx, targetID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
