package iam

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher derives and verifies password digests. An optional pepper is mixed
// into the password with HMAC-SHA256 before bcrypt, so digests are only
// verifiable by processes that hold the same secret.
type Hasher struct {
	pepper []byte
}

// NewHasher builds a Hasher. An empty pepper disables the HMAC step.
func NewHasher(pepper string) Hasher {
	if pepper == "" {
		return Hasher{}
	}
	return Hasher{pepper: []byte(pepper)}
}

// Hash returns a bcrypt digest of the plaintext password.
func (h Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	digest, err := bcrypt.GenerateFromPassword(h.material(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify compares the plaintext password against a stored digest. The bcrypt
// comparison is constant-time.
func (h Hasher) Verify(digest, password string) error {
	if digest == "" {
		return errors.New("password digest is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), h.material(password))
}

// material keeps peppered input under bcrypt's 72-byte limit by encoding the
// HMAC output.
func (h Hasher) material(password string) []byte {
	if len(h.pepper) == 0 {
		return []byte(password)
	}
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	return []byte(base64.RawStdEncoding.EncodeToString(mac.Sum(nil)))
}
