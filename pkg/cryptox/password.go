package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for newly created hashes. Verification always uses the
// parameters encoded in the stored hash.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	// ErrPasswordMismatch is returned when a password does not match a hash.
	ErrPasswordMismatch = errors.New("cryptox: password does not match")

	// ErrInvalidHash is returned for hashes that are not argon2id PHC strings.
	ErrInvalidHash = errors.New("cryptox: invalid password hash format")
)

// PasswordHasher hashes and verifies passwords with Argon2id. The pepper is a
// server-held secret mixed into every hash; it is loaded once at start and
// never changes for the life of the hasher.
type PasswordHasher struct {
	Pepper string
}

// NewPasswordHasher returns a hasher using the given pepper.
func NewPasswordHasher(pepper string) *PasswordHasher {
	return &PasswordHasher{Pepper: pepper}
}

// Hash generates a PHC-format Argon2id hash string including salt and parameters.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password+h.Pepper), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares a plaintext password against a PHC-style Argon2id hash in
// constant time. It returns ErrPasswordMismatch or ErrInvalidHash on failure.
func (h *PasswordHasher) Verify(password, encodedHash string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if mem == 0 || iters == 0 || par == 0 {
		return fmt.Errorf("%w: zero parameter", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: key", ErrInvalidHash)
	}

	computed := argon2.IDKey(
		[]byte(password+h.Pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - bounded by the decoded hash length
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// GeneratePassword returns a random password that satisfies the account
// password policy (it always contains a digit, a lower-case and an
// upper-case letter).
func GeneratePassword() (string, error) {
	const (
		lower  = "abcdefghijklmnopqrstuvwxyz"
		upper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		digits = "0123456789"
		length = 16
	)
	charset := lower + upper + digits

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, fmt.Errorf("cryptox: generate password: %w", err)
		}
		return set[n.Int64()], nil
	}

	password := make([]byte, length)
	for i := range password {
		set := charset
		switch i {
		case 0:
			set = lower
		case 1:
			set = upper
		case 2:
			set = digits
		}
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		password[i] = c
	}
	return string(password), nil
}
