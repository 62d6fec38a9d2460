package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// secretLength is the number of random bytes in a generated secret.
const secretLength = 32

// LoadOrCreatePepper reads the pepper stored at path, generating and persisting
// a new one (mode 0600) when the file does not exist yet.
func LoadOrCreatePepper(path string) (string, error) {
	return loadOrCreateSecret(path, "pepper")
}

// LoadOrCreateSigningKey does the same for the session token signing key.
func LoadOrCreateSigningKey(path string) ([]byte, error) {
	key, err := loadOrCreateSecret(path, "signing key")
	if err != nil {
		return nil, err
	}
	return []byte(key), nil
}

func loadOrCreateSecret(path, what string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("cryptox: %s path is empty", what)
	}
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("cryptox: %s file %s is empty", what, path)
		}
		return secret, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("cryptox: read %s: %w", what, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create %s dir: %w", what, err)
	}

	buf := make([]byte, secretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate %s: %w", what, err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		return "", fmt.Errorf("cryptox: write %s: %w", what, err)
	}
	return secret, nil
}
