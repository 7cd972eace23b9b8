package bridge

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// PlaceholderCost is the bcrypt cost used for unusable credentials.
var PlaceholderCost = placeholderCost()

// RandomPasswordHash hashes a random secret nobody knows. Records synced
// from a remote identity get one so code paths expecting a stored
// credential keep working without ever accepting a password.
func RandomPasswordHash() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}

	h, err := bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(secret)), PlaceholderCost)
	if err != nil {
		return "", err
	}

	return string(h), nil
}
