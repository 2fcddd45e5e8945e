package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrWeakPassphrase    = errors.New("passphrase must be at least 8 characters")
)

// HashPassphrase bcrypt-hashes a passphrase for storage in the config
// file.
func HashPassphrase(passphrase string) (string, error) {
	if len(passphrase) < 8 {
		return "", ErrWeakPassphrase
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassphrase checks a passphrase against the stored hash.
func VerifyPassphrase(hash, passphrase string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase)); err != nil {
		return ErrInvalidPassphrase
	}
	return nil
}
