package utils

import (
	"crypto/rand"
	"encoding/base32"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var refEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// HashPassword rejects passwords bcrypt would refuse. The limit is in bytes,
// so a short password of multi-byte runes can still exceed it.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	return string(bytes), err
}

func ComparePasswords(hashedPassword string, plainPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
}

// GenerateSecureToken returns length random bytes encoded as unpadded base32.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid token length")
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return refEncoding.EncodeToString(bytes), nil
}
