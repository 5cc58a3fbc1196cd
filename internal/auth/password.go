package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// UnusablePassword marks accounts that can only sign in through OAuth.
const UnusablePassword = "!"

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	if hash == "" || hash == UnusablePassword {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
