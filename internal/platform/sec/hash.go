// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/jetstream/internal/platform/constants"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by [HashPassword] for inputs over [MaxPasswordBytes].
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// dummyHash is compared against when no stored hash exists, so a login for an
// unknown email spends the same bcrypt work as one with a wrong password.
var dummyHash = mustHash("jetstream-dummy-password")

// HashPassword hashes a plain-text password using bcrypt at [constants.BcryptCost].
func HashPassword(plainTextPassword string) (string, error) {
	if len(plainTextPassword) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), constants.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
//
// The comparison is constant-time with respect to the stored hash. An empty
// hash (provider-only account) never matches.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	if existingHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plainTextPassword))
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// mustHash is used only for package-level initialization.
func mustHash(plain string) []byte {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), constants.BcryptCost)
	if err != nil {
		panic("sec: failed to initialize dummy hash: " + err.Error())
	}
	return hashed
}
