// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/jetstream/internal/platform/constants"
	"github.com/taibuivan/jetstream/internal/platform/sec"
)

/*
TestHashPassword_Cost verifies the adaptive cost and that the hash is salted.
*/
func TestHashPassword_Cost(t *testing.T) {
	first, err := sec.HashPassword("password1")
	require.NoError(t, err)
	second, err := sec.HashPassword("password1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	cost, err := bcrypt.Cost([]byte(first))
	require.NoError(t, err)
	assert.Equal(t, constants.BcryptCost, cost)
}

/*
TestCheckPasswordHash covers matching, mismatching and provider-only accounts.
*/
func TestCheckPasswordHash(t *testing.T) {
	hash, err := sec.HashPassword("password1")
	require.NoError(t, err)

	assert.True(t, sec.CheckPasswordHash("password1", hash))
	assert.False(t, sec.CheckPasswordHash("password2", hash))
	assert.False(t, sec.CheckPasswordHash("password1", ""))
	assert.False(t, sec.CheckPasswordHash("password1", "not-a-bcrypt-hash"))
}

/*
TestHashPassword_TooLong refuses input bcrypt would reject.
*/
func TestHashPassword_TooLong(t *testing.T) {
	_, err := sec.HashPassword(strings.Repeat("p", sec.MaxPasswordBytes+1))
	require.ErrorIs(t, err, sec.ErrPasswordTooLong)

	_, err = sec.HashPassword(strings.Repeat("p", sec.MaxPasswordBytes))
	assert.NoError(t, err)
}
