package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser(" alice ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "correct-horse", user.Password)
	assert.Zero(t, user.ID, "ID is assigned by the store")
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr error
	}{
		{"plaintext password", User{Username: "bob", Password: "password1"}, nil},
		{"hashed password only", User{Username: "bob", HashedPassword: "$2a$10$hash"}, nil},
		{"empty username", User{Password: "password1"}, ErrEmptyUsername},
		{"short username", User{Username: "ab", Password: "password1"}, ErrInvalidUsername},
		{"username with spaces", User{Username: "a b c", Password: "password1"}, ErrInvalidUsername},
		{"short password", User{Username: "bob", Password: "short"}, ErrPasswordTooShort},
		{"long password", User{Username: "bob", Password: strings.Repeat("p", MaxPasswordLength+1)}, ErrPasswordTooLong},
		{"no password at all", User{Username: "bob"}, ErrEmptyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
