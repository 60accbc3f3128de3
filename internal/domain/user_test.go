package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantMsg string
		field   string
	}{
		{name: "valid", user: User{Name: "João Silva", Email: "joao@example.com"}},
		{name: "valid minimal email", user: User{Name: "A", Email: "@"}},
		{name: "empty name", user: User{Email: "joao@example.com"}, wantMsg: "Name is required", field: "name"},
		{name: "empty email", user: User{Name: "João Silva"}, wantMsg: "Email is required", field: "email"},
		{name: "email without at sign", user: User{Name: "João Silva", Email: "joao.example.com"}, wantMsg: "Invalid email format", field: "email"},
		{name: "name checked before email", user: User{}, wantMsg: "Name is required", field: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tt.wantMsg, err.Error())

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestErrors_UnwrapToSentinels(t *testing.T) {
	dup := error(&DuplicateEmailError{Email: "joao@example.com"})
	assert.ErrorIs(t, dup, ErrDuplicateEmail)
	assert.Equal(t, "Email 'joao@example.com' already exists", dup.Error())

	missing := error(&UserNotFoundError{ID: 999})
	assert.ErrorIs(t, missing, ErrUserNotFound)
	assert.Equal(t, "User with id 999 not found", missing.Error())
}
