package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	user, err := CreateUser("Jordan", "jordan@acme.test", "s3cret-pw")
	require.NoError(t, err)

	assert.Equal(t, ROLE_USER, user.Role)
	assert.Equal(t, STATUS_ACTIVE, user.Status)
	assert.NotEqual(t, "s3cret-pw", user.Password, "password must be stored hashed")
	assert.True(t, CheckPasswordHash("s3cret-pw", user.Password))
	assert.False(t, CheckPasswordHash("wrong-pw", user.Password))
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short name", "Jo", "jordan@acme.test", "s3cret-pw"},
		{"invalid email", "Jordan", "not-an-email", "s3cret-pw"},
		{"empty email", "Jordan", "", "s3cret-pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateUser(tt.username, tt.email, tt.password)
			assert.Error(t, err)
		})
	}
}
