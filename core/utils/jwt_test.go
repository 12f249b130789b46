package utils

import (
	"testing"

	"taskboard-api/core/config"
	"taskboard-api/core/constants"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestConfig(t *testing.T, secret string) {
	t.Helper()
	config.Set(&config.Config{
		JWT: config.JWTConfig{Secret: secret, ExpireHours: 1},
	})
}

func TestTokenRoundTrip(t *testing.T) {
	setTestConfig(t, "test-secret")

	userID := uuid.New()
	email := "alice@example.com"

	token, err := GenerateToken(userID, &email, nil, constants.ScopeTokenAccess)
	require.NoError(t, err)

	data, err := ValidateAndParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, data.UserID)
	assert.Equal(t, constants.ScopeTokenAccess, data.Scope)
	require.NotNil(t, data.Email)
	assert.Equal(t, email, *data.Email)
	assert.Nil(t, data.Username)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	setTestConfig(t, "secret-a")
	token, err := GenerateToken(uuid.New(), nil, nil, constants.ScopeTokenAccess)
	require.NoError(t, err)

	setTestConfig(t, "secret-b")
	_, err = ValidateAndParseToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	setTestConfig(t, "test-secret")

	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := ValidateAndParseToken(token)
		assert.Error(t, err, "token %q should not validate", token)
	}
}
