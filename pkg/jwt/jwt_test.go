package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func TestNewService(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, time.Hour, service.accessTokenExpiry)
}

func TestGenerateAccessToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	token, err := service.GenerateAccessToken(42, "asha@example.com", "passenger")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Validate the generated token
	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, "passenger", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateAccessToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	t.Run("Invalid Token String", func(t *testing.T) {
		claims, err := service.ValidateAccessToken("not-a-token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewService("a-different-secret", time.Hour)
		token, err := other.GenerateAccessToken(42, "asha@example.com", "passenger")
		require.NoError(t, err)

		claims, err := service.ValidateAccessToken(token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("Expired Token", func(t *testing.T) {
		expired := NewService(testSecret, -time.Minute)
		token, err := expired.GenerateAccessToken(42, "asha@example.com", "passenger")
		require.NoError(t, err)

		claims, err := service.ValidateAccessToken(token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("Wrong Signing Method", func(t *testing.T) {
		// Token signed with none algorithm must be rejected
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42})
		tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		claims, err := service.ValidateAccessToken(tokenString)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}
