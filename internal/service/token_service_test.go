package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/semester-scheduler/internal/models"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "campus-id"})

	token, err := svc.Issue(models.UserInfo{ID: "user-1", Email: "ops@example.edu", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.Issue(models.UserInfo{ID: "user-1", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.ValidateToken(token)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsForeignIssuerAndAlgorithm(t *testing.T) {
	issuer := NewTokenService(TokenConfig{Secret: "secret", Issuer: "someone-else"})
	token, err := issuer.Issue(models.UserInfo{ID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "secret", Issuer: "campus-id"}).ValidateToken(token)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenService(TokenConfig{Secret: "secret"}).ValidateToken(unsigned)
	assert.Error(t, err)
}
