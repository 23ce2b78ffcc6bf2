package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	authapp "github.com/postrack/backend/internal/application/auth"
	infraauth "github.com/postrack/backend/internal/infrastructure/auth"
	"github.com/postrack/backend/internal/infrastructure/config"
	"github.com/postrack/backend/internal/interfaces/http/dto"
	"github.com/postrack/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOperatorUsername = "ops-officer"
	testOperatorPassword = "pos-ops-secret-1"
)

// fakeBlacklist records revoked token ids
type fakeBlacklist struct {
	revokedJTIs []string
}

func (b *fakeBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	b.revokedJTIs = append(b.revokedJTIs, jti)
	return nil
}

func (b *fakeBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

func setupAuthTestHandler(t *testing.T) (*AuthHandler, *infraauth.JWTService, *fakeBlacklist) {
	gin.SetMode(gin.TestMode)

	hash, err := infraauth.HashPassword(testOperatorPassword)
	require.NoError(t, err)

	jwtService := infraauth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-for-handlers",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "postrack-test",
		MaxRefreshCount:        10,
	})
	blacklist := &fakeBlacklist{}
	service := authapp.NewAuthService(testOperatorUsername, hash, jwtService, blacklist, zap.NewNop())

	return NewAuthHandler(service), jwtService, blacklist
}

// Tests

func TestAuthHandler_Login_Success(t *testing.T) {
	handler, jwtService, _ := setupAuthTestHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/auth/login", map[string]string{
		"username": testOperatorUsername,
		"password": testOperatorPassword,
	})

	handler.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, testOperatorUsername, data["username"])

	token := data["token"].(map[string]any)
	assert.Equal(t, "Bearer", token["token_type"])
	assert.NotEmpty(t, token["refresh_token"])

	// The issued access token must validate against the same service
	claims, err := jwtService.ValidateAccessToken(token["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, testOperatorUsername, claims.Username)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", testOperatorUsername, "wrong-password-1"},
		{"unknown username", "intruder-007", testOperatorPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := setupAuthTestHandler(t)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			postJSON(c, "/auth/login", map[string]string{
				"username": tt.username,
				"password": tt.password,
			})

			handler.Login(c)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, dto.CodeInvalidCredentials, resp.Error.Code)
		})
	}
}

func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	handler, _, _ := setupAuthTestHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/auth/login", map[string]string{"username": testOperatorUsername})

	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.CodeBadRequest, resp.Error.Code)
}

func TestAuthHandler_RefreshToken_Success(t *testing.T) {
	handler, jwtService, _ := setupAuthTestHandler(t)
	pair, err := jwtService.GenerateTokenPair(testOperatorUsername)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken})

	handler.RefreshToken(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	token := data["token"].(map[string]any)

	claims, err := jwtService.ValidateAccessToken(token["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, testOperatorUsername, claims.Username)
}

func TestAuthHandler_RefreshToken_Invalid(t *testing.T) {
	handler, _, _ := setupAuthTestHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/auth/refresh", map[string]string{"refresh_token": "not.a.token"})

	handler.RefreshToken(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.CodeTokenInvalid, resp.Error.Code)
}

func TestAuthHandler_RefreshToken_RejectsAccessToken(t *testing.T) {
	handler, jwtService, _ := setupAuthTestHandler(t)
	pair, err := jwtService.GenerateTokenPair(testOperatorUsername)
	require.NoError(t, err)

	// An access token must not pass as a refresh token
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/auth/refresh", map[string]string{"refresh_token": pair.AccessToken})

	handler.RefreshToken(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.CodeTokenInvalid, resp.Error.Code)
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	handler, jwtService, blacklist := setupAuthTestHandler(t)
	pair, err := jwtService.GenerateTokenPair(testOperatorUsername)
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	c.Set(middleware.JWTClaimsKey, claims)

	handler.Logout(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "Logged out successfully", data["message"])

	// The token id is revoked for its remaining lifetime
	require.Len(t, blacklist.revokedJTIs, 1)
	assert.Equal(t, claims.ID, blacklist.revokedJTIs[0])
}

func TestAuthHandler_Logout_NoClaims(t *testing.T) {
	handler, _, blacklist := setupAuthTestHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)

	handler.Logout(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, blacklist.revokedJTIs)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Authentication required", resp.Error.Message)
}
