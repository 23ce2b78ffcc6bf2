package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postrack/backend/internal/infrastructure/auth"
	"github.com/postrack/backend/internal/infrastructure/config"
	"github.com/postrack/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-for-middleware",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "postrack-test",
		MaxRefreshCount:        10,
	})
}

// stubBlacklist is a TokenBlacklist with a fixed answer
type stubBlacklist struct {
	revoked bool
	err     error
}

func (s *stubBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return nil
}

func (s *stubBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoked, s.err
}

func setupJWTRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	router.GET("/api/v1/terminals", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": GetJWTUsername(c)})
	})
	router.GET("/api/v1/auth/login", func(c *gin.Context) {
		c.String(http.StatusOK, "login")
	})
	router.GET("/swagger/index.html", func(c *gin.Context) {
		c.String(http.StatusOK, "swagger")
	})
	return router
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair("ops-officer")
	require.NoError(t, err)

	router := setupJWTRouter(DefaultJWTConfig(svc))

	req := httptest.NewRequest("GET", "/api/v1/terminals", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ops-officer", body["username"])
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	router := setupJWTRouter(DefaultJWTConfig(newTestJWTService()))

	req := httptest.NewRequest("GET", "/api/v1/terminals", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.CodeTokenInvalid, resp.Error.Code)
}

func TestJWTAuthMiddleware_MalformedHeader(t *testing.T) {
	router := setupJWTRouter(DefaultJWTConfig(newTestJWTService()))

	req := httptest.NewRequest("GET", "/api/v1/terminals", nil)
	req.Header.Set(AuthHeaderKey, "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_GarbageToken(t *testing.T) {
	router := setupJWTRouter(DefaultJWTConfig(newTestJWTService()))

	req := httptest.NewRequest("GET", "/api/v1/terminals", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+"not.a.token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.CodeTokenInvalid, resp.Error.Code)
}

func TestJWTAuthMiddleware_ExpiredToken(t *testing.T) {
	svc := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-for-middleware",
		AccessTokenExpiration:  -1 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "postrack-test",
	})
	pair, err := svc.GenerateTokenPair("ops-officer")
	require.NoError(t, err)

	router := setupJWTRouter(DefaultJWTConfig(svc))

	req := httptest.NewRequest("GET", "/api/v1/terminals", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.CodeTokenExpired, resp.Error.Code)
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := setupJWTRouter(DefaultJWTConfig(newTestJWTService()))

	req := httptest.NewRequest("GET", "/api/v1/auth/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_SkipPathPrefixes(t *testing.T) {
	router := setupJWTRouter(DefaultJWTConfig(newTestJWTService()))

	req := httptest.NewRequest("GET", "/swagger/index.html", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_RevokedToken(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair("ops-officer")
	require.NoError(t, err)

	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = &stubBlacklist{revoked: true}
	router := setupJWTRouter(cfg)

	req := httptest.NewRequest("GET", "/api/v1/terminals", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.CodeTokenRevoked, resp.Error.Code)
}

func TestJWTAuthMiddleware_BlacklistFailOpen(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair("ops-officer")
	require.NoError(t, err)

	// A broken blacklist lookup must not block authenticated requests
	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = &stubBlacklist{err: context.DeadlineExceeded}
	router := setupJWTRouter(cfg)

	req := httptest.NewRequest("GET", "/api/v1/terminals", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_OnErrorCallback(t *testing.T) {
	svc := newTestJWTService()

	var captured error
	cfg := DefaultJWTConfig(svc)
	cfg.OnError = func(c *gin.Context, err error) {
		captured = err
		c.AbortWithStatus(http.StatusTeapot)
	}
	router := setupJWTRouter(cfg)

	req := httptest.NewRequest("GET", "/api/v1/terminals", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, auth.ErrInvalidToken, captured)
}

func TestGetJWTClaims_NotSet(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUsername(c))
}
