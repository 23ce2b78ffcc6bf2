package auth

import (
	"context"

	"github.com/postrack/backend/internal/domain/shared"
	infraauth "github.com/postrack/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthService authenticates the configured back-office operator.
// The service runs with a single operator whose username and bcrypt
// password hash come from configuration; there is no user store.
type AuthService struct {
	username     string
	passwordHash string
	jwtService   *infraauth.JWTService
	blacklist    infraauth.TokenBlacklist
	logger       *zap.Logger
}

// NewAuthService creates a new authentication service.
// blacklist may be nil, in which case logout is a client-side concern.
func NewAuthService(
	username string,
	passwordHash string,
	jwtService *infraauth.JWTService,
	blacklist infraauth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		username:     username,
		passwordHash: passwordHash,
		jwtService:   jwtService,
		blacklist:    blacklist,
		logger:       logger,
	}
}

// Login authenticates the operator and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("username", input.Username))

	// Verify the password even on a username mismatch so both failure
	// paths cost the same
	passwordOK := infraauth.VerifyPassword(s.passwordHash, input.Password)
	if input.Username != s.username || !passwordOK {
		s.logger.Warn("Invalid credentials", zap.String("username", input.Username))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(s.username)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	s.logger.Info("Operator logged in", zap.String("username", s.username))

	return &LoginResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		Username:              s.username,
	}, nil
}

// RefreshToken refreshes the access token using a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	tokenPair, err := s.jwtService.RefreshTokenPair(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))

		switch err {
		case infraauth.ErrExpiredToken:
			return nil, shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
		case infraauth.ErrMaxRefreshExceeded:
			return nil, shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
		default:
			return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
		}
	}

	s.logger.Info("Token refreshed", zap.String("username", s.username))

	return &RefreshTokenResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
	}, nil
}

// Logout revokes the presented access token for its remaining lifetime.
// Without a blacklist backend, logout is handled client-side by
// discarding the tokens.
func (s *AuthService) Logout(ctx context.Context, claims *infraauth.Claims) error {
	if s.blacklist == nil || claims == nil {
		return nil
	}

	ttl := claims.GetRemainingTTL()
	if ttl <= 0 {
		return nil
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("Failed to revoke token on logout", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to revoke token")
	}

	s.logger.Info("Operator logged out", zap.String("username", claims.Username))
	return nil
}
