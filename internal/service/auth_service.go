package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-contact/internal/auth"
	"github.com/spec-kit/portfolio-contact/internal/config"
	apperrors "github.com/spec-kit/portfolio-contact/pkg/util/errorutil"
)

// AuthService authenticates the site owner for the admin API.
type AuthService struct {
	adminEmail string
	adminHash  string
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		adminEmail: strings.ToLower(strings.TrimSpace(cfg.Auth.AdminEmail)),
		adminHash:  cfg.Auth.AdminPasswordHash,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.App.Name),
		logger:     logger,
	}
}

// Login verifies admin credentials and issues an access token.
func (s *AuthService) Login(_ context.Context, email, password string) (string, time.Time, error) {
	if s.adminEmail == "" || s.adminHash == "" {
		return "", time.Time{}, apperrors.NewUnauthorized("admin login is not configured")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	emailMatches := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1

	if !emailMatches || auth.ComparePassword(s.adminHash, password) != nil {
		s.logger.Warn("admin login failed", zap.String("email", email))
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(s.adminEmail, auth.RoleAdmin)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
