package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/rest"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/toast"
)

const tokenCacheKey = "chat_token"

// tokenSafetyMargin is shaved off a JWT-derived lifetime so a token is
// refreshed before the server stops accepting it.
const tokenSafetyMargin = 30 * time.Second

// TokenSource hands out short-lived chat access tokens, refreshing them
// from the REST layer on demand. Tokens are cached until shortly before
// expiry; opaque (non-JWT) tokens use the configured fallback lifetime.
type TokenSource struct {
	rest        *rest.Client
	cache       *gocache.Cache
	fallbackTTL time.Duration
	toasts      *toast.Notifier
	logger      *zap.Logger
}

// NewTokenSource creates a token source with the given fallback lifetime.
func NewTokenSource(restClient *rest.Client, fallbackTTL time.Duration, toasts *toast.Notifier, logger *zap.Logger) *TokenSource {
	return &TokenSource{
		rest:        restClient,
		cache:       gocache.New(fallbackTTL, time.Minute),
		fallbackTTL: fallbackTTL,
		toasts:      toasts,
		logger:      logger,
	}
}

// Token returns a valid chat token, fetching a fresh one if the cached
// token has expired. A refresh failure surfaces an error toast and is not
// retried here.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if v, ok := s.cache.Get(tokenCacheKey); ok {
		return v.(string), nil
	}

	tok, err := s.rest.ChatToken(ctx)
	if err != nil {
		if s.toasts != nil {
			s.toasts.ShowError("Chat session expired, please refresh the page")
		}
		return "", fmt.Errorf("refresh chat token: %w", err)
	}

	ttl := tokenLifetime(tok, s.fallbackTTL)
	if ttl > 0 {
		s.cache.Set(tokenCacheKey, tok, ttl)
	} else {
		s.logger.Warn("chat token already at expiry, not caching")
	}
	s.logger.Info("chat token refreshed", zap.Duration("ttl", ttl))
	return tok, nil
}

// Invalidate drops the cached token so the next Token call refreshes.
func (s *TokenSource) Invalidate() {
	s.cache.Delete(tokenCacheKey)
}

// tokenLifetime derives a cache TTL from the token's unverified exp claim.
// The claim is informational only; the server is the authority on validity.
// A JWT already past (or within the safety margin of) its exp yields zero:
// caching a known-dead token would only buy a wasted dial cycle.
func tokenLifetime(token string, fallback time.Duration) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	ttl := time.Until(exp.Time) - tokenSafetyMargin
	if ttl <= 0 {
		return 0
	}
	return ttl
}
