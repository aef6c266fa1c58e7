// Package auth verifies API bearer tokens against a JWKS endpoint.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"dptmirror/internal/domain"
)

// Claims are the token claims the mirror API cares about. Any issuer
// whose JWKS endpoint is configured can mint tokens; only a subject is
// required.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens.
type Verifier interface {
	VerifyToken(tokenString string) (*Claims, error)
}

type jwksVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewVerifier creates a verifier backed by the given JWKS endpoint.
// Key caching and refresh follow the endpoint's HTTP cache headers.
func NewVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (Verifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("token verifier initialized", "jwks_url", jwksURL)
	return &jwksVerifier{jwks: jwks, logger: logger}, nil
}

// VerifyToken parses and validates a bearer token. Every failure maps to
// domain.ErrUnauthorized; the cause is logged, not exposed.
func (v *jwksVerifier) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.jwks.Keyfunc)
	if err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	// Asymmetric algorithms only; a JWKS key must never be abused as an
	// HMAC secret.
	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		v.logger.Warn("token uses unexpected algorithm", "algorithm", token.Method.Alg())
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
