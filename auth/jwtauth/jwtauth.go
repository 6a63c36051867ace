// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package jwtauth provides the "jwt" auth plugin. It accepts HS256 signed
// bearer tokens which are bound to an API context, the equivalent of a
// 2-legged token issued to a consumer of one endpoint.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/auth"
	"github.com/z5labs/restrouter/internal/pluginconfig"
	"github.com/z5labs/restrouter/request"
)

// Name is the plugin name endpoints declare.
const Name = "jwt"

type claimsKey struct{}

// ClaimsKey is the request attribute key the verified [Claims] are stored under.
var ClaimsKey = claimsKey{}

// Claims are the claims of an accepted token.
type Claims struct {
	// Context names the API context the token was issued for.
	Context string `json:"context,omitempty"`

	jwt.RegisteredClaims
}

// ClaimsFrom returns the claims stored on req by the plugin.
func ClaimsFrom(req *request.Request) (*Claims, bool) {
	c, ok := req.Attribute(ClaimsKey).(*Claims)
	return c, ok
}

// Config configures the plugin.
type Config struct {
	// Secret is the HMAC key tokens are signed with.
	Secret string `koanf:"secret" validate:"required"`

	// Context, if set, must equal the context claim of every token.
	Context string `koanf:"context"`

	// Issuer, if set, must equal the iss claim of every token.
	Issuer string `koanf:"issuer"`

	// Leeway is the clock skew tolerated when validating time claims.
	Leeway time.Duration `koanf:"leeway"`
}

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("missing bearer token")

// ContextMismatchError is returned when a valid token was issued for
// another API context.
type ContextMismatchError struct {
	Expected string
	Actual   string
}

func (e ContextMismatchError) Error() string {
	return fmt.Sprintf("token context %q does not match %q", e.Actual, e.Expected)
}

// Authenticator verifies bearer tokens.
type Authenticator struct {
	cfg    Config
	parser *jwt.Parser
}

// New is the [auth.Factory] of the "jwt" plugin.
func New(cfg auth.Config) (auth.Authenticator, error) {
	var c Config
	err := pluginconfig.Decode(Name, cfg, &c)
	if err != nil {
		return nil, err
	}
	return NewAuthenticator(c), nil
}

// NewAuthenticator initializes an [Authenticator].
func NewAuthenticator(cfg Config) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Authenticator{
		cfg:    cfg,
		parser: jwt.NewParser(opts...),
	}
}

// Authenticate implements the [auth.Authenticator] interface.
func (a *Authenticator) Authenticate(ctx context.Context, req *request.Request) error {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		return restrouter.UnauthenticatedError{Plugin: Name, Cause: err}
	}

	claims := &Claims{}
	_, err = a.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	})
	if err != nil {
		return restrouter.UnauthenticatedError{Plugin: Name, Cause: err}
	}

	if a.cfg.Context != "" && claims.Context != a.cfg.Context {
		return restrouter.UnauthorizedError{
			Plugin: Name,
			Cause: ContextMismatchError{
				Expected: a.cfg.Context,
				Actual:   claims.Context,
			},
		}
	}

	req.Set(ClaimsKey, claims)
	return nil
}

// Sign issues a token for the given context and subject which expires
// after ttl. It is intended for tooling and tests.
func Sign(secret, apiContext, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Context: apiContext,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}

	const prefix = "Bearer "
	token, ok := strings.CutPrefix(header, prefix)
	if !ok {
		return "", errors.New("malformed Authorization header: expected Bearer scheme")
	}
	if token == "" {
		return "", errors.New("malformed Authorization header: empty token")
	}
	return token, nil
}
