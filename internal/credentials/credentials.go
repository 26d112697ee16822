// Package credentials attaches credential material to stream requests made
// with the credentials flag set.
package credentials

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider decorates an outgoing request with credentials
type Provider interface {
	Apply(req *http.Request) error
}

// Bearer is a static bearer token
type Bearer string

// Apply sets the Authorization header
func (b Bearer) Apply(req *http.Request) error {
	if b == "" {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+string(b))
	return nil
}

// Header adds fixed header values
type Header http.Header

// Apply adds the headers to req
func (h Header) Apply(req *http.Request) error {
	for key, values := range h {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return nil
}

// Chain applies providers in order, stopping at the first error
type Chain []Provider

// Apply applies every provider
func (c Chain) Apply(req *http.Request) error {
	for _, p := range c {
		if p == nil {
			continue
		}
		if err := p.Apply(req); err != nil {
			return err
		}
	}
	return nil
}

// JWTConfig configures HS256 token minting
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Subject  string
	Audience []string
	TTL      time.Duration
}

// JWTSigner mints short-lived HS256 bearer tokens and reuses each token
// until it is close to expiry.
type JWTSigner struct {
	config JWTConfig
	now    func() time.Time

	mu      sync.Mutex
	token   string
	refresh time.Time
}

// NewJWTSigner creates a signer
func NewJWTSigner(config JWTConfig) (*JWTSigner, error) {
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if config.TTL <= 0 {
		config.TTL = 15 * time.Minute
	}
	return &JWTSigner{
		config: config,
		now:    time.Now,
	}, nil
}

// Token returns a valid signed token
func (s *JWTSigner) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.refresh) {
		return s.token, nil
	}

	claims := jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   s.config.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
	}
	if len(s.config.Audience) > 0 {
		claims.Audience = jwt.ClaimStrings(s.config.Audience)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.token = token
	// re-sign once 80% of the lifetime has passed
	s.refresh = now.Add(s.config.TTL * 4 / 5)
	return token, nil
}

// Apply sets the Authorization header to a freshly valid token
func (s *JWTSigner) Apply(req *http.Request) error {
	token, err := s.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
