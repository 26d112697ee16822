package credentials

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://localhost/events", nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	return req
}

func TestBearer(t *testing.T) {
	req := newRequest(t)
	if err := Bearer("token123").Apply(req); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer token123" {
		t.Errorf("Expected bearer header, got %q", got)
	}

	req = newRequest(t)
	Bearer("").Apply(req)
	if req.Header.Get("Authorization") != "" {
		t.Error("Empty bearer should not set a header")
	}
}

func TestHeaderAndChain(t *testing.T) {
	req := newRequest(t)
	chain := Chain{
		Header{"X-User-Id": {"alice"}},
		nil,
		Bearer("abc"),
	}
	if err := chain.Apply(req); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if req.Header.Get("X-User-Id") != "alice" {
		t.Errorf("Expected X-User-Id header, got %v", req.Header)
	}
	if req.Header.Get("Authorization") != "Bearer abc" {
		t.Errorf("Expected Authorization header, got %v", req.Header)
	}
}

type failingProvider struct{}

func (failingProvider) Apply(*http.Request) error { return errors.New("no token") }

func TestChainStopsOnError(t *testing.T) {
	req := newRequest(t)
	err := Chain{failingProvider{}, Bearer("abc")}.Apply(req)
	if err == nil {
		t.Fatal("Expected error")
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("Providers after a failure should not run")
	}
}

func TestNewJWTSigner(t *testing.T) {
	if _, err := NewJWTSigner(JWTConfig{}); err == nil {
		t.Error("Expected error without secret")
	}

	s, err := NewJWTSigner(JWTConfig{Secret: []byte("s")})
	if err != nil {
		t.Fatalf("NewJWTSigner() error: %v", err)
	}
	if s.config.TTL != 15*time.Minute {
		t.Errorf("Expected default TTL, got %v", s.config.TTL)
	}
}

func TestJWTSigner_Token(t *testing.T) {
	secret := []byte("test-secret")
	s, err := NewJWTSigner(JWTConfig{
		Secret:   secret,
		Issuer:   "eventsource",
		Subject:  "user123",
		Audience: []string{"https://api.example.com"},
		TTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("NewJWTSigner() error: %v", err)
	}

	tokenString, err := s.Token()
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.Subject != "user123" || claims.Issuer != "eventsource" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "https://api.example.com" {
		t.Errorf("Unexpected audience: %v", claims.Audience)
	}
}

func TestJWTSigner_Refresh(t *testing.T) {
	s, _ := NewJWTSigner(JWTConfig{Secret: []byte("s"), TTL: 10 * time.Minute})
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	first, _ := s.Token()

	now = now.Add(5 * time.Minute)
	second, _ := s.Token()
	if first != second {
		t.Error("Expected token to be reused within its lifetime")
	}

	now = now.Add(4 * time.Minute)
	third, _ := s.Token()
	if third == first {
		t.Error("Expected token to be re-signed near expiry")
	}

	req := newRequest(t)
	if err := s.Apply(req); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
		t.Errorf("Expected bearer header, got %q", req.Header.Get("Authorization"))
	}
}
