package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_RegisterAndCheck(t *testing.T) {
	checker := NewChecker()

	checker.RegisterCheck("success", func(ctx context.Context) error {
		return nil
	})
	checker.RegisterCheck("failure", func(ctx context.Context) error {
		return errors.New("check failed")
	})
	checker.RegisterCheck("degraded", func(ctx context.Context) error {
		return fmt.Errorf("%w: reconnecting", ErrDegraded)
	})
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-time.After(50 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	results := checker.CheckHealth(context.Background())

	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}

	tests := []struct {
		name    string
		status  Status
		wantErr bool
	}{
		{name: "success", status: StatusHealthy},
		{name: "failure", status: StatusUnhealthy, wantErr: true},
		{name: "degraded", status: StatusDegraded, wantErr: true},
		{name: "slow", status: StatusHealthy},
	}
	for _, tt := range tests {
		result, ok := results[tt.name]
		if !ok {
			t.Errorf("%s: result not found", tt.name)
			continue
		}
		if result.Status != tt.status {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.status, result.Status)
		}
		if (result.Error != "") != tt.wantErr {
			t.Errorf("%s: unexpected error field %q", tt.name, result.Error)
		}
	}

	if results["slow"].Duration < 50*time.Millisecond {
		t.Errorf("Expected slow check to take at least 50ms, got %v", results["slow"].Duration)
	}
}

func TestHandler_Endpoints(t *testing.T) {
	tests := []struct {
		name        string
		check       Check
		healthCode  int
		healthState Status
		readyCode   int
	}{
		{
			name:        "healthy",
			check:       func(context.Context) error { return nil },
			healthCode:  http.StatusOK,
			healthState: StatusHealthy,
			readyCode:   http.StatusOK,
		},
		{
			name:        "degraded",
			check:       func(context.Context) error { return ErrDegraded },
			healthCode:  http.StatusOK,
			healthState: StatusDegraded,
			readyCode:   http.StatusServiceUnavailable,
		},
		{
			name:        "unhealthy",
			check:       func(context.Context) error { return errors.New("down") },
			healthCode:  http.StatusServiceUnavailable,
			healthState: StatusUnhealthy,
			readyCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker()
			checker.RegisterCheck("stream", tt.check)

			mux := http.NewServeMux()
			NewHandler(checker, "1.0.0").Register(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.healthCode {
				t.Errorf("/health: expected %d, got %d", tt.healthCode, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON content type, got %q", ct)
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.healthState {
				t.Errorf("Expected status %s, got %s", tt.healthState, resp.Status)
			}
			if resp.Version != "1.0.0" {
				t.Errorf("Expected version 1.0.0, got %q", resp.Version)
			}
			if _, ok := resp.Checks["stream"]; !ok {
				t.Error("Expected stream check in response")
			}

			rec = httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.readyCode {
				t.Errorf("/ready: expected %d, got %d", tt.readyCode, rec.Code)
			}

			rec = httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
			if rec.Code != http.StatusOK {
				t.Errorf("/live: expected 200, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_NoChecks(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(NewChecker(), "").Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with no checks, got %d", rec.Code)
	}
}
