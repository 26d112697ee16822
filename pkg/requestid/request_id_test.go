package requestid

import (
	"net/http"
	"regexp"
	"testing"
)

var idPattern = regexp.MustCompile(`^\d{13,}-[0-9a-f]{8}$`)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := Generate()
		if !idPattern.MatchString(id) {
			t.Errorf("Invalid request ID format: %s", id)
		}
		if seen[id] {
			t.Errorf("Duplicate request ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestSet(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://localhost/events", nil)

	id := Set(req)
	if !idPattern.MatchString(id) || req.Header.Get(Header) != id {
		t.Errorf("Expected generated id in header, got %q / %q", id, req.Header.Get(Header))
	}

	configured, _ := http.NewRequest(http.MethodGet, "http://localhost/events", nil)
	configured.Header.Set(Header, "fixed")
	if got := Set(configured); got != "fixed" {
		t.Errorf("Expected configured id to be kept, got %q", got)
	}
}
