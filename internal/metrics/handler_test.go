package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	pkgmetrics "github.com/liquidnya/eventsource/pkg/metrics"
)

func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := pkgmetrics.NewWithRegistry(registry)
	m.Reconnects.Inc()

	server := httptest.NewServer(Handler(registry))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "eventsource_reconnects_total 1") {
		t.Errorf("Expected reconnect counter in output, got:\n%s", body)
	}
}
