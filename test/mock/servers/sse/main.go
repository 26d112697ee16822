// Command sse is a demo Server-Sent Events server. It numbers events so a
// reconnecting client resumes where it left off, and it drops connections
// on purpose to exercise reconnection.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/liquidnya/eventsource/internal/sse"
)

var (
	addr      = flag.String("addr", ":3010", "server address")
	interval  = flag.Duration("interval", time.Second, "time between events")
	dropAfter = flag.Int("drop-after", 10, "close the connection after this many events (0 = never)")
	retryMS   = flag.Int("retry", 1000, "reconnection time sent to clients in milliseconds")
	secret    = flag.String("jwt-secret", "dev-secret", "HS256 secret required by /private (empty disables it)")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := &handler{
		interval:  *interval,
		dropAfter: *dropAfter,
		retry:     *retryMS,
		secret:    []byte(*secret),
		logger:    logger,
	}

	logger.Info("SSE demo server starting", "addr", *addr)
	if err := http.ListenAndServe(*addr, h.routes()); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

type handler struct {
	interval  time.Duration
	dropAfter int
	retry     int
	secret    []byte
	logger    *slog.Logger
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.events)
	mux.HandleFunc("/private", h.private)
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	return mux
}

// events streams numbered events, continuing after Last-Event-ID
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	start := 0
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		n, err := strconv.Atoi(last)
		if err != nil {
			http.Error(w, "invalid Last-Event-ID", http.StatusBadRequest)
			return
		}
		start = n
	}

	http.SetCookie(w, &http.Cookie{Name: "session", Value: strconv.FormatInt(time.Now().UnixNano(), 36), Path: "/"})
	h.stream(w, r, start, "")
}

// private streams to clients presenting a valid bearer token
func (h *handler) private(w http.ResponseWriter, r *http.Request) {
	if len(h.secret) == 0 {
		http.Error(w, "private stream disabled", http.StatusNotFound)
		return
	}

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		h.logger.Debug("rejected token", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	h.stream(w, r, 0, claims.Subject)
}

func (h *handler) stream(w http.ResponseWriter, r *http.Request, start int, subject string) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writer := sse.NewWriter(w)
	defer writer.Close()

	h.logger.Info("client connected", "remote", r.RemoteAddr, "resume", start, "subject", subject)

	welcome := "welcome"
	if subject != "" {
		welcome = "welcome " + subject
	}
	if err := writer.WriteEvent(&sse.Event{Type: "connected", Retry: h.retry, Data: welcome}); err != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for sent := 0; h.dropAfter == 0 || sent < h.dropAfter; {
		select {
		case <-r.Context().Done():
			h.logger.Info("client disconnected", "remote", r.RemoteAddr)
			return

		case t := <-ticker.C:
			sent++
			n := start + sent
			if err := writer.WriteEvent(eventFor(n, t)); err != nil {
				return
			}
			if n%10 == 0 {
				writer.WriteComment("keepalive")
			}
		}
	}

	h.logger.Info("dropping connection", "remote", r.RemoteAddr, "last", start+h.dropAfter)
}

// eventFor cycles through plain, named and multi-line events
func eventFor(n int, t time.Time) *sse.Event {
	id := strconv.Itoa(n)
	switch n % 3 {
	case 0:
		return &sse.Event{ID: id, Type: "tick", Data: fmt.Sprintf("Event %d at %s", n, t.Format(time.RFC3339))}
	case 1:
		return &sse.Event{ID: id, Data: fmt.Sprintf("{\n  \"count\": %d,\n  \"time\": %q\n}", n, t.Format(time.RFC3339))}
	default:
		return &sse.Event{ID: id, Data: fmt.Sprintf("Heartbeat %d", n)}
	}
}
