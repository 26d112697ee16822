// Package requestid tags outgoing stream requests so server logs can be
// matched to individual connection attempts.
package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Header carries the request ID
const Header = "X-Request-ID"

// counter is used as fallback when random generation fails
var counter atomic.Uint64

// Generate returns an ID of the form timestamp-randomhex,
// e.g. 1737039600123-a2b3c4d5
func Generate() string {
	timestamp := time.Now().UnixMilli()

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("%d-%d", timestamp, counter.Add(1))
	}
	return fmt.Sprintf("%d-%s", timestamp, hex.EncodeToString(randomBytes))
}

// Set generates an ID for req unless one was configured, and returns the
// ID the request carries.
func Set(req *http.Request) string {
	if id := req.Header.Get(Header); id != "" {
		return id
	}
	id := Generate()
	req.Header.Set(Header, id)
	return id
}
