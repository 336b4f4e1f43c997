package strut

import (
	mathrand "math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestIDHeader is the header carrying the per-request identifier. The
// dispatcher echoes it on every response and stamps it into problem bodies.
const RequestIDHeader = "X-Request-ID"

// ULIDs sort by creation time, which makes request IDs greppable in order.
// The monotonic reader needs a lock since requests mint IDs concurrently.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec // IDs are not security sensitive
)

func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// requestID returns the inbound request ID if the client supplied one,
// otherwise mints a fresh ULID.
func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return newRequestID()
}
