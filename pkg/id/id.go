// pkg/id/id.go
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewReference generates a payment reference: a fixed prefix plus a ULID.
// Monotonic entropy keeps references unique under concurrent generation.
func NewReference(prefix string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return prefix + "-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
