package ids

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Ref builds a unique, human-readable coin-transaction reference that embeds
// the charged action and the object it applied to.
func Ref(action, objectID string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		action = "unknown"
	}
	if strings.TrimSpace(objectID) == "" {
		return fmt.Sprintf("%s:%s", action, New())
	}
	return fmt.Sprintf("%s:%s:%s", action, objectID, New())
}
