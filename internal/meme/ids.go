package meme

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator hands out unique identifiers for memes, overlays,
// export records and notifications.
type IDGenerator interface {
	NewID() string
}

// Clock returns the current time. Injected so timestamps are testable.
type Clock func() time.Time

// ULIDGenerator generates time-ordered ULIDs. Monotonic entropy keeps ids
// unique and sortable when many are requested within the same millisecond.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     Clock
}

// NewULIDGenerator returns a generator stamped by now (time.Now if nil).
func NewULIDGenerator(now Clock) *ULIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

// NewID returns a new ULID string.
func (g *ULIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		return ulid.Make().String()
	}
	return id.String()
}

// SequenceGenerator yields prefix-1, prefix-2, ... Deterministic, for tests.
type SequenceGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceGenerator returns a generator with the given prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
