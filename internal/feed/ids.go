package feed

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator issues notification IDs. IDs are UUIDv7, so they sort by
// arrival millisecond, and the generator never hands out the same value
// twice in a process even when several events share a clock tick.
type IDGenerator struct {
	mu   sync.Mutex
	last uuid.UUID
}

// NewIDGenerator returns a ready IDGenerator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns a new unique ID.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		if id != g.last {
			g.last = id
			return id.String()
		}
	}
}
