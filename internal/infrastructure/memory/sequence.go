package memory

import (
	"context"
	"errors"
	"sync"
)

// SequenceGenerator issues per-name monotonic counters, creating each counter
// at zero on first use. Two concurrent calls for the same name never observe
// the same value.
type SequenceGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{
		counters: make(map[string]int64),
	}
}

func (g *SequenceGenerator) Next(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if name == "" {
		return 0, errors.New("sequence: name is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.counters[name]++
	return g.counters[name], nil
}
