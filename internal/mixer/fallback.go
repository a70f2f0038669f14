package mixer

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"studio/internal/domain"
)

// Simulator stands in for the worker while it is unreachable: after a fixed
// delay it hands back one of the uploaded sources, unmodified, as the result.
type Simulator struct {
	delay time.Duration
	store domain.SourceStore
	pick  func(n int) int
}

// NewSimulator builds a simulator reading sources from store. pick chooses an
// index in [0,n); nil means uniformly at random.
func NewSimulator(delay time.Duration, store domain.SourceStore, pick func(n int) int) *Simulator {
	if pick == nil {
		pick = rand.Intn
	}
	return &Simulator{delay: delay, store: store, pick: pick}
}

// Simulate waits out the delay and returns the chosen source's bytes. ok is
// false when no slot holds a source.
func (s *Simulator) Simulate(ctx context.Context, slots []domain.ImageSlot) (domain.Image, bool, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return domain.Image{}, false, ctx.Err()
	}

	candidates := make([]domain.ImageSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.HasSource {
			candidates = append(candidates, slot)
		}
	}
	if len(candidates) == 0 {
		return domain.Image{}, false, nil
	}
	chosen := candidates[s.pick(len(candidates))]
	data, err := s.store.Read(ctx, chosen.SourceKey)
	if err != nil {
		return domain.Image{}, false, fmt.Errorf("mixer: read source of slot %d: %w", chosen.ID, err)
	}
	mime := chosen.MIME
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return domain.Image{Data: data, MIME: mime}, true, nil
}
