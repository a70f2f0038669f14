package mixer

import (
	"context"
	"errors"
	"testing"
	"time"

	"studio/internal/domain"
)

func TestSimulatorPicksExistingSource(t *testing.T) {
	store := newMemStore()
	_, _ = store.Write(context.Background(), "a", []byte("first"))
	_, _ = store.Write(context.Background(), "b", []byte("\x89PNG\r\n\x1a\nsecond"))
	slots := []domain.ImageSlot{
		{ID: 1, HasSource: true, SourceKey: "a", MIME: "image/jpeg"},
		{ID: 2},
		{ID: 4, HasSource: true, SourceKey: "b"},
	}
	sim := NewSimulator(time.Millisecond, store, func(n int) int {
		if n != 2 {
			t.Errorf("pick called with n=%d, want 2", n)
		}
		return 1
	})

	img, ok, err := sim.Simulate(context.Background(), slots)
	if err != nil || !ok {
		t.Fatalf("Simulate() = ok %v, err %v", ok, err)
	}
	if string(img.Data) != "\x89PNG\r\n\x1a\nsecond" {
		t.Fatalf("data = %q", img.Data)
	}
	if img.MIME != "image/png" {
		t.Fatalf("mime = %q, want sniffed image/png", img.MIME)
	}
}

func TestSimulatorWithoutSources(t *testing.T) {
	sim := NewSimulator(time.Millisecond, newMemStore(), nil)
	_, ok, err := sim.Simulate(context.Background(), []domain.ImageSlot{{ID: 1}, {ID: 2}})
	if err != nil || ok {
		t.Fatalf("Simulate() = ok %v, err %v; want no result", ok, err)
	}
}

func TestSimulatorHonoursCancellation(t *testing.T) {
	sim := NewSimulator(time.Hour, newMemStore(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := sim.Simulate(ctx, nil)
	if ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("Simulate() = ok %v, err %v", ok, err)
	}
}
