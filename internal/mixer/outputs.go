package mixer

import (
	"fmt"
	"sync"
	"time"

	"studio/internal/domain"
)

// OutputSlot holds the latest result written to one output viewport.
type OutputSlot struct {
	ID        domain.OutputID `json:"id"`
	Image     domain.Image    `json:"-"`
	Simulated bool            `json:"simulated"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}

// HasImage reports whether a result has been written.
func (o OutputSlot) HasImage() bool {
	return !o.Image.Empty()
}

// Outputs are the two result slots. Presenters read them and select the
// active one; only the orchestrator writes results.
type Outputs struct {
	mu     sync.RWMutex
	active domain.OutputID
	slots  [domain.OutputCount]OutputSlot
}

// NewOutputs returns empty outputs with slot 1 active.
func NewOutputs() *Outputs {
	o := &Outputs{active: 1}
	for i := range o.slots {
		o.slots[i].ID = domain.OutputID(i + 1)
	}
	return o
}

// Active returns the output slot that receives the next result.
func (o *Outputs) Active() domain.OutputID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.active
}

// Select makes id the active output slot.
func (o *Outputs) Select(id domain.OutputID) error {
	if !id.Valid() {
		return fmt.Errorf("mixer: %w: output %d", domain.ErrInvalidSlot, id)
	}
	o.mu.Lock()
	o.active = id
	o.mu.Unlock()
	return nil
}

// Get returns a copy of output slot id.
func (o *Outputs) Get(id domain.OutputID) (OutputSlot, error) {
	if !id.Valid() {
		return OutputSlot{}, fmt.Errorf("mixer: %w: output %d", domain.ErrInvalidSlot, id)
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.slots[id-1], nil
}

// List returns copies of both output slots.
func (o *Outputs) List() [domain.OutputCount]OutputSlot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.slots
}

func (o *Outputs) write(id domain.OutputID, img domain.Image, simulated bool) {
	if !id.Valid() {
		return
	}
	o.mu.Lock()
	o.slots[id-1] = OutputSlot{ID: id, Image: img, Simulated: simulated, UpdatedAt: time.Now()}
	o.mu.Unlock()
}
