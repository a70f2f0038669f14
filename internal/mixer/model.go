package mixer

import (
	"fmt"
	"slices"
	"sync"

	"studio/internal/domain"
)

// ChangeKind names the part of the configuration a mutation touched.
type ChangeKind string

const (
	ChangeWeights        ChangeKind = "weights"
	ChangeGeometry       ChangeKind = "region_geometry"
	ChangePosition       ChangeKind = "region_position"
	ChangeLinked         ChangeKind = "region_linked"
	ChangeMixMode        ChangeKind = "mix_mode"
	ChangeProcessingMode ChangeKind = "processing_mode"
	ChangeModes          ChangeKind = "modes"
	ChangeSource         ChangeKind = "source"
)

// Change is the configuration-changed notification. A linked position write
// produces a single Change with Slot set to the slot that was dragged.
type Change struct {
	Kind ChangeKind
	Slot domain.SlotID
}

// TriggersMix reports whether the change should schedule a new mix. Toggling
// the link only affects later position writes, so it does not.
func (c Change) TriggersMix() bool {
	return c.Kind != ChangeLinked
}

// Snapshot is a consistent copy of the whole configuration. It holds no
// references into the Model.
type Snapshot struct {
	Weights    domain.WeightMatrix                     `json:"weights"`
	Geometry   domain.RegionGeometry                   `json:"region"`
	Positions  [domain.SlotCount]domain.RegionPosition `json:"region_positions"`
	Linked     bool                                    `json:"linked"`
	MixMode    domain.MixMode                          `json:"mix_mode"`
	Processing domain.ProcessingMode                   `json:"processing_mode"`
	Slots      [domain.SlotCount]domain.ImageSlot      `json:"slots"`
}

// HasSource reports whether at least one slot holds an image.
func (s Snapshot) HasSource() bool {
	for _, slot := range s.Slots {
		if slot.HasSource {
			return true
		}
	}
	return false
}

// SourceSlots returns the slots that hold an image, in slot order.
func (s Snapshot) SourceSlots() []domain.ImageSlot {
	var out []domain.ImageSlot
	for _, slot := range s.Slots {
		if slot.HasSource {
			out = append(out, slot)
		}
	}
	return out
}

// Model is the shared mixing configuration: the weight matrix, the region
// model (geometry, per-slot positions, link flag), both modes and the source
// slots. Every setter applies its update atomically and then notifies
// observers once, outside the lock.
type Model struct {
	mu    sync.Mutex
	state Snapshot

	obsMu     sync.Mutex
	observers map[int]func(Change)
	nextObs   int
}

// NewModel returns a model with the defaults a fresh session starts from.
func NewModel() *Model {
	state := Snapshot{
		Geometry:   domain.DefaultRegionGeometry(),
		MixMode:    domain.MixModeMagPhase,
		Processing: domain.ProcessingRegion,
	}
	for _, slot := range domain.AllSlots() {
		state.Positions[slot.Index()] = domain.DefaultRegionPosition()
		state.Slots[slot.Index()] = domain.ImageSlot{ID: slot}
	}
	return &Model{state: state, observers: make(map[int]func(Change))}
}

// Snapshot returns a copy of the current configuration.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observe registers fn for every change and returns a function that removes it.
// Observers run on the goroutine that performed the mutation.
func (m *Model) Observe(fn func(Change)) func() {
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.obsMu.Unlock()
	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

func (m *Model) notify(c Change) {
	m.obsMu.Lock()
	fns := make([]func(Change), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.obsMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// update runs mutate under the lock and notifies when it reports a change.
func (m *Model) update(c Change, mutate func(s *Snapshot) bool) {
	m.mu.Lock()
	changed := mutate(&m.state)
	m.mu.Unlock()
	if changed {
		m.notify(c)
	}
}

// SetGeometry replaces the shared region geometry, clamping sizes to [5,100].
func (m *Model) SetGeometry(widthPct, heightPct float64, kind domain.RegionKind) {
	next := domain.RegionGeometry{WidthPct: widthPct, HeightPct: heightPct, Kind: kind}.Clamped()
	m.update(Change{Kind: ChangeGeometry}, func(s *Snapshot) bool {
		if s.Geometry == next {
			return false
		}
		s.Geometry = next
		return true
	})
}

// SetPosition moves the region anchor of slot. With linking on, all four
// anchors move together in the same update.
func (m *Model) SetPosition(slot domain.SlotID, xPct, yPct float64) error {
	if !slot.Valid() {
		return fmt.Errorf("mixer: %w: %d", domain.ErrInvalidSlot, slot)
	}
	next := domain.RegionPosition{XPct: xPct, YPct: yPct}.Clamped()
	m.update(Change{Kind: ChangePosition, Slot: slot}, func(s *Snapshot) bool {
		if !s.Linked {
			if s.Positions[slot.Index()] == next {
				return false
			}
			s.Positions[slot.Index()] = next
			return true
		}
		changed := false
		for i := range s.Positions {
			if s.Positions[i] != next {
				s.Positions[i] = next
				changed = true
			}
		}
		return changed
	})
	return nil
}

// SetLinked toggles linked positions. Turning it on leaves the current
// positions as they are; they converge on the next SetPosition.
func (m *Model) SetLinked(linked bool) {
	m.update(Change{Kind: ChangeLinked}, func(s *Snapshot) bool {
		if s.Linked == linked {
			return false
		}
		s.Linked = linked
		return true
	})
}

// SetWeight stores one weight, clamped to [0,100].
func (m *Model) SetWeight(channel domain.Channel, slot domain.SlotID, value int) error {
	var err error
	m.update(Change{Kind: ChangeWeights, Slot: slot}, func(s *Snapshot) bool {
		before := s.Weights
		if err = s.Weights.Set(channel, slot, value); err != nil {
			return false
		}
		return before != s.Weights
	})
	if err != nil {
		return fmt.Errorf("mixer: %w", err)
	}
	return nil
}

// SetWeights replaces whole channel rows in one update. Values are clamped
// to [0,100]; channels missing from rows keep their weights.
func (m *Model) SetWeights(rows map[domain.Channel][domain.SlotCount]int) error {
	for ch := range rows {
		if !slices.Contains(domain.Channels(), ch) {
			return fmt.Errorf("mixer: %w: %q", domain.ErrInvalidChannel, ch)
		}
	}
	var err error
	m.update(Change{Kind: ChangeWeights}, func(s *Snapshot) bool {
		next := s.Weights
		for ch, values := range rows {
			for _, slot := range domain.AllSlots() {
				if err = next.Set(ch, slot, values[slot.Index()]); err != nil {
					return false
				}
			}
		}
		if next == s.Weights {
			return false
		}
		s.Weights = next
		return true
	})
	if err != nil {
		return fmt.Errorf("mixer: %w", err)
	}
	return nil
}

// SetModes sets the mix and processing modes together. An empty mode is
// left as it is.
func (m *Model) SetModes(mix domain.MixMode, proc domain.ProcessingMode) error {
	var ok bool
	if mix != "" {
		if mix, ok = domain.NormalizeMixMode(string(mix)); !ok {
			return fmt.Errorf("mixer: unsupported mix mode")
		}
	}
	if proc != "" {
		if proc, ok = domain.NormalizeProcessingMode(string(proc)); !ok {
			return fmt.Errorf("mixer: unsupported processing mode")
		}
	}
	kind := ChangeModes
	switch {
	case proc == "":
		kind = ChangeMixMode
	case mix == "":
		kind = ChangeProcessingMode
	}
	m.update(Change{Kind: kind}, func(s *Snapshot) bool {
		before := s.MixMode
		beforeProc := s.Processing
		if mix != "" {
			s.MixMode = mix
		}
		if proc != "" {
			s.Processing = proc
		}
		return s.MixMode != before || s.Processing != beforeProc
	})
	return nil
}

// SetMixMode selects magnitude/phase or real/imaginary sliders.
func (m *Model) SetMixMode(mode domain.MixMode) error {
	mode, ok := domain.NormalizeMixMode(string(mode))
	if !ok {
		return fmt.Errorf("mixer: unsupported mix mode")
	}
	m.update(Change{Kind: ChangeMixMode}, func(s *Snapshot) bool {
		if s.MixMode == mode {
			return false
		}
		s.MixMode = mode
		return true
	})
	return nil
}

// SetProcessingMode selects whole-spectrum or region processing. Stored region
// settings are kept either way.
func (m *Model) SetProcessingMode(mode domain.ProcessingMode) error {
	mode, ok := domain.NormalizeProcessingMode(string(mode))
	if !ok {
		return fmt.Errorf("mixer: unsupported processing mode")
	}
	m.update(Change{Kind: ChangeProcessingMode}, func(s *Snapshot) bool {
		if s.Processing == mode {
			return false
		}
		s.Processing = mode
		return true
	})
	return nil
}

// SetSource records that slot now holds the image stored under info.SourceKey.
// Replacing an existing source counts as a change too.
func (m *Model) SetSource(slot domain.SlotID, info domain.ImageSlot) error {
	_, err := m.ReplaceSource(slot, info)
	return err
}

// ReplaceSource is SetSource returning the slot as it was before.
func (m *Model) ReplaceSource(slot domain.SlotID, info domain.ImageSlot) (domain.ImageSlot, error) {
	if !slot.Valid() {
		return domain.ImageSlot{}, fmt.Errorf("mixer: %w: %d", domain.ErrInvalidSlot, slot)
	}
	info.ID = slot
	info.HasSource = true
	var prev domain.ImageSlot
	m.update(Change{Kind: ChangeSource, Slot: slot}, func(s *Snapshot) bool {
		prev = s.Slots[slot.Index()]
		s.Slots[slot.Index()] = info
		return true
	})
	return prev, nil
}
