package domain

import (
	"fmt"
	"strconv"
	"time"
)

// SlotCount is the fixed number of source image slots.
const SlotCount = 4

// SlotID identifies a source image slot (1..4).
type SlotID int

// Valid reports whether the id addresses one of the four source slots.
func (s SlotID) Valid() bool {
	return s >= 1 && s <= SlotCount
}

// Index returns the zero-based array index of the slot.
func (s SlotID) Index() int {
	return int(s) - 1
}

func (s SlotID) String() string {
	return strconv.Itoa(int(s))
}

// ParseSlotID parses a slot path segment such as "3".
func ParseSlotID(raw string) (SlotID, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, raw)
	}
	id := SlotID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSlot, n)
	}
	return id, nil
}

// AllSlots lists the source slots in order.
func AllSlots() [SlotCount]SlotID {
	return [SlotCount]SlotID{1, 2, 3, 4}
}

// ImageSlot describes the source image held by one slot.
type ImageSlot struct {
	ID        SlotID    `json:"id"`
	HasSource bool      `json:"has_source"`
	SourceKey string    `json:"-"`
	Filename  string    `json:"filename,omitempty"`
	MIME      string    `json:"mime,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// OutputCount is the fixed number of output slots.
const OutputCount = 2

// OutputID identifies an output slot (1 or 2).
type OutputID int

// Valid reports whether the id addresses an output slot.
func (o OutputID) Valid() bool {
	return o >= 1 && o <= OutputCount
}

// ParseOutputID parses an output path segment.
func ParseOutputID(raw string) (OutputID, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || !OutputID(n).Valid() {
		return 0, fmt.Errorf("%w: output %q", ErrInvalidSlot, raw)
	}
	return OutputID(n), nil
}
