package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Channel names one spectral component the weights are expressed in.
type Channel string

const (
	ChannelMagnitude Channel = "magnitude"
	ChannelPhase     Channel = "phase"
	ChannelReal      Channel = "real"
	ChannelImaginary Channel = "imaginary"
)

const (
	MinWeight = 0
	MaxWeight = 100
)

// Channels lists every weight channel in wire order.
func Channels() []Channel {
	return []Channel{ChannelMagnitude, ChannelPhase, ChannelReal, ChannelImaginary}
}

// ParseChannel accepts the canonical names plus the short forms used by the
// sliders ("mag", "imag") in any letter case.
func ParseChannel(raw string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "magnitude", "mag":
		return ChannelMagnitude, nil
	case "phase":
		return ChannelPhase, nil
	case "real":
		return ChannelReal, nil
	case "imaginary", "imag":
		return ChannelImaginary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, raw)
	}
}

// Component returns the display name the worker expects in view paths.
// A Caser keeps state between calls, so each call builds its own.
func (c Channel) Component() string {
	return cases.Title(language.English).String(string(c))
}

// WeightMatrix holds one weight per source slot for each channel. It is a
// plain value: copying it yields an independent snapshot.
type WeightMatrix struct {
	Magnitude [SlotCount]int `json:"magnitude"`
	Phase     [SlotCount]int `json:"phase"`
	Real      [SlotCount]int `json:"real"`
	Imaginary [SlotCount]int `json:"imaginary"`
}

func (m *WeightMatrix) channel(c Channel) *[SlotCount]int {
	switch c {
	case ChannelMagnitude:
		return &m.Magnitude
	case ChannelPhase:
		return &m.Phase
	case ChannelReal:
		return &m.Real
	case ChannelImaginary:
		return &m.Imaginary
	default:
		return nil
	}
}

// Get returns the weight of slot in channel c, or 0 for unknown inputs.
func (m WeightMatrix) Get(c Channel, slot SlotID) int {
	ch := m.channel(c)
	if ch == nil || !slot.Valid() {
		return 0
	}
	return ch[slot.Index()]
}

// Set clamps value to [0,100] and stores it. Exactly one scalar changes.
func (m *WeightMatrix) Set(c Channel, slot SlotID, value int) error {
	ch := m.channel(c)
	if ch == nil {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, c)
	}
	if !slot.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	ch[slot.Index()] = ClampInt(value, MinWeight, MaxWeight)
	return nil
}

// ClampInt bounds v to [lo,hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat bounds v to [lo,hi]. NaN collapses to lo.
func ClampFloat(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
