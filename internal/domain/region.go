package domain

import "strings"

// RegionKind selects whether the region keeps or removes what is inside it.
type RegionKind string

const (
	RegionInner RegionKind = "inner"
	RegionOuter RegionKind = "outer"
)

const (
	MinRegionSize = 5.0
	MaxRegionSize = 100.0
	MinPosition   = 0.0
	MaxPosition   = 100.0
)

// NormalizeRegionKind maps free-form input onto a supported kind; anything
// other than "outer" is treated as inner.
func NormalizeRegionKind(kind string) RegionKind {
	if strings.EqualFold(strings.TrimSpace(kind), string(RegionOuter)) {
		return RegionOuter
	}
	return RegionInner
}

// RegionGeometry is the region size and kind shared by all slots.
type RegionGeometry struct {
	WidthPct  float64    `json:"width"`
	HeightPct float64    `json:"height"`
	Kind      RegionKind `json:"type"`
}

// DefaultRegionGeometry is the geometry a fresh session starts with.
func DefaultRegionGeometry() RegionGeometry {
	return RegionGeometry{WidthPct: 50, HeightPct: 50, Kind: RegionInner}
}

// Clamped returns the geometry with sizes bounded to [5,100].
func (g RegionGeometry) Clamped() RegionGeometry {
	return RegionGeometry{
		WidthPct:  ClampFloat(g.WidthPct, MinRegionSize, MaxRegionSize),
		HeightPct: ClampFloat(g.HeightPct, MinRegionSize, MaxRegionSize),
		Kind:      NormalizeRegionKind(string(g.Kind)),
	}
}

// RegionPosition anchors the region centre on one slot's spectrum, in percent.
type RegionPosition struct {
	XPct float64 `json:"x"`
	YPct float64 `json:"y"`
}

// DefaultRegionPosition centres the region.
func DefaultRegionPosition() RegionPosition {
	return RegionPosition{XPct: 50, YPct: 50}
}

// Clamped returns the position bounded to [0,100] on both axes.
func (p RegionPosition) Clamped() RegionPosition {
	return RegionPosition{
		XPct: ClampFloat(p.XPct, MinPosition, MaxPosition),
		YPct: ClampFloat(p.YPct, MinPosition, MaxPosition),
	}
}

// RegionDescriptor is the region as sent to the worker.
type RegionDescriptor struct {
	WidthPct  float64    `json:"width"`
	HeightPct float64    `json:"height"`
	Kind      RegionKind `json:"type"`
	XPct      float64    `json:"x"`
	YPct      float64    `json:"y"`
}
