package domain

import (
	"math"
	"testing"
)

func TestRegionGeometryClamped(t *testing.T) {
	got := RegionGeometry{WidthPct: 1, HeightPct: 250, Kind: "sideways"}.Clamped()
	want := RegionGeometry{WidthPct: MinRegionSize, HeightPct: MaxRegionSize, Kind: RegionInner}
	if got != want {
		t.Fatalf("Clamped() = %+v, want %+v", got, want)
	}
	if k := NormalizeRegionKind(" OUTER "); k != RegionOuter {
		t.Fatalf("NormalizeRegionKind = %q, want outer", k)
	}
}

func TestRegionPositionClamped(t *testing.T) {
	got := RegionPosition{XPct: -10, YPct: math.NaN()}.Clamped()
	if got != (RegionPosition{XPct: 0, YPct: 0}) {
		t.Fatalf("Clamped() = %+v", got)
	}
	got = RegionPosition{XPct: 101, YPct: 33.5}.Clamped()
	if got != (RegionPosition{XPct: 100, YPct: 33.5}) {
		t.Fatalf("Clamped() = %+v", got)
	}
}
