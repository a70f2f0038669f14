package mixer

import (
	"testing"

	"studio/internal/domain"
)

func TestBuildJobRequestWholeMode(t *testing.T) {
	m := NewModel()
	_ = m.SetProcessingMode(domain.ProcessingWhole)
	m.SetGeometry(30, 40, domain.RegionOuter)
	for slot, w := range []int{80, 20, 0, 0} {
		if err := m.SetWeight(domain.ChannelMagnitude, domain.SlotID(slot+1), w); err != nil {
			t.Fatalf("SetWeight: %v", err)
		}
	}

	req := BuildJobRequest(m.Snapshot())

	want := domain.RegionDescriptor{WidthPct: 100, HeightPct: 100, Kind: domain.RegionInner, XPct: 50, YPct: 50}
	if req.Region != want {
		t.Fatalf("region = %+v, want %+v", req.Region, want)
	}
	if req.Weights.Magnitude != [4]int{80, 20, 0, 0} {
		t.Fatalf("magnitude weights = %v", req.Weights.Magnitude)
	}
	if req.MixMode != domain.MixModeMagPhase {
		t.Fatalf("mix mode = %s", req.MixMode)
	}
	if g := m.Snapshot().Geometry; g.WidthPct != 30 || g.Kind != domain.RegionOuter {
		t.Fatalf("whole mode must not overwrite stored geometry, got %+v", g)
	}
}

func TestBuildJobRequestRegionModeAnchorsOnSlotOne(t *testing.T) {
	m := NewModel()
	m.SetGeometry(20, 60, domain.RegionOuter)
	_ = m.SetPosition(1, 10, 90)
	_ = m.SetPosition(3, 70, 30)

	req := BuildJobRequest(m.Snapshot())

	want := domain.RegionDescriptor{WidthPct: 20, HeightPct: 60, Kind: domain.RegionOuter, XPct: 10, YPct: 90}
	if req.Region != want {
		t.Fatalf("region = %+v, want %+v", req.Region, want)
	}
	if req.Positions[2] != (domain.RegionPosition{XPct: 70, YPct: 30}) {
		t.Fatalf("slot 3 position = %+v", req.Positions[2])
	}
}

func TestBuildJobRequestIsPure(t *testing.T) {
	m := NewModel()
	_ = m.SetMixMode(domain.MixModeRealImag)
	_ = m.SetWeight(domain.ChannelReal, 2, 45)
	snap := m.Snapshot()

	first := BuildJobRequest(snap)
	second := BuildJobRequest(snap)
	if first != second {
		t.Fatalf("requests differ: %+v vs %+v", first, second)
	}

	first.Weights.Real[1] = 0
	first.Positions[0].XPct = 0
	if BuildJobRequest(m.Snapshot()) != second {
		t.Fatalf("mutating a request leaked into the model")
	}
}
