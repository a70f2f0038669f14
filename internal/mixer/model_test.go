package mixer

import (
	"errors"
	"testing"

	"studio/internal/domain"
)

func TestNewModelDefaults(t *testing.T) {
	s := NewModel().Snapshot()
	if s.MixMode != domain.MixModeMagPhase || s.Processing != domain.ProcessingRegion {
		t.Fatalf("modes = %s/%s", s.MixMode, s.Processing)
	}
	if s.Geometry != domain.DefaultRegionGeometry() {
		t.Fatalf("geometry = %+v", s.Geometry)
	}
	for i, p := range s.Positions {
		if p != (domain.RegionPosition{XPct: 50, YPct: 50}) {
			t.Fatalf("position %d = %+v", i, p)
		}
	}
	if s.HasSource() {
		t.Fatalf("fresh model should have no sources")
	}
}

func TestLinkedPositionWriteIsOneUpdate(t *testing.T) {
	m := NewModel()
	m.SetLinked(true)

	var changes []Change
	var seen [][domain.SlotCount]domain.RegionPosition
	m.Observe(func(c Change) {
		changes = append(changes, c)
		seen = append(seen, m.Snapshot().Positions)
	})

	if err := m.SetPosition(2, 30, 70); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d notifications, want 1", len(changes))
	}
	if changes[0] != (Change{Kind: ChangePosition, Slot: 2}) {
		t.Fatalf("change = %+v", changes[0])
	}
	want := domain.RegionPosition{XPct: 30, YPct: 70}
	for i, p := range seen[0] {
		if p != want {
			t.Fatalf("observer saw slot %d at %+v, want %+v", i+1, p, want)
		}
	}
}

func TestUnlinkedPositionWriteTouchesOneSlot(t *testing.T) {
	m := NewModel()
	if err := m.SetPosition(3, 10, 20); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	s := m.Snapshot()
	if s.Positions[2] != (domain.RegionPosition{XPct: 10, YPct: 20}) {
		t.Fatalf("slot 3 = %+v", s.Positions[2])
	}
	if s.Positions[0] != domain.DefaultRegionPosition() {
		t.Fatalf("slot 1 moved to %+v", s.Positions[0])
	}
}

func TestModelSkipsNoopWrites(t *testing.T) {
	m := NewModel()
	n := 0
	m.Observe(func(Change) { n++ })

	m.SetGeometry(50, 50, domain.RegionInner)
	_ = m.SetPosition(1, 50, 50)
	_ = m.SetWeight(domain.ChannelMagnitude, 1, 0)
	_ = m.SetMixMode(domain.MixModeMagPhase)
	_ = m.SetProcessingMode(domain.ProcessingRegion)
	m.SetLinked(false)
	if n != 0 {
		t.Fatalf("no-op writes notified %d times", n)
	}

	_ = m.SetWeight(domain.ChannelMagnitude, 1, 250)
	if n != 1 {
		t.Fatalf("weight write notified %d times, want 1", n)
	}
	if got := m.Snapshot().Weights.Magnitude[0]; got != 100 {
		t.Fatalf("weight = %d, want clamped 100", got)
	}
}

func TestModelClampsGeometryAndPosition(t *testing.T) {
	m := NewModel()
	m.SetGeometry(1, 140, domain.RegionOuter)
	g := m.Snapshot().Geometry
	if g.WidthPct != 5 || g.HeightPct != 100 || g.Kind != domain.RegionOuter {
		t.Fatalf("geometry = %+v", g)
	}
	_ = m.SetPosition(1, -4, 120)
	if p := m.Snapshot().Positions[0]; p.XPct != 0 || p.YPct != 100 {
		t.Fatalf("position = %+v", p)
	}
}

func TestModelRejectsBadInput(t *testing.T) {
	m := NewModel()
	if err := m.SetPosition(5, 1, 1); !errors.Is(err, domain.ErrInvalidSlot) {
		t.Fatalf("SetPosition(5) err = %v", err)
	}
	if err := m.SetSource(0, domain.ImageSlot{}); !errors.Is(err, domain.ErrInvalidSlot) {
		t.Fatalf("SetSource(0) err = %v", err)
	}
	if err := m.SetMixMode("polar"); err == nil {
		t.Fatalf("SetMixMode(polar) expected error")
	}
	if err := m.SetProcessingMode("partial"); err == nil {
		t.Fatalf("SetProcessingMode(partial) expected error")
	}
	if err := m.SetWeight("hue", 1, 5); err == nil {
		t.Fatalf("SetWeight(hue) expected error")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewModel()
	s := m.Snapshot()
	s.Weights.Phase[1] = 99
	s.Positions[0].XPct = 1
	fresh := m.Snapshot()
	if fresh.Weights.Phase[1] != 0 || fresh.Positions[0].XPct != 50 {
		t.Fatalf("snapshot aliases model state: %+v", fresh)
	}
}

func TestChangeTriggersMix(t *testing.T) {
	if (Change{Kind: ChangeLinked}).TriggersMix() {
		t.Fatalf("link toggle should not trigger a mix")
	}
	for _, k := range []ChangeKind{ChangeWeights, ChangeGeometry, ChangePosition, ChangeMixMode, ChangeProcessingMode, ChangeSource} {
		if !(Change{Kind: k}).TriggersMix() {
			t.Fatalf("%s should trigger a mix", k)
		}
	}
}

func TestSetWeightsIsOneUpdate(t *testing.T) {
	m := NewModel()
	if err := m.SetWeight(domain.ChannelReal, 4, 9); err != nil {
		t.Fatalf("SetWeight: %v", err)
	}

	var changes []Change
	var seen []domain.WeightMatrix
	m.Observe(func(c Change) {
		changes = append(changes, c)
		seen = append(seen, m.Snapshot().Weights)
	})

	err := m.SetWeights(map[domain.Channel][domain.SlotCount]int{
		domain.ChannelMagnitude: {80, 20, 0, 150},
		domain.ChannelPhase:     {10, 20, 30, -5},
	})
	if err != nil {
		t.Fatalf("SetWeights: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != ChangeWeights {
		t.Fatalf("changes = %+v, want one weights change", changes)
	}
	got := seen[0]
	if got.Magnitude != [4]int{80, 20, 0, 100} || got.Phase != [4]int{10, 20, 30, 0} {
		t.Fatalf("observer saw %+v", got)
	}
	if got.Real != [4]int{0, 0, 0, 9} {
		t.Fatalf("untouched row changed: %v", got.Real)
	}

	if err := m.SetWeights(map[domain.Channel][domain.SlotCount]int{domain.ChannelMagnitude: {80, 20, 0, 100}}); err != nil {
		t.Fatalf("SetWeights: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("no-op bulk write notified")
	}
	if err := m.SetWeights(map[domain.Channel][domain.SlotCount]int{"mag": {1}}); !errors.Is(err, domain.ErrInvalidChannel) {
		t.Fatalf("bad channel err = %v", err)
	}
	if m.Snapshot().Weights != got {
		t.Fatalf("rejected bulk write changed the matrix")
	}
}

func TestSetModesIsOneUpdate(t *testing.T) {
	m := NewModel()
	var changes []Change
	m.Observe(func(c Change) { changes = append(changes, c) })

	if err := m.SetModes(domain.MixModeRealImag, domain.ProcessingWhole); err != nil {
		t.Fatalf("SetModes: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != ChangeModes {
		t.Fatalf("changes = %+v", changes)
	}
	s := m.Snapshot()
	if s.MixMode != domain.MixModeRealImag || s.Processing != domain.ProcessingWhole {
		t.Fatalf("modes = %s/%s", s.MixMode, s.Processing)
	}

	if err := m.SetModes("", domain.ProcessingRegion); err != nil {
		t.Fatalf("SetModes: %v", err)
	}
	if len(changes) != 2 || changes[1].Kind != ChangeProcessingMode || m.Snapshot().MixMode != domain.MixModeRealImag {
		t.Fatalf("changes = %+v", changes)
	}
	if err := m.SetModes("bogus", domain.ProcessingWhole); err == nil {
		t.Fatalf("bad mix mode accepted")
	}
	if m.Snapshot().Processing != domain.ProcessingRegion || len(changes) != 2 {
		t.Fatalf("rejected SetModes applied part of the update")
	}
}
