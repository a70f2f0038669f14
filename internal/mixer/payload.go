package mixer

import "studio/internal/domain"

// BuildJobRequest turns a configuration snapshot into the request sent to the
// worker. It is pure: equal snapshots give equal requests.
//
// The region anchor is slot 1's position. In whole mode the region is the
// full frame ({100,100,inner}) regardless of the stored geometry, which stays
// untouched for when region mode comes back.
func BuildJobRequest(s Snapshot) domain.JobRequest {
	anchor := s.Positions[0]
	region := domain.RegionDescriptor{
		WidthPct:  s.Geometry.WidthPct,
		HeightPct: s.Geometry.HeightPct,
		Kind:      s.Geometry.Kind,
		XPct:      anchor.XPct,
		YPct:      anchor.YPct,
	}
	if s.Processing == domain.ProcessingWhole {
		region.WidthPct = domain.MaxRegionSize
		region.HeightPct = domain.MaxRegionSize
		region.Kind = domain.RegionInner
	}
	return domain.JobRequest{
		MixMode:   s.MixMode,
		Weights:   s.Weights,
		Region:    region,
		Positions: s.Positions,
	}
}
