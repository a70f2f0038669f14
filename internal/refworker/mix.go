package refworker

import (
	"context"
	"errors"
	"math/cmplx"

	"studio/internal/domain"
	"studio/internal/worker"
)

// ErrNoSources is returned when a mix is requested before any slot has a
// transformed image.
var ErrNoSources = errors.New("no processed images ready for mixing")

// layer is one slot's contribution to the mix.
type layer struct {
	slot     domain.SlotID
	spectrum *Spectrum
}

// mixSpectra combines the layers additively: a magnitude/phase layer built
// from the weighted magnitudes and phases, plus a real/imaginary layer built
// from the weighted real and imaginary parts. Either layer is skipped when
// all of its weights are zero. The sum is then masked by the region.
func mixSpectra(layers []layer, p worker.MixPayload, n int, progress func(int)) ([]complex128, error) {
	if len(layers) == 0 {
		return nil, ErrNoSources
	}
	total := make([]complex128, n*n)

	if anyWeight(layers, p.MagWeights, p.PhaseWeights) {
		mag := make([]float64, n*n)
		phase := make([]float64, n*n)
		for _, l := range layers {
			accumulate(mag, l.spectrum, domain.ChannelMagnitude, worker.Weight(p.MagWeights, l.slot))
			accumulate(phase, l.spectrum, domain.ChannelPhase, worker.Weight(p.PhaseWeights, l.slot))
		}
		for i := range total {
			total[i] += cmplx.Rect(mag[i], phase[i])
		}
	}
	progress(30)

	if anyWeight(layers, p.RealWeights, p.ImagWeights) {
		re := make([]float64, n*n)
		im := make([]float64, n*n)
		for _, l := range layers {
			accumulate(re, l.spectrum, domain.ChannelReal, worker.Weight(p.RealWeights, l.slot))
			accumulate(im, l.spectrum, domain.ChannelImaginary, worker.Weight(p.ImagWeights, l.slot))
		}
		for i := range total {
			total[i] += complex(re[i], im[i])
		}
	}
	progress(50)

	applyMask(total, n, p.Region)
	progress(60)
	return total, nil
}

func anyWeight(layers []layer, a, b map[string]float64) bool {
	for _, l := range layers {
		if worker.Weight(a, l.slot) > 0 || worker.Weight(b, l.slot) > 0 {
			return true
		}
	}
	return false
}

func accumulate(dst []float64, s *Spectrum, ch domain.Channel, w float64) {
	if w <= 0 {
		return
	}
	for i, v := range s.Component(ch) {
		dst[i] += w * v
	}
}

// applyMask keeps the rectangle (inner) or everything but it (outer). The
// rectangle is centered on (x, y) and sized in percent of the grid.
func applyMask(data []complex128, n int, r worker.RegionPayload) {
	rw := int(float64(n) * r.Width / 100)
	rh := int(float64(n) * r.Height / 100)
	cx := int(float64(n) * r.X / 100)
	cy := int(float64(n) * r.Y / 100)
	x0, x1 := max(0, cx-rw/2), min(n, cx+rw/2)
	y0, y1 := max(0, cy-rh/2), min(n, cy+rh/2)
	inner := domain.NormalizeRegionKind(r.Type) == domain.RegionInner

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			inside := x >= x0 && x < x1 && y >= y0 && y < y1
			if inside != inner {
				data[y*n+x] = 0
			}
		}
	}
}

// reconstruct inverts the mixed spectrum and renders it at the reference
// image's size.
func reconstruct(ctx context.Context, mixed []complex128, n, width, height int, progress func(int)) ([]byte, error) {
	spatial, err := Inverse(ctx, mixed, n)
	if err != nil {
		return nil, err
	}
	progress(90)
	return encodePNG(spatial, n, n, width, height)
}
