package refworker

import (
	"context"
	"math"
	"math/cmplx"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"

	"studio/internal/domain"
)

// Spectrum is the centered 2-D Fourier transform of an n×n grayscale grid,
// stored row-major with the zero frequency at (n/2, n/2).
type Spectrum struct {
	n     int
	coeff []complex128
}

// Size returns the edge length of the square grid.
func (s *Spectrum) Size() int { return s.n }

// Forward transforms a row-major n×n grid of intensities.
func Forward(ctx context.Context, grid []float64, n int) (*Spectrum, error) {
	data := make([]complex128, len(grid))
	for i, v := range grid {
		data[i] = complex(v, 0)
	}
	if err := transform2D(ctx, data, n, false); err != nil {
		return nil, err
	}
	return &Spectrum{n: n, coeff: shift(data, n, true)}, nil
}

// Inverse turns a centered spectrum back into the real part of the spatial
// grid. Non-finite coefficients are treated as zero.
func Inverse(ctx context.Context, centered []complex128, n int) ([]float64, error) {
	data := shift(centered, n, false)
	for i, c := range data {
		if cmplx.IsNaN(c) || cmplx.IsInf(c) {
			data[i] = 0
		}
	}
	if err := transform2D(ctx, data, n, true); err != nil {
		return nil, err
	}
	out := make([]float64, len(data))
	scale := 1 / float64(n*n)
	for i, c := range data {
		out[i] = real(c) * scale
	}
	return out, nil
}

// Component returns the linear values of one channel, used for mixing.
func (s *Spectrum) Component(ch domain.Channel) []float64 {
	out := make([]float64, len(s.coeff))
	for i, c := range s.coeff {
		switch ch {
		case domain.ChannelMagnitude:
			out[i] = cmplx.Abs(c)
		case domain.ChannelPhase:
			out[i] = cmplx.Phase(c)
		case domain.ChannelReal:
			out[i] = real(c)
		case domain.ChannelImaginary:
			out[i] = imag(c)
		}
	}
	return out
}

// View returns the channel as displayed: magnitude on a decibel scale, the
// others as they are.
func (s *Spectrum) View(ch domain.Channel) []float64 {
	out := s.Component(ch)
	if ch == domain.ChannelMagnitude {
		for i, v := range out {
			if v == 0 {
				v = 1e-12
			}
			out[i] = 20 * math.Log10(v)
		}
	}
	return out
}

// shift reorders a row-major n×n grid between transform order and centered
// order along both axes.
func shift(src []complex128, n int, center bool) []complex128 {
	fft := fourier.NewCmplxFFT(n)
	idx := fft.ShiftIdx
	if !center {
		idx = fft.UnshiftIdx
	}
	dst := make([]complex128, len(src))
	for y := 0; y < n; y++ {
		sy := idx(y)
		for x := 0; x < n; x++ {
			dst[y*n+x] = src[sy*n+idx(x)]
		}
	}
	return dst
}

// transform2D runs unnormalized 1-D transforms over every row and then every
// column, in place. Rows are split between goroutines; each owns its own
// CmplxFFT since the type keeps scratch buffers.
func transform2D(ctx context.Context, data []complex128, n int, inverse bool) error {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	pass := func(column bool) error {
		g, gctx := errgroup.WithContext(ctx)
		chunk := (n + workers - 1) / workers
		for start := 0; start < n; start += chunk {
			start, end := start, min(start+chunk, n)
			g.Go(func() error {
				fft := fourier.NewCmplxFFT(n)
				line := make([]complex128, n)
				for k := start; k < end; k++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					for i := 0; i < n; i++ {
						line[i] = data[at(k, i, n, column)]
					}
					if inverse {
						fft.Sequence(line, line)
					} else {
						fft.Coefficients(line, line)
					}
					for i := 0; i < n; i++ {
						data[at(k, i, n, column)] = line[i]
					}
				}
				return nil
			})
		}
		return g.Wait()
	}
	if err := pass(false); err != nil {
		return err
	}
	return pass(true)
}

// at indexes element i of row k, or of column k when column is set.
func at(k, i, n int, column bool) int {
	if column {
		return i*n + k
	}
	return k*n + i
}
