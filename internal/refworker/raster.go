package refworker

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeGray decodes any registered image format into 8-bit luminance.
func decodeGray(data []byte) (*image.Gray, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if g, ok := src.(*image.Gray); ok {
		return g, nil
	}
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	return gray, nil
}

// resampleGrid scales gray to an n×n grid of intensities.
func resampleGrid(gray *image.Gray, n int) []float64 {
	dst := image.NewGray(image.Rect(0, 0, n, n))
	draw.CatmullRom.Scale(dst, dst.Bounds(), gray, gray.Bounds(), draw.Src, nil)
	grid := make([]float64, n*n)
	for y := 0; y < n; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+n]
		for x, v := range row {
			grid[y*n+x] = float64(v)
		}
	}
	return grid
}

// normalize min-max scales values onto 0..65535. A flat or non-finite input
// yields an all-black image.
func normalize(values []float64, w, h int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) || hi == lo {
		return img
	}
	scale := 65535 / (hi - lo)
	for i, v := range values {
		img.SetGray16(i%w, i/w, color.Gray16{Y: uint16((v - lo) * scale)})
	}
	return img
}

// encodePNG renders values (row-major w×h) as an 8-bit grayscale PNG of
// outW×outH pixels.
func encodePNG(values []float64, w, h, outW, outH int) ([]byte, error) {
	src := normalize(values, w, h)
	dst := image.NewGray(image.Rect(0, 0, outW, outH))
	if outW == w && outH == h {
		draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
