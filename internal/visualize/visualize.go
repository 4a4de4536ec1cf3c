// Package visualize implements the minimal slice of the visualization
// collaborator the Tool Server calls through for image-producing extraction
// tools: symmetric percentile clipping, a small set of named seismic
// colormaps, PNG encoding, and size-budget enforcement via downsampling.
//
// No third-party plotting library appears anywhere in the dependency pack,
// so rasterizing is built on the standard library's image/image/png — see
// DESIGN.md for that tradeoff. Budget enforcement reuses the pack's own
// disintegration/imaging for resampling rather than giving up on oversized
// renders.
package visualize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

// Colormap names a supported palette.
type Colormap string

const (
	ColormapSeismic Colormap = "seismic" // blue-white-red, centered on zero
	ColormapGray    Colormap = "gray"
	ColormapPetrel  Colormap = "petrel" // dark blue -> cyan -> white -> yellow -> dark red
)

// ClipRange computes a symmetric amplitude clipping range around zero at
// the given percentile of absolute values, ignoring NaN samples.
func ClipRange(data []float32, percentile float64) (float64, float64) {
	abs := make([]float64, 0, len(data))
	for _, v := range data {
		if v != v { // NaN
			continue
		}
		f := float64(v)
		if f < 0 {
			f = -f
		}
		abs = append(abs, f)
	}
	if len(abs) == 0 {
		return 0, 1
	}
	sort.Float64s(abs)
	absMax := percentileOf(abs, percentile)
	return -absMax, absMax
}

func percentileOf(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := (p / 100.0) * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// colorFor maps a normalized value in [-1, 1] to an RGB color under the
// given colormap.
func colorFor(cmap Colormap, norm float64) color.RGBA {
	if norm < -1 {
		norm = -1
	}
	if norm > 1 {
		norm = 1
	}
	switch cmap {
	case ColormapGray:
		g := uint8((norm + 1) / 2 * 255)
		return color.RGBA{R: g, G: g, B: g, A: 255}
	case ColormapPetrel:
		return petrelColor(norm)
	default:
		return seismicColor(norm)
	}
}

// seismicColor is a blue-white-red diverging map: blue at -1, white at 0,
// red at +1.
func seismicColor(norm float64) color.RGBA {
	t := (norm + 1) / 2 // 0..1
	if t < 0.5 {
		f := t / 0.5
		return lerpColor(color.RGBA{B: 255, A: 255}, color.RGBA{R: 255, G: 255, B: 255, A: 255}, f)
	}
	f := (t - 0.5) / 0.5
	return lerpColor(color.RGBA{R: 255, G: 255, B: 255, A: 255}, color.RGBA{R: 255, A: 255}, f)
}

// petrelColor walks a 5-stop gradient: dark blue, cyan, white, yellow, dark red.
func petrelColor(norm float64) color.RGBA {
	stops := []color.RGBA{
		{R: 0, G: 0, B: 128, A: 255},
		{R: 0, G: 255, B: 255, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
		{R: 255, G: 255, B: 0, A: 255},
		{R: 128, G: 0, B: 0, A: 255},
	}
	t := (norm + 1) / 2 * float64(len(stops)-1)
	i := int(math.Floor(t))
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	if i < 0 {
		i = 0
	}
	return lerpColor(stops[i], stops[i+1], t-float64(i))
}

func lerpColor(a, b color.RGBA, f float64) color.RGBA {
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + f*(float64(y)-float64(x))) }
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

// RenderSlice rasterizes a 2-D extracted buffer (dim0 x dim1, row-major) as
// a PNG, clipping amplitudes at the given percentile and mapping through
// the named colormap. One pixel per sample; callers needing a display size
// independent of sample count should resize the returned image themselves.
func RenderSlice(buf *model.ExtractedBuffer, cmap Colormap, clipPercentile float64) ([]byte, error) {
	if len(buf.Shape) != 2 {
		return nil, fmt.Errorf("visualize: RenderSlice requires a 2-D buffer, got shape %v", buf.Shape)
	}
	dim0, dim1 := buf.Shape[0], buf.Shape[1]
	vmin, vmax := ClipRange(buf.Data, clipPercentile)
	span := vmax - vmin
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, dim1, dim0))
	for i := 0; i < dim0; i++ {
		for j := 0; j < dim1; j++ {
			v := float64(buf.Data[i*dim1+j])
			norm := 2*(v-vmin)/span - 1
			img.Set(j, i, colorFor(cmap, norm))
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// MaxImageBytes is the default size budget an encoded image should stay
// under, matching the Tool Server's target of <=800KB per image.
const MaxImageBytes = 800 * 1024

// minBudgetDim is the floor width/height RenderSliceBudgeted will downsample
// to before giving up; below this a seismic section stops being legible.
const minBudgetDim = 64

// RenderSliceBudgeted renders a slice like RenderSlice, then downsamples
// with Lanczos resampling and re-encodes until the PNG fits under maxBytes
// (or minBudgetDim is reached). Returns the final PNG, whether it had to be
// downsampled, and the scale factor applied (1.0 if not downsampled).
func RenderSliceBudgeted(buf *model.ExtractedBuffer, cmap Colormap, clipPercentile float64, maxBytes int) (data []byte, downsampled bool, scale float64, err error) {
	data, err = RenderSlice(buf, cmap, clipPercentile)
	if err != nil {
		return nil, false, 1, err
	}
	if maxBytes <= 0 || len(data) <= maxBytes {
		return data, false, 1, nil
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, 1, fmt.Errorf("visualize: decode for downsampling: %w", err)
	}

	scale = 1.0
	for {
		scale *= 0.7
		w := int(float64(img.Bounds().Dx()) * scale)
		h := int(float64(img.Bounds().Dy()) * scale)
		if w < minBudgetDim || h < minBudgetDim {
			break
		}

		resized := imaging.Resize(img, w, h, imaging.Lanczos)
		var out bytes.Buffer
		if err := png.Encode(&out, resized); err != nil {
			return nil, false, 1, err
		}
		data = out.Bytes()
		if len(data) <= maxBytes {
			return data, true, scale, nil
		}
	}
	return data, true, scale, nil
}
