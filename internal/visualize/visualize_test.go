package visualize

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

func TestClipRange_Symmetric(t *testing.T) {
	data := []float32{-10, -5, 0, 5, 10}
	vmin, vmax := ClipRange(data, 100)
	if vmin != -vmax {
		t.Errorf("clip range not symmetric: [%v, %v]", vmin, vmax)
	}
}

func TestClipRange_AllNaN(t *testing.T) {
	nan := float32(0)
	nan /= nan
	vmin, vmax := ClipRange([]float32{nan, nan}, 99)
	if vmin != 0 || vmax != 1 {
		t.Errorf("expected default [0,1] for all-NaN input, got [%v, %v]", vmin, vmax)
	}
}

func TestRenderSlice_ProducesValidPNG(t *testing.T) {
	buf := &model.ExtractedBuffer{
		Shape: []int{4, 4},
		Data:  []float32{1, 2, 3, 4, -1, -2, -3, -4, 0, 0, 0, 0, 5, -5, 5, -5},
	}

	for _, cmap := range []Colormap{ColormapSeismic, ColormapGray, ColormapPetrel} {
		png_, err := RenderSlice(buf, cmap, 99)
		if err != nil {
			t.Fatalf("RenderSlice(%v) error: %v", cmap, err)
		}
		img, err := png.Decode(bytes.NewReader(png_))
		if err != nil {
			t.Fatalf("decode failed for %v: %v", cmap, err)
		}
		b := img.Bounds()
		if b.Dx() != 4 || b.Dy() != 4 {
			t.Errorf("dims = %dx%d, want 4x4", b.Dx(), b.Dy())
		}
	}
}

func TestRenderSlice_RejectsNon2D(t *testing.T) {
	buf := &model.ExtractedBuffer{Shape: []int{2, 2, 2}, Data: make([]float32, 8)}
	if _, err := RenderSlice(buf, ColormapSeismic, 99); err == nil {
		t.Error("expected error for non-2D buffer")
	}
}

func noisySlice(dim int) *model.ExtractedBuffer {
	data := make([]float32, dim*dim)
	for i := range data {
		row, col := i/dim, i%dim
		data[i] = float32(math.Sin(float64(row)*0.3) * math.Cos(float64(col)*0.7) * 100)
	}
	return &model.ExtractedBuffer{Shape: []int{dim, dim}, Data: data}
}

func TestRenderSliceBudgeted_UnderBudgetSkipsDownsampling(t *testing.T) {
	buf := noisySlice(16)
	data, downsampled, scale, err := RenderSliceBudgeted(buf, ColormapSeismic, 98, MaxImageBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if downsampled {
		t.Error("expected no downsampling when already under budget")
	}
	if scale != 1 {
		t.Errorf("scale = %v, want 1", scale)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
}

func TestRenderSliceBudgeted_DownsamplesOversizedImage(t *testing.T) {
	buf := noisySlice(400)
	full, err := RenderSlice(buf, ColormapSeismic, 98)
	if err != nil {
		t.Fatalf("RenderSlice error: %v", err)
	}
	tightBudget := len(full) / 4

	data, downsampled, scale, err := RenderSliceBudgeted(buf, ColormapSeismic, 98, tightBudget)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !downsampled {
		t.Fatal("expected downsampling for an oversized image")
	}
	if scale >= 1 {
		t.Errorf("scale = %v, want < 1", scale)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if img.Bounds().Dx() >= 400 || img.Bounds().Dy() >= 400 {
		t.Error("expected smaller dimensions after downsampling")
	}
}
