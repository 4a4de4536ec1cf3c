package volume

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/vdsgateway/internal/apierr"
	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

type stubLookup struct {
	survey model.Survey
	err    error
}

func (s stubLookup) Get(ctx context.Context, surveyID string) (model.Survey, error) {
	return s.survey, s.err
}

func testSurvey() model.Survey {
	return model.Survey{
		ID:        "s1",
		Inline:    model.Axis{Name: model.AxisInline, CoordMin: 1000, CoordMax: 3000, SampleCount: 201},
		Crossline: model.Axis{Name: model.AxisCrossline, CoordMin: 500, CoordMax: 1500, SampleCount: 101},
		Sample:    model.Axis{Name: model.AxisSample, CoordMin: 0, CoordMax: 2000, SampleCount: 501},
	}
}

func TestAccessor_Open_CachesHandleIdentity(t *testing.T) {
	a := New(stubLookup{survey: testSurvey()})
	h1, err := a.Open(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := a.Open(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 != h2 {
		t.Error("expected the same handle pointer on repeated Open calls")
	}
}

func TestAccessor_Open_RejectsInvalidSurvey(t *testing.T) {
	bad := testSurvey()
	bad.Inline.SampleCount = 1 // violates Axis.Validate's >= 2 invariant
	a := New(stubLookup{survey: bad})

	_, err := a.Open(context.Background(), "s1")
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if apierr.KindOf(err) != apierr.ExtractionFailed {
		t.Errorf("kind = %v, want ExtractionFailed", apierr.KindOf(err))
	}
}

func TestAccessor_Extract_InlineSliceShapeAndDeterminism(t *testing.T) {
	survey := testSurvey()
	a := New(stubLookup{survey: survey})
	h, err := a.Open(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := model.ExtractionRequest{SurveyID: "s1", Kind: model.KindInline, Selector: 1500}
	buf1, stats1, err := a.Extract(context.Background(), h, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf1.Shape) != 2 || buf1.Shape[0] != survey.Crossline.SampleCount || buf1.Shape[1] != survey.Sample.SampleCount {
		t.Errorf("shape = %v, want [%d %d]", buf1.Shape, survey.Crossline.SampleCount, survey.Sample.SampleCount)
	}
	if len(buf1.Data) != buf1.Shape[0]*buf1.Shape[1] {
		t.Errorf("data length = %d, want %d", len(buf1.Data), buf1.Shape[0]*buf1.Shape[1])
	}

	buf2, stats2, err := a.Extract(context.Background(), h, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range buf1.Data {
		if buf1.Data[i] != buf2.Data[i] {
			t.Fatalf("extraction is not deterministic at index %d: %v != %v", i, buf1.Data[i], buf2.Data[i])
			break
		}
	}
	if stats1 != stats2 {
		t.Error("statistics should be identical for a repeated identical extraction")
	}
}

func TestAccessor_Extract_UnknownKindIsInvalidArgument(t *testing.T) {
	a := New(stubLookup{survey: testSurvey()})
	h, _ := a.Open(context.Background(), "s1")

	_, _, err := a.Extract(context.Background(), h, model.ExtractionRequest{Kind: model.ExtractionKind("bogus")})
	if err == nil {
		t.Fatal("expected an error for an unknown extraction kind")
	}
	if apierr.KindOf(err) != apierr.InvalidArgument {
		t.Errorf("kind = %v, want InvalidArgument", apierr.KindOf(err))
	}
}

func TestAccessor_Extract_SubvolumeRespectsSubRanges(t *testing.T) {
	survey := testSurvey()
	a := New(stubLookup{survey: survey})
	h, _ := a.Open(context.Background(), "s1")

	req := model.ExtractionRequest{
		Kind: model.KindSubvolume,
		SubRanges: map[model.AxisName]model.Range{
			model.AxisInline:    {Lo: 1000, Hi: 1200},
			model.AxisCrossline: {Lo: 500, Hi: 700},
			model.AxisSample:    {Lo: 0, Hi: 400},
		},
	}
	buf, _, err := a.Extract(context.Background(), h, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf.Shape) != 3 {
		t.Fatalf("shape = %v, want 3 dims", buf.Shape)
	}
	if len(buf.Data) != buf.Shape[0]*buf.Shape[1]*buf.Shape[2] {
		t.Errorf("data length = %d, want product of shape %v", len(buf.Data), buf.Shape)
	}
}

// TestResolveIndexRange_SizingFormula exercises the index-range sizing rule
// from the coordinate->index conversion: hi = clamp(round(hi)) + 1, so a
// range's length is clamp(round(hi)) + 1 - clamp(round(lo)).
func TestResolveIndexRange_SizingFormula(t *testing.T) {
	axis := model.Axis{Name: model.AxisInline, CoordMin: 0, CoordMax: 1000, SampleCount: 101} // step 10

	tests := []struct {
		name    string
		r       model.Range
		wantLen int
	}{
		{"exact bounds", model.Range{Lo: 0, Hi: 1000}, 101},
		{"sub-range aligned to samples", model.Range{Lo: 100, Hi: 300}, 21},
		{"single-sample range rounds to at least one sample", model.Range{Lo: 500, Hi: 502}, 1},
		{"hi beyond axis max clamps to last index", model.Range{Lo: 900, Hi: 5000}, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idxRange, err := resolveIndexRange(axis, tt.r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if idxRange.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d (range %+v)", idxRange.Len(), tt.wantLen, idxRange)
			}
		})
	}
}

func TestResolveIndexRange_EmptySpanIsInvalidArgument(t *testing.T) {
	axis := model.Axis{Name: model.AxisInline, CoordMin: 0, CoordMax: 1000, SampleCount: 101}
	_, err := resolveIndexRange(axis, model.Range{Lo: 509, Hi: 501})
	if err == nil {
		t.Fatal("expected an error for a range collapsing to zero samples")
	}
	if apierr.KindOf(err) != apierr.InvalidArgument {
		t.Errorf("kind = %v, want InvalidArgument", apierr.KindOf(err))
	}
}

func TestExtractedBuffer_IsMissing_NaNAndSentinel(t *testing.T) {
	sentinel := float32(-999.25)
	buf := &model.ExtractedBuffer{NoValue: &sentinel}

	nan := float32(0)
	nan /= nan
	if !buf.IsMissing(nan) {
		t.Error("NaN should always be treated as missing")
	}
	if !buf.IsMissing(-999.25) {
		t.Error("exact sentinel value should be treated as missing")
	}
	if !buf.IsMissing(-999.25006) {
		t.Error("sentinel value within tolerance should be treated as missing")
	}
	if buf.IsMissing(1234.5) {
		t.Error("an ordinary sample should not be treated as missing")
	}
}

func TestComputeStatistics_ExcludesNullAndNaNSamples(t *testing.T) {
	sentinel := float32(-999.25)
	nan := float32(0)
	nan /= nan

	buf := &model.ExtractedBuffer{
		Shape:   []int{6},
		Data:    []float32{1, 2, nan, -999.25, 3, 4},
		NoValue: &sentinel,
	}
	stats := computeStatistics(buf)
	if stats.SampleCount != 4 {
		t.Fatalf("sample count = %d, want 4 (nan + sentinel excluded)", stats.SampleCount)
	}
	if stats.Min != 1 || stats.Max != 4 {
		t.Errorf("min/max = %v/%v, want 1/4", stats.Min, stats.Max)
	}
}

func TestStatisticsOf_EmptyInput(t *testing.T) {
	stats := StatisticsOf(nil)
	if stats.SampleCount != 0 {
		t.Errorf("sample count = %d, want 0", stats.SampleCount)
	}
}
