package integrity

import (
	"math"
	"testing"

	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

func buffer(vals []float32) *model.ExtractedBuffer {
	return &model.ExtractedBuffer{Shape: []int{len(vals)}, Data: vals}
}

func TestRecompute(t *testing.T) {
	buf := buffer([]float32{1, 2, 3, 4, 5})

	tests := []struct {
		name    string
		claims  map[string]float64
		verdict Verdict
	}{
		{"mean within tolerance", map[string]float64{"mean": 3.0}, Pass},
		{"mean out of tolerance", map[string]float64{"mean": 10.0}, Fail},
		{"unknown metric", map[string]float64{"skew": 1.0}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Recompute(buf, tt.claims, 0.05)
			if len(results) != 1 {
				t.Fatalf("got %d results, want 1", len(results))
			}
			if results[0].Verdict != tt.verdict {
				t.Errorf("verdict = %v, want %v", results[0].Verdict, tt.verdict)
			}
		})
	}
}

func TestVerifyCoordinates(t *testing.T) {
	survey := model.Survey{
		Inline: model.Axis{Name: model.AxisInline, CoordMin: 1000, CoordMax: 2000, SampleCount: 1001},
	}

	out := VerifyCoordinates(survey, map[model.AxisName]float64{
		model.AxisInline: 1500,
	})
	if !out[model.AxisInline].Valid {
		t.Errorf("expected 1500 within [1000,2000] to be valid, got %+v", out[model.AxisInline])
	}

	out = VerifyCoordinates(survey, map[model.AxisName]float64{
		model.AxisInline: 2500,
	})
	if out[model.AxisInline].Valid {
		t.Errorf("expected 2500 above max 2000 to be invalid")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	b1 := buffer([]float32{1, 2, 3})
	b2 := buffer([]float32{1, 2, 3})
	b3 := buffer([]float32{1, 2, 4})

	f1 := Fingerprint(b1)
	f2 := Fingerprint(b2)
	f3 := Fingerprint(b3)

	if f1.Hash != f2.Hash {
		t.Errorf("identical buffers produced different hashes: %s vs %s", f1.Hash, f2.Hash)
	}
	if f1.Hash == f3.Hash {
		t.Errorf("different buffers produced the same hash")
	}
}

func TestCheckStatisticalConsistency(t *testing.T) {
	tests := []struct {
		name       string
		stats      model.Statistics
		consistent bool
	}{
		{
			name: "consistent",
			stats: model.Statistics{
				Min: -100, Max: 100, Mean: 0, Median: 0,
				Std: 20, RMS: 20, P10: -50, P25: -20, P50: 0, P75: 20, P90: 50,
			},
			consistent: true,
		},
		{
			name: "mean outside bounds",
			stats: model.Statistics{
				Min: -100, Max: 100, Mean: 500, Median: 0,
				Std: 20, RMS: 20, P10: -50, P25: -20, P50: 0, P75: 20, P90: 50,
			},
			consistent: false,
		},
		{
			name: "negative std",
			stats: model.Statistics{
				Min: -100, Max: 100, Mean: 0, Median: 0,
				Std: -5, RMS: 20, P10: -50, P25: -20, P50: 0, P75: 20, P90: 50,
			},
			consistent: false,
		},
		{
			name: "percentiles not monotonic",
			stats: model.Statistics{
				Min: -100, Max: 100, Mean: 0, Median: 0,
				Std: 20, RMS: 20, P10: -50, P25: -20, P50: 0, P75: -5, P90: 50,
			},
			consistent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := CheckStatisticalConsistency(tt.stats)
			if report.Consistent != tt.consistent {
				t.Errorf("Consistent = %v, want %v (rules: %+v)", report.Consistent, tt.consistent, report.Rules)
			}
			if !tt.consistent && report.OverallSeverity == "" {
				t.Errorf("expected non-empty overall severity for inconsistent report")
			}
		})
	}
}

func TestCheckCrossSurveyCompat(t *testing.T) {
	tests := []struct {
		name      string
		context   string
		surveyIDs []string
		wantWarn  bool
	}{
		{"raw amplitude comparison across surveys", "compare the amplitude of survey A versus survey B", []string{"a", "b"}, true},
		{"single survey", "compare amplitude within survey A", []string{"a"}, false},
		{"normalized comparison is safe", "compare the rms-normalized amplitude of survey A versus survey B", []string{"a", "b"}, false},
		{"no amplitude keyword", "compare the region of survey A versus survey B", []string{"a", "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warn := CheckCrossSurveyCompat(tt.context, tt.surveyIDs)
			if (warn != nil) != tt.wantWarn {
				t.Errorf("CheckCrossSurveyCompat() warning = %v, want warning = %v", warn, tt.wantWarn)
			}
		})
	}
}

func TestNormalizeByRMS(t *testing.T) {
	vals := []float64{-4, -2, 0, 2, 4}
	out, result := NormalizeByRMS(vals)

	if len(out) != len(vals) {
		t.Fatalf("got %d values, want %d", len(out), len(vals))
	}
	if result.NormalizedStats.RMS < 0.99 || result.NormalizedStats.RMS > 1.01 {
		t.Errorf("normalized RMS = %v, want ~1.0", result.NormalizedStats.RMS)
	}
}

func TestValidateMetadataClaim(t *testing.T) {
	survey := model.Survey{
		ID:     "gulf_mexico_2023",
		Name:   "Gulf of Mexico 3D Survey 2023",
		Region: "Gulf of Mexico",
		Aliases: map[string]string{
			"legacy_name": "GOM23",
		},
	}

	tests := []struct {
		name       string
		field      string
		claimed    string
		wantStatus ClaimStatus
	}{
		{"exact match", "region", "Gulf of Mexico", StatusPass},
		{"search path substring", "name", "Gulf of Mexico", StatusPartial},
		{"alias match", "legacy_name", "GOM23", StatusPass},
		{"unknown field", "nonexistent", "anything", StatusNotFound},
		{"no overlap", "region", "North Sea", StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateMetadataClaim(survey, tt.field, tt.claimed)
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v (result: %+v)", result.Status, tt.wantStatus, result)
			}
		})
	}

	t.Run("unknown field suggests nearby names", func(t *testing.T) {
		result := ValidateMetadataClaim(survey, "regio", "Gulf of Mexico")
		if result.Status != StatusNotFound {
			t.Fatalf("Status = %v, want NOT_FOUND", result.Status)
		}
		if len(result.Suggestions) == 0 {
			t.Error("expected at least one suggested field name")
		}
	})
}

func TestAggregateClaimScore(t *testing.T) {
	results := map[string]ClaimResult{
		"region": {Status: StatusPass, Confidence: 1.0},
		"name":   {Status: StatusPartial, Confidence: 0.85},
		"crs":    {Status: StatusFail, Confidence: 0.1},
	}
	got := AggregateClaimScore(results)
	want := (1.0 + 0.5*0.85 + 0) / 3
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("AggregateClaimScore = %v, want %v", got, want)
	}

	if AggregateClaimScore(nil) != 0 {
		t.Error("AggregateClaimScore(nil) should be 0")
	}
}
