package model

import "time"

// ExtractionKind selects the shape of an extraction request.
type ExtractionKind string

const (
	KindInline     ExtractionKind = "inline"
	KindCrossline  ExtractionKind = "crossline"
	KindTimeslice  ExtractionKind = "timeslice"
	KindSubvolume  ExtractionKind = "subvolume"
)

// Range is an inclusive user-facing coordinate range on one axis.
type Range struct {
	Lo float64
	Hi float64
}

// IndexRange is a half-open internal index range [Lo, Hi).
type IndexRange struct {
	Lo int
	Hi int
}

// Len reports the number of indices covered.
func (r IndexRange) Len() int {
	if r.Hi <= r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// ExtractionRequest is the normalized shape of any extraction: a single
// coordinate selector for slices, or sub-ranges on every axis for a
// subvolume.
type ExtractionRequest struct {
	SurveyID  string
	Kind      ExtractionKind
	Selector  float64            // coordinate value for inline/crossline/timeslice
	SubRanges map[AxisName]Range // present for subvolume, optional override otherwise
}

// ExtractedBuffer is a dense float array with rank matching the request
// kind: 2 for slices, 3 for subvolumes. Values are laid out row-major in
// Shape order. NoValue, when non-nil, is the channel-declared sentinel
// used (alongside NaN) to mark missing samples.
type ExtractedBuffer struct {
	Shape   []int
	Data    []float32
	NoValue *float32
}

// IsMissing reports whether v should be treated as a missing sample: NaN,
// or within tight tolerance of the declared sentinel.
func (b *ExtractedBuffer) IsMissing(v float32) bool {
	if v != v { // NaN
		return true
	}
	if b.NoValue == nil {
		return false
	}
	d := v - *b.NoValue
	if d < 0 {
		d = -d
	}
	return d < 1e-4
}

// Statistics summarizes an extracted buffer's non-null samples.
type Statistics struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Std         float64 `json:"std"`
	RMS         float64 `json:"rms"`
	P10         float64 `json:"p10"`
	P25         float64 `json:"p25"`
	P50         float64 `json:"p50"`
	P75         float64 `json:"p75"`
	P90         float64 `json:"p90"`
	SampleCount int     `json:"sample_count"`
	Units       string  `json:"units"`
}

// ProvenanceSource identifies where an extracted buffer's bytes came from.
type ProvenanceSource struct {
	FilePath string `json:"file_path"`
	SurveyID string `json:"survey_id"`
}

// Fingerprint is the hashed identity of a buffer's byte layout.
type Fingerprint struct {
	Hash  string `json:"hash"`
	Shape []int  `json:"shape"`
	Dtype string `json:"dtype"`
}

// ProvenanceRecord is attached to any response that includes raw data.
// Immutable once created.
type ProvenanceRecord struct {
	Timestamp   time.Time              `json:"timestamp"`
	Source      ProvenanceSource       `json:"source"`
	Parameters  map[string]interface{} `json:"parameters"`
	Fingerprint Fingerprint            `json:"fingerprint"`
	Statistics  Statistics             `json:"statistics"`
}
