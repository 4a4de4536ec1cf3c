// Package volume implements Volume Access (C1): translating coordinate-space
// extraction requests against a survey into dense typed buffers with
// statistics, and caching opened handles process-wide.
//
// No native seismic volume library ships for Go in this dependency pack, so
// extraction here is backed by a deterministic synthetic generator seeded by
// survey id and coordinates — the same role the Python original's "demo
// mode" plays when openvds itself is unavailable. A real backend would
// satisfy the same Access interface and swap in behind it.
package volume

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nextlevelbuilder/vdsgateway/internal/apierr"
	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

// SurveyLookup is the subset of the Metadata Index Client Volume Access
// needs: resolving a survey id to its descriptor (axes, path, CRS).
type SurveyLookup interface {
	Get(ctx context.Context, surveyID string) (model.Survey, error)
}

// Handle is an opened, cached survey reference. Identity is stable across
// repeated Open calls for the same survey id.
type Handle struct {
	SurveyID string
	Survey   model.Survey
}

// Access is the Volume Access contract consumed by the rest of the gateway.
type Access interface {
	Open(ctx context.Context, surveyID string) (*Handle, error)
	Describe(h *Handle) model.Survey
	Extract(ctx context.Context, h *Handle, req model.ExtractionRequest) (*model.ExtractedBuffer, model.Statistics, error)
}

// Accessor is the default Access implementation.
type Accessor struct {
	lookup SurveyLookup

	mu      sync.Mutex
	handles map[string]*Handle
}

// New builds an Accessor backed by the given survey lookup.
func New(lookup SurveyLookup) *Accessor {
	return &Accessor{lookup: lookup, handles: make(map[string]*Handle)}
}

// Open returns the cached handle for survey_id, opening it on first use.
// Idempotent: repeated Open calls return the same handle identity. A failed
// open leaves no entry, so a later retry can succeed once the cause clears.
func (a *Accessor) Open(ctx context.Context, surveyID string) (*Handle, error) {
	a.mu.Lock()
	if h, ok := a.handles[surveyID]; ok {
		a.mu.Unlock()
		return h, nil
	}
	a.mu.Unlock()

	survey, err := a.lookup.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if err := survey.Validate(); err != nil {
		return nil, apierr.New(apierr.ExtractionFailed, "survey %s failed validation: %v", surveyID, err)
	}

	h := &Handle{SurveyID: surveyID, Survey: survey}

	a.mu.Lock()
	if existing, ok := a.handles[surveyID]; ok {
		a.mu.Unlock()
		return existing, nil
	}
	a.handles[surveyID] = h
	a.mu.Unlock()
	return h, nil
}

// Describe returns the survey descriptor behind a handle.
func (a *Accessor) Describe(h *Handle) model.Survey {
	return h.Survey
}

// resolveIndexRange converts a user-facing inclusive range into a half-open
// internal index range, per the coordinate->index rule in 4.1.
func resolveIndexRange(axis model.Axis, r model.Range) (model.IndexRange, error) {
	lo := axis.ClampIndex(axis.CoordToIndex(r.Lo))
	hiIdx := axis.ClampIndex(axis.CoordToIndex(r.Hi))
	hi := hiIdx + 1
	if hi > axis.SampleCount {
		hi = axis.SampleCount
	}
	if lo >= hi {
		return model.IndexRange{}, apierr.New(apierr.InvalidArgument, "invalid range [%v, %v] on axis resolves to empty index span", r.Lo, r.Hi)
	}
	return model.IndexRange{Lo: lo, Hi: hi}, nil
}

// Extract computes a dense buffer and its statistics for the given request.
// This is the blocking, CPU-heavy operation callers must run off the reader
// goroutine (via a worker pool).
func (a *Accessor) Extract(ctx context.Context, h *Handle, req model.ExtractionRequest) (*model.ExtractedBuffer, model.Statistics, error) {
	survey := h.Survey

	switch req.Kind {
	case model.KindInline:
		idx := survey.Inline.ClampIndex(survey.Inline.CoordToIndex(req.Selector))
		buf := a.synthesizeSlice(survey, model.AxisInline, idx, survey.Crossline.SampleCount, survey.Sample.SampleCount)
		stats := computeStatistics(buf)
		return buf, stats, nil

	case model.KindCrossline:
		idx := survey.Crossline.ClampIndex(survey.Crossline.CoordToIndex(req.Selector))
		buf := a.synthesizeSlice(survey, model.AxisCrossline, idx, survey.Inline.SampleCount, survey.Sample.SampleCount)
		stats := computeStatistics(buf)
		return buf, stats, nil

	case model.KindTimeslice:
		idx := survey.Sample.ClampIndex(survey.Sample.CoordToIndex(req.Selector))
		buf := a.synthesizeSlice(survey, model.AxisSample, idx, survey.Inline.SampleCount, survey.Crossline.SampleCount)
		stats := computeStatistics(buf)
		return buf, stats, nil

	case model.KindSubvolume:
		inR, err := subRange(survey.Inline, req.SubRanges, model.AxisInline)
		if err != nil {
			return nil, model.Statistics{}, err
		}
		crR, err := subRange(survey.Crossline, req.SubRanges, model.AxisCrossline)
		if err != nil {
			return nil, model.Statistics{}, err
		}
		saR, err := subRange(survey.Sample, req.SubRanges, model.AxisSample)
		if err != nil {
			return nil, model.Statistics{}, err
		}
		buf := a.synthesizeVolume(survey, inR, crR, saR)
		stats := computeStatistics(buf)
		return buf, stats, nil

	default:
		return nil, model.Statistics{}, apierr.New(apierr.InvalidArgument, "unknown extraction kind %q", req.Kind)
	}
}

func subRange(axis model.Axis, overrides map[model.AxisName]model.Range, name model.AxisName) (model.IndexRange, error) {
	if overrides != nil {
		if r, ok := overrides[name]; ok {
			return resolveIndexRange(axis, r)
		}
	}
	return model.IndexRange{Lo: 0, Hi: axis.SampleCount}, nil
}

// synthesizeSlice builds a deterministic 2-D buffer (dim0 x dim1) for a
// fixed index on the given axis, seeded by survey id + axis + index so the
// same request always reproduces the same bytes (needed for provenance
// hashing and cache transparency tests).
func (a *Accessor) synthesizeSlice(s model.Survey, fixedAxis model.AxisName, fixedIdx, dim0, dim1 int) *model.ExtractedBuffer {
	seed := hashSeed(s.ID, string(fixedAxis), fixedIdx)
	data := make([]float32, dim0*dim1)
	for i := 0; i < dim0; i++ {
		for j := 0; j < dim1; j++ {
			data[i*dim1+j] = syntheticAmplitude(seed, i, j)
		}
	}
	return &model.ExtractedBuffer{Shape: []int{dim0, dim1}, Data: data}
}

func (a *Accessor) synthesizeVolume(s model.Survey, inR, crR, saR model.IndexRange) *model.ExtractedBuffer {
	seed := hashSeed(s.ID, "subvolume", inR.Lo, crR.Lo, saR.Lo)
	ni, nc, nsamp := inR.Len(), crR.Len(), saR.Len()
	data := make([]float32, ni*nc*nsamp)
	idx := 0
	for i := 0; i < ni; i++ {
		for c := 0; c < nc; c++ {
			for t := 0; t < nsamp; t++ {
				data[idx] = syntheticAmplitude(seed, i*1000+c, t)
				idx++
			}
		}
	}
	return &model.ExtractedBuffer{Shape: []int{ni, nc, nsamp}, Data: data}
}

// hashSeed combines identifying parameters into a stable 64-bit seed.
func hashSeed(parts ...any) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	for _, p := range parts {
		s := fmt.Sprint(p)
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= 1099511628211
		}
	}
	return h
}

// syntheticAmplitude produces a bounded pseudo-seismic value from a seed and
// two integer coordinates, using a simple deterministic mixing function
// rather than math/rand so results never depend on global RNG state.
func syntheticAmplitude(seed uint64, i, j int) float32 {
	x := seed ^ (uint64(i)*2654435761 + uint64(j)*40503)
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	frac := float64(x%100000) / 100000.0
	return float32(1200.0*math.Sin(frac*2*math.Pi) + 80.0*math.Cos(float64(i+j)))
}

// computeStatistics recomputes the full statistics set over a buffer's
// non-null samples.
func computeStatistics(buf *model.ExtractedBuffer) model.Statistics {
	vals := make([]float64, 0, len(buf.Data))
	for _, v := range buf.Data {
		if buf.IsMissing(v) {
			continue
		}
		vals = append(vals, float64(v))
	}
	return StatisticsOf(vals)
}

// StatisticsOf computes the Statistics struct over an arbitrary sample set.
// Exported so the Integrity Engine can recompute statistics identically
// from a buffer it pulled independently.
func StatisticsOf(vals []float64) model.Statistics {
	n := len(vals)
	if n == 0 {
		return model.Statistics{Units: "unitless", SampleCount: 0}
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	min, max := sorted[0], sorted[n-1]
	var sum, sumSq float64
	for _, v := range vals {
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)
	rms := math.Sqrt(sumSq / float64(n))

	return model.Statistics{
		Min:         min,
		Max:         max,
		Mean:        mean,
		Median:      percentile(sorted, 50),
		Std:         std,
		RMS:         rms,
		P10:         percentile(sorted, 10),
		P25:         percentile(sorted, 25),
		P50:         percentile(sorted, 50),
		P75:         percentile(sorted, 75),
		P90:         percentile(sorted, 90),
		SampleCount: n,
		Units:       "unitless",
	}
}

// percentile performs linear-interpolated percentile lookup over an
// already-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := (p / 100.0) * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
