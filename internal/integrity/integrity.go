// Package integrity implements the Integrity Engine (C5): recomputing
// statistics to validate claimed numbers, checking coordinate bounds and
// internal statistical consistency, producing provenance fingerprints, and
// resolving metadata claims against a survey descriptor.
//
// Every operation here is pure given its inputs — no component state is
// threaded through, matching spec's "Integrity engine is stateless across
// calls."
package integrity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nextlevelbuilder/vdsgateway/internal/model"
	"github.com/nextlevelbuilder/vdsgateway/internal/volume"
)

// Verdict is the outcome of comparing one claimed metric to its recomputed
// value.
type Verdict string

const (
	Pass    Verdict = "PASS"
	Fail    Verdict = "FAIL"
	Unknown Verdict = "UNKNOWN"
)

// MetricResult is the per-metric outcome of Recompute.
type MetricResult struct {
	Metric        string  `json:"metric"`
	Claimed       float64 `json:"claimed"`
	Actual        float64 `json:"actual"`
	Error         float64 `json:"error"`
	PercentError  float64 `json:"percent_error"`
	Verdict       Verdict `json:"verdict"`
	Correction    string  `json:"corrected_statement,omitempty"`
}

// supportedMetric looks up a named statistic field on a Statistics value.
func supportedMetric(stats model.Statistics, name string) (float64, bool) {
	switch name {
	case "min":
		return stats.Min, true
	case "max":
		return stats.Max, true
	case "mean":
		return stats.Mean, true
	case "median":
		return stats.Median, true
	case "std":
		return stats.Std, true
	case "rms":
		return stats.RMS, true
	case "p10":
		return stats.P10, true
	case "p25":
		return stats.P25, true
	case "p50":
		return stats.P50, true
	case "p75":
		return stats.P75, true
	case "p90":
		return stats.P90, true
	default:
		return 0, false
	}
}

// Recompute compares a claim map against statistics recomputed independently
// from the buffer, at the given relative tolerance (absolute when the
// actual value is zero).
func Recompute(buf *model.ExtractedBuffer, claims map[string]float64, tolerance float64) []MetricResult {
	if tolerance <= 0 {
		tolerance = 0.05
	}
	vals := make([]float64, 0, len(buf.Data))
	for _, v := range buf.Data {
		if buf.IsMissing(v) {
			continue
		}
		vals = append(vals, float64(v))
	}
	actual := volume.StatisticsOf(vals)

	results := make([]MetricResult, 0, len(claims))
	for metric, claimed := range claims {
		actualVal, ok := supportedMetric(actual, metric)
		if !ok {
			results = append(results, MetricResult{Metric: metric, Claimed: claimed, Verdict: Unknown})
			continue
		}

		errAbs := math.Abs(claimed - actualVal)
		var percentErr float64
		var withinTolerance bool
		if actualVal == 0 {
			withinTolerance = errAbs <= tolerance
			percentErr = 0
		} else {
			percentErr = errAbs / math.Abs(actualVal)
			withinTolerance = percentErr <= tolerance
		}

		verdict := Pass
		var correction string
		if !withinTolerance {
			verdict = Fail
			correction = metric + " is " + formatFloat(actualVal) + " (not " + formatFloat(claimed) + ")"
		}

		results = append(results, MetricResult{
			Metric:       metric,
			Claimed:      claimed,
			Actual:       actualVal,
			Error:        errAbs,
			PercentError: percentErr * 100,
			Verdict:      verdict,
			Correction:   correction,
		})
	}
	return results
}

// formatFloat renders a value rounded to 4 decimal places with no trailing
// zeros, for human-readable correction statements.
func formatFloat(v float64) string {
	mult := 10000.0
	r := math.Round(v*mult) / mult
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func trimFloat(v float64) string {
	return formatFloat(v)
}

// CoordVerdict is the per-axis result of coordinate verification.
type CoordVerdict struct {
	Valid bool   `json:"valid"`
	Issue string `json:"issue,omitempty"`
}

// VerifyCoordinates marks each claimed axis value valid or out-of-bounds
// against the survey's axis bounds.
func VerifyCoordinates(survey model.Survey, claims map[model.AxisName]float64) map[model.AxisName]CoordVerdict {
	out := make(map[model.AxisName]CoordVerdict, len(claims))
	for axisName, v := range claims {
		axis := survey.Axis(axisName)
		switch {
		case v < axis.CoordMin:
			out[axisName] = CoordVerdict{
				Valid: false,
				Issue: string(axisName) + " " + trimFloat(v) + " is below survey minimum " + trimFloat(axis.CoordMin),
			}
		case v > axis.CoordMax:
			out[axisName] = CoordVerdict{
				Valid: false,
				Issue: string(axisName) + " " + trimFloat(v) + " is above survey maximum " + trimFloat(axis.CoordMax),
			}
		default:
			out[axisName] = CoordVerdict{Valid: true}
		}
	}
	return out
}

// Fingerprint hashes a buffer's raw byte layout in canonical dtype/shape
// order. The hash is for traceability, not security.
func Fingerprint(buf *model.ExtractedBuffer) model.Fingerprint {
	h := sha256.New()
	b := make([]byte, 4)
	for _, v := range buf.Data {
		binary.BigEndian.PutUint32(b, math.Float32bits(v))
		h.Write(b)
	}
	return model.Fingerprint{
		Hash:  hex.EncodeToString(h.Sum(nil)),
		Shape: append([]int(nil), buf.Shape...),
		Dtype: "float32",
	}
}

// BuildProvenance assembles an immutable provenance record for a freshly
// extracted buffer.
func BuildProvenance(buf *model.ExtractedBuffer, source model.ProvenanceSource, params map[string]interface{}, stats model.Statistics) model.ProvenanceRecord {
	return model.ProvenanceRecord{
		Timestamp:   time.Now(),
		Source:      source,
		Parameters:  params,
		Fingerprint: Fingerprint(buf),
		Statistics:  stats,
	}
}

// Severity ranks how serious a failed consistency rule is. Values compare
// with simple integer ordering via severityRank.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// RuleResult is the outcome of one statistical consistency rule.
type RuleResult struct {
	Rule     string   `json:"rule"`
	Pass     bool     `json:"pass"`
	Severity Severity `json:"severity,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// ConsistencyReport is the aggregate outcome of CheckStatisticalConsistency.
type ConsistencyReport struct {
	Rules          []RuleResult `json:"rules"`
	Consistent     bool         `json:"consistent"`
	OverallSeverity Severity    `json:"overall_severity,omitempty"`
}

// CheckStatisticalConsistency runs the fixed set of internal-consistency
// rules over a claimed Statistics value, independent of any buffer. Each
// rule failure carries its own severity; the report's overall severity is
// the worst of any failing rule.
func CheckStatisticalConsistency(stats model.Statistics) ConsistencyReport {
	rules := []RuleResult{
		boundRule("min_le_mean_le_max", stats.Min <= stats.Mean && stats.Mean <= stats.Max, SeverityCritical,
			"mean must lie within [min, max]"),
		boundRule("min_le_median_le_max", stats.Min <= stats.Median && stats.Median <= stats.Max, SeverityCritical,
			"median must lie within [min, max]"),
		boundRule("p25_le_median_le_p75", stats.P25 <= stats.Median && stats.Median <= stats.P75, SeverityHigh,
			"median must lie within [p25, p75]"),
		boundRule("percentiles_monotonic", stats.P10 <= stats.P25 && stats.P25 <= stats.P50 && stats.P50 <= stats.P75 && stats.P75 <= stats.P90, SeverityHigh,
			"percentiles must be non-decreasing: p10 <= p25 <= p50 <= p75 <= p90"),
		boundRule("std_nonnegative", stats.Std >= 0, SeverityCritical,
			"standard deviation cannot be negative"),
		boundRule("rms_consistent_with_mean", stats.RMS >= 0.9*math.Abs(stats.Mean), SeverityMedium,
			"rms should not be smaller than 90% of |mean| for physically plausible amplitude data"),
	}

	consistent := true
	worst := SeverityLow
	for _, r := range rules {
		if !r.Pass {
			consistent = false
			if severityRank(r.Severity) > severityRank(worst) {
				worst = r.Severity
			}
		}
	}

	report := ConsistencyReport{Rules: rules, Consistent: consistent}
	if !consistent {
		report.OverallSeverity = worst
	}
	return report
}

func boundRule(name string, pass bool, sev Severity, detail string) RuleResult {
	r := RuleResult{Rule: name, Pass: pass}
	if !pass {
		r.Severity = sev
		r.Detail = detail
	}
	return r
}

// DomainWarning flags a cross-survey comparison that is statistically
// misleading unless the amplitudes being compared were normalized first.
type DomainWarning struct {
	WarningType    string `json:"warning_type"`
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

var amplitudeKeywords = []string{
	"amplitude", "amplitudes", "reflectivity", "energy", "rms amplitude", "peak amplitude",
}

var comparisonKeywords = []string{
	"compare", "comparison", "versus", "vs", "vs.", "stronger", "weaker", "higher than", "lower than",
}

var safeComparisonKeywords = []string{
	"normalized", "normalised", "rms-normalized", "z-score", "zscore", "snr", "signal-to-noise", "relative contrast",
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// CheckCrossSurveyCompat inspects a natural-language context string
// mentioning two or more surveys and warns when the language implies a raw
// amplitude comparison across surveys, which is misleading without
// normalization (different surveys carry different gains, processing
// chains, and acquisition parameters).
func CheckCrossSurveyCompat(context string, surveyIDs []string) *DomainWarning {
	if len(surveyIDs) < 2 {
		return nil
	}
	lower := strings.ToLower(context)
	if !containsAny(lower, amplitudeKeywords) {
		return nil
	}
	if !containsAny(lower, comparisonKeywords) {
		return nil
	}
	if containsAny(lower, safeComparisonKeywords) {
		return nil
	}
	return &DomainWarning{
		WarningType: "cross_survey_amplitude_comparison",
		Severity:    "critical",
		Message: "Comparing raw amplitudes across surveys (" + strings.Join(surveyIDs, ", ") + ") without normalization is misleading: " +
			"different surveys carry different source energy, gain, and processing, so raw amplitude differences do not reflect subsurface differences.",
		Recommendation: "Normalize both extractions (RMS or z-score) before comparing, or compare relative contrast within each survey independently.",
	}
}

// NormalizationMethod selects how AmplitudeNormalizer rescales a buffer.
type NormalizationMethod string

const (
	NormalizeRMS        NormalizationMethod = "rms"
	NormalizeZScore     NormalizationMethod = "zscore"
	NormalizePercentile NormalizationMethod = "percentile"
)

// NormalizationResult carries the rescaled values alongside the statistics
// needed to interpret them, mirroring what a caller needs to report back
// when normalizing for a cross-survey comparison.
type NormalizationResult struct {
	Method              NormalizationMethod `json:"method"`
	NormalizationFactor float64             `json:"normalization_factor"`
	NormalizedStats     model.Statistics    `json:"normalized_statistics"`
	Interpretation      string              `json:"interpretation"`
}

// NormalizeByRMS rescales values by dividing by their RMS, so the
// normalized RMS is always 1.0 and surveys of different absolute gain
// become comparable.
func NormalizeByRMS(vals []float64) ([]float64, NormalizationResult) {
	stats := volume.StatisticsOf(vals)
	rms := stats.RMS
	if rms == 0 {
		rms = 1
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v / rms
	}
	return out, NormalizationResult{
		Method:              NormalizeRMS,
		NormalizationFactor: rms,
		NormalizedStats:     volume.StatisticsOf(out),
		Interpretation:      "values rescaled so RMS == 1.0; comparable across surveys regardless of absolute gain",
	}
}

// NormalizeByZScore rescales values to zero mean, unit standard deviation.
func NormalizeByZScore(vals []float64) ([]float64, NormalizationResult) {
	stats := volume.StatisticsOf(vals)
	std := stats.Std
	if std == 0 {
		std = 1
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = (v - stats.Mean) / std
	}
	return out, NormalizationResult{
		Method:              NormalizeZScore,
		NormalizationFactor: std,
		NormalizedStats:     volume.StatisticsOf(out),
		Interpretation:      "values rescaled to zero mean, unit standard deviation",
	}
}

// NormalizeByPercentile rescales values by the span between the p10 and p90
// percentiles, robust to a handful of extreme outlier samples.
func NormalizeByPercentile(vals []float64) ([]float64, NormalizationResult) {
	stats := volume.StatisticsOf(vals)
	span := stats.P90 - stats.P10
	if span == 0 {
		span = 1
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = (v - stats.P50) / span
	}
	return out, NormalizationResult{
		Method:              NormalizePercentile,
		NormalizationFactor: span,
		NormalizedStats:     volume.StatisticsOf(out),
		Interpretation:      "values rescaled by the p10-p90 span, robust to outlier amplitude spikes",
	}
}

// ClaimStatus is the four-way outcome of resolving one metadata claim.
type ClaimStatus string

const (
	StatusPass     ClaimStatus = "PASS"
	StatusPartial  ClaimStatus = "PARTIAL"
	StatusFail     ClaimStatus = "FAIL"
	StatusNotFound ClaimStatus = "NOT_FOUND"
)

// ClaimResult is the outcome of resolving one metadata claim against a
// survey descriptor.
type ClaimResult struct {
	Field       string      `json:"field"`
	Claimed     string      `json:"claimed"`
	Actual      string      `json:"actual,omitempty"`
	Status      ClaimStatus `json:"status"`
	Confidence  float64     `json:"confidence"`
	SourcePath  string      `json:"source_path,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// surveyField is one resolvable metadata field: its value and where in the
// survey descriptor it came from, for ClaimResult.SourcePath.
type surveyField struct {
	Value string
	Path  string
}

// surveyFields flattens the survey fields a metadata claim can reference,
// plus any aliases registered for the survey (e.g. alternate CRS strings or
// legacy survey names), into a single lookup map.
func surveyFields(s model.Survey) map[string]surveyField {
	fields := map[string]surveyField{
		"id":               {s.ID, "survey.id"},
		"name":             {s.Name, "survey.name"},
		"region":           {s.Region, "survey.region"},
		"acquisition_date": {s.AcquisitionAt, "survey.acquisition_date"},
		"data_type":        {s.DataType, "survey.data_type"},
		"path":             {s.Path, "survey.path"},
	}
	if s.CRS != nil {
		fields["crs"] = surveyField{s.CRS.Raw, "survey.crs.raw"}
		fields["crs_name"] = surveyField{s.CRS.Name, "survey.crs.name"}
	}
	for k, v := range s.Aliases {
		fields[k] = surveyField{v, "survey.aliases." + k}
	}
	return fields
}

// closestFieldNames returns up to n known field names sharing token overlap
// with an unresolvable field name, for NOT_FOUND suggestions.
func closestFieldNames(fields map[string]surveyField, field string, n int) []string {
	type scored struct {
		name  string
		score float64
	}
	var candidates []scored
	want := strings.ToLower(field)
	for name := range fields {
		if strings.Contains(name, want) || strings.Contains(want, name) {
			candidates = append(candidates, scored{name, 1})
			continue
		}
		if score := tokenOverlap(want, strings.ToLower(strings.ReplaceAll(name, "_", " "))); score > 0 {
			candidates = append(candidates, scored{name, score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})
	out := make([]string, 0, n)
	for _, c := range candidates {
		if len(out) >= n {
			break
		}
		out = append(out, c.name)
	}
	return out
}

// ValidateMetadataClaim resolves a claimed value for a named field against
// a survey, trying in order: an exact case-insensitive match, a substring
// ("search path") match, and finally a fuzzy (token-overlap) match. The
// first method that succeeds wins.
func ValidateMetadataClaim(s model.Survey, field, claimed string) ClaimResult {
	fields := surveyFields(s)
	entry, ok := fields[field]
	if !ok {
		return ClaimResult{
			Field: field, Claimed: claimed, Status: StatusNotFound,
			Suggestions: closestFieldNames(fields, field, 3),
		}
	}
	actual := entry.Value

	claimedNorm := strings.ToLower(strings.TrimSpace(claimed))
	actualNorm := strings.ToLower(strings.TrimSpace(actual))

	if claimedNorm == actualNorm {
		return ClaimResult{
			Field: field, Claimed: claimed, Actual: actual,
			Status: StatusPass, Confidence: 1.0, SourcePath: entry.Path,
		}
	}
	if strings.Contains(actualNorm, claimedNorm) || strings.Contains(claimedNorm, actualNorm) {
		return ClaimResult{
			Field: field, Claimed: claimed, Actual: actual,
			Status: StatusPartial, Confidence: 0.85, SourcePath: entry.Path,
		}
	}

	score := tokenOverlap(claimedNorm, actualNorm)
	if score >= 0.5 {
		return ClaimResult{
			Field: field, Claimed: claimed, Actual: actual,
			Status: StatusPartial, Confidence: score, SourcePath: entry.Path,
		}
	}
	return ClaimResult{
		Field: field, Claimed: claimed, Actual: actual,
		Status: StatusFail, Confidence: score, SourcePath: entry.Path,
		Suggestions: []string{actual},
	}
}

// claimStatusWeight assigns each status a weight for AggregateClaimScore:
// a PARTIAL match counts half a PASS, FAIL and NOT_FOUND count zero.
func claimStatusWeight(s ClaimStatus) float64 {
	switch s {
	case StatusPass:
		return 1.0
	case StatusPartial:
		return 0.5
	default:
		return 0.0
	}
}

// AggregateClaimScore combines a set of per-field ClaimResults into one
// weighted [0,1] score: each field contributes its status weight times its
// confidence, averaged across all claimed fields.
func AggregateClaimScore(results map[string]ClaimResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += claimStatusWeight(r.Status) * r.Confidence
	}
	return sum / float64(len(results))
}

// tokenOverlap scores two strings by the fraction of whitespace-split tokens
// they share, a cheap stand-in for a real fuzzy-match library.
func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(tb))
	for _, t := range tb {
		set[t] = true
	}
	matches := 0
	for _, t := range ta {
		if set[t] {
			matches++
		}
	}
	denom := len(ta)
	if len(tb) > denom {
		denom = len(tb)
	}
	return float64(matches) / float64(denom)
}
