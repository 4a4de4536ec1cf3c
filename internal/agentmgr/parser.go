package agentmgr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

// ErrUnparsable is returned when no recognized grammar matches an
// instruction, or when every candidate line number was filtered out as
// out-of-range.
type ErrUnparsable struct {
	Instruction string
}

func (e *ErrUnparsable) Error() string {
	return "could not parse bulk extraction instruction: " + e.Instruction
}

// Plan is the result of parsing a natural-language bulk instruction: which
// axis to iterate, the coordinate selectors to visit on it, and an optional
// sample-range override pulled from depth/time language in the instruction.
type Plan struct {
	Axis        model.AxisName
	Selectors   []float64
	SampleRange *model.Range
}

// openRange describes a step/bounds triple where the bounds may still need
// to default to the target axis's full coordinate range.
type openRange struct {
	axis    model.AxisName
	step    float64
	lo, hi  float64
	haveLo  bool
	haveHi  bool
}

var depthPattern = regexp.MustCompile(`(?i)(depth|sample|time)\D{1,20}?(\d+)\D{1,20}?(\d+)`)

// extractSampleRange looks for depth/sample/time language naming two
// numbers, returning the range and the instruction text with that span
// blanked out so those numbers are never picked up again as line numbers.
func extractSampleRange(text string) (*model.Range, string) {
	loc := depthPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, text
	}
	lo, _ := strconv.ParseFloat(text[loc[4]:loc[5]], 64)
	hi, _ := strconv.ParseFloat(text[loc[6]:loc[7]], 64)
	if lo > hi {
		lo, hi = hi, lo
	}
	blanked := text[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + text[loc[1]:]
	return &model.Range{Lo: lo, Hi: hi}, blanked
}

var (
	grammar1 = regexp.MustCompile(`(?i)every\s+(\d+)(?:st|nd|rd|th)?\s+inlines?\s+from\s+(\d+)\s+to\s+(\d+)`)

	crosslineKeyword = regexp.MustCompile(`(?i)\bcrosslines?\b`)
	everyStep        = regexp.MustCompile(`(?i)every\s+(\d+)`)
	skipStep         = regexp.MustCompile(`(?i)skip(?:ping)?\s+(\d+)`)
	skipKeywordOnly  = regexp.MustCompile(`(?i)\bskip(?:ping)?\b`)
	startAt          = regexp.MustCompile(`(?i)start\s+at\s+(\d+)`)
	throughTo        = regexp.MustCompile(`(?i)(?:through|to)\s+(\d+)`)

	grammar3 = regexp.MustCompile(`(?i)inlines?\s+from\s+(\d+)\s+to\s+(\d+)(?:\s+at\s+(\d+)\s+spacing)?`)
	grammar4 = regexp.MustCompile(`(?i)crosslines?\s+(\d+(?:\s*,\s*\d+)+)`)
	grammar5 = regexp.MustCompile(`(?i)every\s+(\d+)(?:st|nd|rd|th)?\s+(inline|crossline)s?\b`)
)

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func rangeBySteps(lo, hi, step float64) []float64 {
	if step <= 0 {
		step = 1
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	var out []float64
	for v := lo; v <= hi+1e-9; v += step {
		out = append(out, v)
	}
	return out
}

// ParseInstruction resolves an instruction into a Plan against the given
// survey, trying each grammar in priority order. Candidate selectors
// outside the axis's coordinate bounds are silently dropped; if that leaves
// nothing, parsing fails.
func ParseInstruction(instruction string, survey model.Survey) (Plan, error) {
	sampleRange, text := extractSampleRange(instruction)

	plan, ok := resolveGrammars(text, survey)
	if !ok {
		return Plan{}, &ErrUnparsable{Instruction: instruction}
	}
	plan.SampleRange = sampleRange

	axis := survey.Axis(plan.Axis)
	filtered := make([]float64, 0, len(plan.Selectors))
	for _, v := range plan.Selectors {
		if v >= axis.CoordMin && v <= axis.CoordMax {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return Plan{}, &ErrUnparsable{Instruction: instruction}
	}
	plan.Selectors = filtered
	return plan, nil
}

// resolveGrammars tries each grammar in priority order, resolving any open
// (partially-bounded) range against the survey's axis before returning.
func resolveGrammars(text string, survey model.Survey) (Plan, bool) {
	// Grammar 1: "every N inline from A to B".
	if m := grammar1.FindStringSubmatch(text); m != nil {
		step, lo, hi := atof(m[1]), atof(m[2]), atof(m[3])
		return Plan{Axis: model.AxisInline, Selectors: rangeBySteps(lo, hi, step)}, true
	}

	// Grammar 2: "every N crossline(s) [skipping N] [start at X] [through/to Y]".
	if crosslineKeyword.MatchString(text) {
		hasStep := everyStep.MatchString(text) || skipStep.MatchString(text) || skipKeywordOnly.MatchString(text)
		if hasStep {
			step := 100.0
			if m := everyStep.FindStringSubmatch(text); m != nil {
				step = atof(m[1])
			} else if m := skipStep.FindStringSubmatch(text); m != nil {
				step = atof(m[1])
			}

			or := openRange{axis: model.AxisCrossline, step: step}
			if m := startAt.FindStringSubmatch(text); m != nil {
				or.lo, or.haveLo = atof(m[1]), true
			}
			if m := throughTo.FindStringSubmatch(text); m != nil {
				or.hi, or.haveHi = atof(m[1]), true
			}
			return resolveOpenRange(or, survey), true
		}
	}

	// Grammar 3: "inlines from A to B [at S spacing]".
	if m := grammar3.FindStringSubmatch(text); m != nil {
		lo, hi := atof(m[1]), atof(m[2])
		step := 1000.0
		if m[3] != "" {
			step = atof(m[3])
		}
		return Plan{Axis: model.AxisInline, Selectors: rangeBySteps(lo, hi, step)}, true
	}

	// Grammar 4: "crosslines X, Y, Z" explicit list.
	if m := grammar4.FindStringSubmatch(text); m != nil {
		parts := strings.Split(m[1], ",")
		selectors := make([]float64, 0, len(parts))
		for _, p := range parts {
			selectors = append(selectors, atof(p))
		}
		return Plan{Axis: model.AxisCrossline, Selectors: selectors}, true
	}

	// Grammar 5: generic "every N {inline|crossline}" across the full axis.
	if m := grammar5.FindStringSubmatch(text); m != nil {
		step := atof(m[1])
		axis := model.AxisInline
		if strings.EqualFold(m[2], "crossline") {
			axis = model.AxisCrossline
		}
		return resolveOpenRange(openRange{axis: axis, step: step}, survey), true
	}

	return Plan{}, false
}

// resolveOpenRange fills in any missing bound from the target axis's full
// coordinate range, then materializes the stepped selector list.
func resolveOpenRange(or openRange, survey model.Survey) Plan {
	axis := survey.Axis(or.axis)
	lo, hi := or.lo, or.hi
	if !or.haveLo {
		lo = axis.CoordMin
	}
	if !or.haveHi {
		hi = axis.CoordMax
	}
	return Plan{Axis: or.axis, Selectors: rangeBySteps(lo, hi, or.step)}
}
