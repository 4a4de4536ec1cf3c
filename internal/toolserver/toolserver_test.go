package toolserver

import (
	"reflect"
	"testing"

	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

func TestGetString(t *testing.T) {
	args := map[string]any{"survey_id": "gom23", "empty": ""}
	if got := getString(args, "survey_id", "default"); got != "gom23" {
		t.Errorf("got %q, want gom23", got)
	}
	if got := getString(args, "empty", "default"); got != "default" {
		t.Errorf("empty string should fall back to default, got %q", got)
	}
	if got := getString(args, "missing", "default"); got != "default" {
		t.Errorf("missing key should fall back to default, got %q", got)
	}
}

func TestGetFloatAndInt(t *testing.T) {
	args := map[string]any{"inline": 1500.0, "limit": 10.0}
	if got := getFloat(args, "inline", 0); got != 1500.0 {
		t.Errorf("getFloat = %v, want 1500", got)
	}
	if got := getInt(args, "limit", 5); got != 10 {
		t.Errorf("getInt = %v, want 10", got)
	}
	if got := getInt(args, "missing", 5); got != 5 {
		t.Errorf("getInt default = %v, want 5", got)
	}
}

func TestGetBool(t *testing.T) {
	args := map[string]any{"send_to_claude": false}
	if got := getBool(args, "send_to_claude", true); got != false {
		t.Errorf("got %v, want false", got)
	}
	if got := getBool(args, "missing", true); got != true {
		t.Errorf("missing key should fall back to default true, got %v", got)
	}
}

func TestGetRange(t *testing.T) {
	args := map[string]any{
		"array_range":  []any{1000.0, 2000.0},
		"object_range": map[string]any{"min": 500.0, "max": 1500.0},
	}
	r, ok := getRange(args, "array_range")
	if !ok || r != (model.Range{Lo: 1000, Hi: 2000}) {
		t.Errorf("array_range = %+v, ok=%v, want {1000 2000}", r, ok)
	}
	r, ok = getRange(args, "object_range")
	if !ok || r != (model.Range{Lo: 500, Hi: 1500}) {
		t.Errorf("object_range = %+v, ok=%v, want {500 1500}", r, ok)
	}
	if _, ok := getRange(args, "missing"); ok {
		t.Error("missing key should report ok=false")
	}
}

func TestGetFloatMap(t *testing.T) {
	args := map[string]any{"claimed_statistics": map[string]any{"max": 2500.0, "mean": 145.0}}
	got := getFloatMap(args, "claimed_statistics")
	want := map[string]float64{"max": 2500.0, "mean": 145.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if empty := getFloatMap(args, "missing"); len(empty) != 0 {
		t.Errorf("missing key should yield an empty map, got %v", empty)
	}
}

func TestDataSummaryTruncatesOversizedBuffers(t *testing.T) {
	s := &Server{rawDataElementCap: 3}
	buf := &model.ExtractedBuffer{Shape: []int{5}, Data: []float32{1, 2, 3, 4, 5}}
	out := s.dataSummary(buf, model.Statistics{SampleCount: 5}, map[string]any{"survey_id": "gom23"})

	data, ok := out["data"].([]float32)
	if !ok || len(data) != 3 {
		t.Fatalf("data = %v, want a 3-element slice", out["data"])
	}
	if truncated, _ := out["truncated"].(bool); !truncated {
		t.Error("expected truncated=true when data exceeds rawDataElementCap")
	}
}

func TestDataSummaryKeepsSmallBuffersWhole(t *testing.T) {
	s := &Server{rawDataElementCap: 100}
	buf := &model.ExtractedBuffer{Shape: []int{2}, Data: []float32{1, 2}}
	out := s.dataSummary(buf, model.Statistics{SampleCount: 2}, map[string]any{"survey_id": "gom23"})

	if _, truncated := out["truncated"]; truncated {
		t.Error("small buffers should not be marked truncated")
	}
	data, ok := out["data"].([]float32)
	if !ok || len(data) != 2 {
		t.Fatalf("data = %v, want the full 2-element slice", out["data"])
	}
}
