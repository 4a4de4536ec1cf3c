package router

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		wantBulk bool
	}{
		{
			name:     "every N pattern",
			tool:     "extract_inline_image",
			args:     map[string]any{"instruction": "extract every 1000th inline from 51000 to 59000"},
			wantBulk: true,
		},
		{
			name:     "range pattern",
			tool:     "extract_inline",
			args:     map[string]any{"instruction": "extract inlines from 1000 to 2000"},
			wantBulk: true,
		},
		{
			name:     "spacing keyword",
			tool:     "extract_crossline",
			args:     map[string]any{"instruction": "extract crosslines with a spacing of 50"},
			wantBulk: true,
		},
		{
			name:     "all axis pattern",
			tool:     "extract_inline",
			args:     map[string]any{"instruction": "extract all inlines"},
			wantBulk: true,
		},
		{
			name:     "three four-digit integers",
			tool:     "extract_inline",
			args:     map[string]any{"instruction": "look at 1500, 2500 and 3500"},
			wantBulk: true,
		},
		{
			name:     "quantity word",
			tool:     "extract_crossline",
			args:     map[string]any{"instruction": "extract several crosslines around the fault"},
			wantBulk: true,
		},
		{
			name:     "single call",
			tool:     "extract_inline",
			args:     map[string]any{"survey_id": "s1", "inline_number": 1500},
			wantBulk: false,
		},
		{
			name:     "non-extraction tool never bulk",
			tool:     "search_surveys",
			args:     map[string]any{"instruction": "every 100th survey from 1000 to 9000"},
			wantBulk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Detect(tt.tool, tt.args)
			if v.Bulk != tt.wantBulk {
				t.Errorf("Detect(%q, %v).Bulk = %v, want %v", tt.tool, tt.args, v.Bulk, tt.wantBulk)
			}
		})
	}
}
