package service

import (
	"testing"
	"time"
)

func TestNextDocumentNumber(t *testing.T) {
	jan2025 := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	const format = "{AUTO}/ATK/{MM}/{YYYY}"

	tests := []struct {
		name     string
		existing []string
		period   time.Time
		format   string
		prefix   string
		want     string
	}{
		{
			name:     "continues after highest",
			existing: []string{"0001/ATK/01/2025", "0003/ATK/01/2025"},
			period:   jan2025,
			format:   format,
			prefix:   "0001",
			want:     "0004/ATK/01/2025",
		},
		{
			name:     "previous year does not count",
			existing: []string{"0041/ATK/12/2024", "0042/ATK/12/2024"},
			period:   jan2025,
			format:   format,
			prefix:   "0001",
			want:     "0001/ATK/01/2025",
		},
		{
			name:     "sequence runs across months of the year",
			existing: []string{"0005/ATK/01/2025"},
			period:   time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
			format:   format,
			prefix:   "0001",
			want:     "0006/ATK/03/2025",
		},
		{
			name:   "empty set issues the seed",
			period: jan2025,
			format: format,
			prefix: "0100",
			want:   "0100/ATK/01/2025",
		},
		{
			name:     "seed above highest wins",
			existing: []string{"0002/ATK/01/2025"},
			period:   jan2025,
			format:   format,
			prefix:   "0050",
			want:     "0051/ATK/01/2025",
		},
		{
			name:     "foreign shapes are ignored",
			existing: []string{"", "draft", "12/XYZ/01/2025", "0007/ATK/13/2025"},
			period:   jan2025,
			format:   format,
			prefix:   "0001",
			want:     "0001/ATK/01/2025",
		},
		{
			name:   "unparsable prefix seeds at one",
			period: jan2025,
			format: format,
			prefix: "abc",
			want:   "0001/ATK/01/2025",
		},
		{
			name:     "custom template",
			existing: []string{"BPS-2025-0009"},
			period:   jan2025,
			format:   "BPS-{YYYY}-{AUTO}",
			prefix:   "1",
			want:     "BPS-2025-0010",
		},
		{
			name:     "wide sequence keeps its width",
			existing: []string{"12345/ATK/01/2025"},
			period:   jan2025,
			format:   format,
			prefix:   "0001",
			want:     "12346/ATK/01/2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDocumentNumber(tt.existing, tt.period, tt.format, tt.prefix)
			if got != tt.want {
				t.Errorf("NextDocumentNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextDocumentNumber_Deterministic(t *testing.T) {
	existing := []string{"0003/ATK/01/2025", "0001/ATK/01/2025"}
	period := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NextDocumentNumber(existing, period, "{AUTO}/ATK/{MM}/{YYYY}", "0001")
	b := NextDocumentNumber([]string{existing[1], existing[0]}, period, "{AUTO}/ATK/{MM}/{YYYY}", "0001")
	if a != b {
		t.Errorf("order dependent: %q vs %q", a, b)
	}
}

func TestPreviewDocumentNumber(t *testing.T) {
	got := PreviewDocumentNumber("{AUTO}/ATK/{MM}/{YYYY}", "0007", time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC))
	if got != "0007/ATK/11/2025" {
		t.Errorf("preview = %q", got)
	}
}
