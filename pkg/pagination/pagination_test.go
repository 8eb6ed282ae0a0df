package pagination

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		page, limit int
		want        Params
	}{
		{0, 0, Params{Page: 1, Limit: DefaultLimit, Offset: 0}},
		{3, 10, Params{Page: 3, Limit: 10, Offset: 20}},
		{1, 1000, Params{Page: 1, Limit: MaxLimit, Offset: 0}},
		{-2, 5, Params{Page: 1, Limit: 5, Offset: 0}},
	}
	for _, tt := range tests {
		if got := New(tt.page, tt.limit); got != tt.want {
			t.Errorf("New(%d, %d) = %+v, want %+v", tt.page, tt.limit, got, tt.want)
		}
	}
}

func TestParams_Window(t *testing.T) {
	tests := []struct {
		p          Params
		total      int
		start, end int
	}{
		{New(1, 10), 25, 0, 10},
		{New(3, 10), 25, 20, 25},
		{New(4, 10), 25, 25, 25},
		{New(1, 10), 0, 0, 0},
	}
	for _, tt := range tests {
		start, end := tt.p.Window(tt.total)
		if start != tt.start || end != tt.end {
			t.Errorf("%+v.Window(%d) = %d,%d want %d,%d", tt.p, tt.total, start, end, tt.start, tt.end)
		}
	}
}
