package services

import (
	"testing"

	"inventory-dashboard/internal/models"
)

func TestWindowOf_LengthAndOrder(t *testing.T) {
	series := linearSeries(60, 1000, 10)

	tests := []struct {
		days int
		want int
	}{
		{7, 7},
		{30, 30},
		{60, 60},
		{365, 60},
		{0, 0},
		{-5, 0},
	}

	for _, tt := range tests {
		window := WindowOf(series, tt.days)
		if len(window) != tt.want {
			t.Fatalf("days=%d: expected %d snapshots, got %d", tt.days, tt.want, len(window))
		}
		if tt.want == 0 {
			if window == nil {
				t.Fatalf("days=%d: expected empty non-nil slice", tt.days)
			}
			continue
		}
		if window[len(window)-1].Date != series[len(series)-1].Date {
			t.Fatalf("days=%d: window must end with the latest snapshot", tt.days)
		}
		for i := 1; i < len(window); i++ {
			if !window[i].Date.After(window[i-1].Date.Time) {
				t.Fatalf("days=%d: window not chronological at %d", tt.days, i)
			}
		}
	}
}

func TestWindowOf_EmptySeries(t *testing.T) {
	if got := WindowOf(nil, 30); len(got) != 0 {
		t.Fatalf("expected empty window, got %d", len(got))
	}
}

func TestWindowOf_DoesNotAliasSource(t *testing.T) {
	series := linearSeries(10, 1000, 10)
	window := WindowOf(series, 5)
	window[0].TotalValue = -1

	if series[5].TotalValue == -1 {
		t.Fatalf("window must be a copy of the series")
	}
}

func TestPreviousWindow(t *testing.T) {
	series := linearSeries(50, 0, 1)

	prev := previousWindow(series, 30)
	if len(prev) != 20 {
		t.Fatalf("expected 20 previous snapshots, got %d", len(prev))
	}
	current := WindowOf(series, 30)
	if !prev[len(prev)-1].Date.Before(current[0].Date.Time) {
		t.Fatalf("previous window must end before the current one starts")
	}

	if got := previousWindow(series, 60); len(got) != 0 {
		t.Fatalf("expected empty previous window when the current covers the series, got %d", len(got))
	}
	if got := previousWindow([]models.DailySnapshot{}, 7); len(got) != 0 {
		t.Fatalf("expected empty previous window for empty series")
	}
}
