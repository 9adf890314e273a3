package attendance

import (
	"testing"
	"time"
)

func TestTrendStartWindowIsExact(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	start := trendStart(today, 7)
	if want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("trendStart(7) = %s, want %s", start.Format("2006-01-02"), want.Format("2006-01-02"))
	}
	// Inclusive bounds: start..today spans exactly seven calendar days.
	if days := int(today.Sub(start).Hours()/24) + 1; days != 7 {
		t.Errorf("window spans %d days, want 7", days)
	}

	if start := trendStart(today, 1); !start.Equal(today) {
		t.Errorf("trendStart(1) = %s, want today", start.Format("2006-01-02"))
	}
	if start := trendStart(today, 0); !start.Equal(today) {
		t.Errorf("trendStart(0) = %s, want clamp to today", start.Format("2006-01-02"))
	}
}
