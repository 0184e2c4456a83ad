package schedule

import (
	"testing"
	"time"

	"shifter/shift-service/internal/models"
)

func TestOverlapsMatchesStrictInequality(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	// Every interval pair with endpoints in [0, 6].
	for aStart := 0; aStart < 6; aStart++ {
		for aEnd := aStart + 1; aEnd <= 6; aEnd++ {
			for bStart := 0; bStart < 6; bStart++ {
				for bEnd := bStart + 1; bEnd <= 6; bEnd++ {
					want := aStart < bEnd && aEnd > bStart
					got := Overlaps(at(aStart), at(aEnd), at(bStart), at(bEnd))
					if got != want {
						t.Fatalf("Overlaps([%d,%d), [%d,%d))=%v, want %v", aStart, aEnd, bStart, bEnd, got, want)
					}
					if sym := Overlaps(at(bStart), at(bEnd), at(aStart), at(aEnd)); sym != got {
						t.Fatalf("Overlaps not symmetric for [%d,%d) and [%d,%d)", aStart, aEnd, bStart, bEnd)
					}
				}
			}
		}
	}
}

func TestConflictOf(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []models.Shift{
		{ID: 1, StartTime: base.Add(9 * time.Hour), EndTime: base.Add(12 * time.Hour)},
		{ID: 2, StartTime: base.Add(14 * time.Hour), EndTime: base.Add(17 * time.Hour)},
	}

	cases := []struct {
		name      string
		start     time.Duration
		end       time.Duration
		excludeID int64
		wantID    int64
	}{
		{"touching end", 12 * time.Hour, 14 * time.Hour, 0, 0},
		{"inside second", 15 * time.Hour, 16 * time.Hour, 0, 2},
		{"spanning both returns first", 8 * time.Hour, 18 * time.Hour, 0, 1},
		{"self excluded", 9 * time.Hour, 12 * time.Hour, 1, 0},
		{"exclude does not hide others", 11 * time.Hour, 15 * time.Hour, 1, 2},
	}
	for _, tt := range cases {
		got, found := ConflictOf(existing, base.Add(tt.start), base.Add(tt.end), tt.excludeID)
		if tt.wantID == 0 {
			if found {
				t.Fatalf("%s: unexpected conflict with %d", tt.name, got.ID)
			}
			continue
		}
		if !found || got.ID != tt.wantID {
			t.Fatalf("%s: got (%d, %v), want %d", tt.name, got.ID, found, tt.wantID)
		}
	}

	if _, found := ConflictOf(nil, base, base.Add(time.Hour), 0); found {
		t.Fatalf("expected no conflict on empty list")
	}
}
