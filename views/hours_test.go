package views

import (
	"testing"
	"time"

	"github.com/trattoria/livesync/entity"
)

func schedule() []entity.BusinessHours {
	return []entity.BusinessHours{{
		ID:       "main",
		Timezone: "Europe/Rome",
		Days: map[string]entity.DayHours{
			"monday":   {Closed: true},
			"tuesday":  {Open: "12:00", Close: "23:00"},
			"friday":   {Open: "18:00", Close: "02:00"},
			"saturday": {Open: "18:00", Close: "02:00"},
		},
	}}
}

func rome(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestIsOpen(t *testing.T) {
	tests := []struct {
		name string
		at   string
		want bool
	}{
		{"tuesday lunch", "2026-06-02 12:30", true},
		{"tuesday before opening", "2026-06-02 11:59", false},
		{"tuesday at closing", "2026-06-02 23:00", false},
		{"monday closed", "2026-06-01 20:00", false},
		{"friday evening", "2026-06-05 21:00", true},
		{"saturday after midnight from friday", "2026-06-06 01:30", true},
		{"saturday after friday closing", "2026-06-06 02:00", false},
		{"sunday after midnight from saturday", "2026-06-07 01:00", true},
		{"sunday no entry", "2026-06-07 20:00", false},
		{"wednesday no entry", "2026-06-03 13:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOpen(rome(t, tt.at))(schedule()); got != tt.want {
				t.Errorf("IsOpen(%s) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	if IsOpen(time.Now())(nil) {
		t.Error("IsOpen without a schedule must be false")
	}
}

func TestTodayHours(t *testing.T) {
	// 23:30 UTC on Monday is already Tuesday in Rome
	now := time.Date(2026, 6, 1, 23, 30, 0, 0, time.UTC)
	if _, err := time.LoadLocation("Europe/Rome"); err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	today := TodayHours(now)(schedule())
	if !today.Known || today.Weekday != "tuesday" || today.Hours.Open != "12:00" {
		t.Errorf("TodayHours() = %+v", today)
	}

	sunday := TodayHours(time.Date(2026, 6, 7, 12, 0, 0, 0, time.UTC))(schedule())
	if sunday.Known || sunday.Weekday != "sunday" {
		t.Errorf("TodayHours(sunday) = %+v", sunday)
	}

	if got := TodayHours(now)(nil); got.Known {
		t.Errorf("TodayHours(nil) = %+v", got)
	}
}

func TestPrimary(t *testing.T) {
	docs := []entity.BusinessHours{{ID: "terrace"}, {ID: "main"}}
	if h, ok := Primary(docs); !ok || h.ID != "main" {
		t.Errorf("Primary() = %+v, %v", h, ok)
	}
}
