package views

import (
	"time"

	"github.com/trattoria/livesync/entity"
)

// Today is the opening window of the current local day
type Today struct {
	Weekday string
	Hours   entity.DayHours
	// Known is false when no schedule or no entry for the day exists
	Known bool
}

// Primary returns the schedule document with the smallest id
func Primary(docs []entity.BusinessHours) (entity.BusinessHours, bool) {
	if len(docs) == 0 {
		return entity.BusinessHours{}, false
	}
	best := docs[0]
	for _, d := range docs[1:] {
		if d.ID < best.ID {
			best = d
		}
	}
	return best, true
}

// TodayHours returns a projection of the primary schedule's entry for now's
// weekday in the schedule's timezone
func TodayHours(now time.Time) func([]entity.BusinessHours) Today {
	return func(docs []entity.BusinessHours) Today {
		h, ok := Primary(docs)
		if !ok {
			return Today{}
		}
		local := now.In(h.Location())
		key := entity.WeekdayKey(local.Weekday())
		day, ok := h.Days[key]
		return Today{Weekday: key, Hours: day, Known: ok}
	}
}

// IsOpen returns a projection telling whether the restaurant is open at now.
// A window whose close is not after its open runs past midnight into the next day.
func IsOpen(now time.Time) func([]entity.BusinessHours) bool {
	return func(docs []entity.BusinessHours) bool {
		h, ok := Primary(docs)
		if !ok {
			return false
		}
		local := now.In(h.Location())
		minute := local.Hour()*60 + local.Minute()

		if day, ok := h.Days[entity.WeekdayKey(local.Weekday())]; ok && !day.Closed {
			openAt, okOpen := clockMinutes(day.Open)
			closeAt, okClose := clockMinutes(day.Close)
			if okOpen && okClose {
				if closeAt > openAt && minute >= openAt && minute < closeAt {
					return true
				}
				if closeAt <= openAt && minute >= openAt {
					return true
				}
			}
		}

		yesterday := local.AddDate(0, 0, -1).Weekday()
		if day, ok := h.Days[entity.WeekdayKey(yesterday)]; ok && !day.Closed {
			openAt, okOpen := clockMinutes(day.Open)
			closeAt, okClose := clockMinutes(day.Close)
			if okOpen && okClose && closeAt <= openAt && minute < closeAt {
				return true
			}
		}
		return false
	}
}

// clockMinutes parses HH:MM into minutes after midnight
func clockMinutes(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
