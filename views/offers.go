package views

import (
	"sort"
	"time"

	"github.com/trattoria/livesync/entity"
)

// CurrentOffers returns active, not upcoming offers, newest first. Ties are ordered by id.
func CurrentOffers(offers []entity.Offer) []entity.Offer {
	out := make([]entity.Offer, 0)
	for _, o := range offers {
		if o.IsActive && !o.IsUpcoming {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i], out[j]) })
	return out
}

// UpcomingOffers returns active upcoming offers by availability date ascending.
// Offers without a date come last; ties are newest first, then by id.
func UpcomingOffers(offers []entity.Offer) []entity.Offer {
	out := make([]entity.Offer, 0)
	for _, o := range offers {
		if o.IsActive && o.IsUpcoming {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].AvailabilityDate, out[j].AvailabilityDate
		switch {
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return newestFirst(out[i], out[j])
	})
	return out
}

// ActiveAt returns a projection of the current offers whose validity window contains now
func ActiveAt(now time.Time) func([]entity.Offer) []entity.Offer {
	return func(offers []entity.Offer) []entity.Offer {
		out := make([]entity.Offer, 0)
		for _, o := range CurrentOffers(offers) {
			if o.AvailabilityDate != nil && now.Before(*o.AvailabilityDate) {
				continue
			}
			if o.ValidUntil != nil && now.After(*o.ValidUntil) {
				continue
			}
			out = append(out, o)
		}
		return out
	}
}

func newestFirst(a, b entity.Offer) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
