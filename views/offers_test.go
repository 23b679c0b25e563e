package views

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trattoria/livesync/entity"
)

var base = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func offerIDs(offers []entity.Offer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.ID
	}
	return out
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestUpcomingOffers_DatedBeforeUndated(t *testing.T) {
	offers := []entity.Offer{
		{ID: "undated", IsActive: true, IsUpcoming: true, CreatedAt: base},
		{ID: "dated", IsActive: true, IsUpcoming: true, AvailabilityDate: at(10 * 24 * time.Hour), CreatedAt: base},
	}

	got := offerIDs(UpcomingOffers(offers))
	if want := []string{"dated", "undated"}; !sameIDs(got, want) {
		t.Errorf("UpcomingOffers() = %v, want %v", got, want)
	}
}

func TestUpcomingOffers_Ordering(t *testing.T) {
	offers := []entity.Offer{
		{ID: "late", IsActive: true, IsUpcoming: true, AvailabilityDate: at(72 * time.Hour), CreatedAt: base},
		{ID: "soon-old", IsActive: true, IsUpcoming: true, AvailabilityDate: at(24 * time.Hour), CreatedAt: base},
		{ID: "soon-new", IsActive: true, IsUpcoming: true, AvailabilityDate: at(24 * time.Hour), CreatedAt: base.Add(time.Hour)},
		{ID: "nodate-b", IsActive: true, IsUpcoming: true, CreatedAt: base},
		{ID: "nodate-a", IsActive: true, IsUpcoming: true, CreatedAt: base},
		{ID: "inactive", IsActive: false, IsUpcoming: true, AvailabilityDate: at(time.Hour)},
		{ID: "current", IsActive: true, IsUpcoming: false},
	}

	got := offerIDs(UpcomingOffers(offers))
	want := []string{"soon-new", "soon-old", "late", "nodate-a", "nodate-b"}
	if !sameIDs(got, want) {
		t.Errorf("UpcomingOffers() = %v, want %v", got, want)
	}
}

func TestCurrentOffers(t *testing.T) {
	offers := []entity.Offer{
		{ID: "old", IsActive: true, CreatedAt: base},
		{ID: "new", IsActive: true, CreatedAt: base.Add(time.Hour)},
		{ID: "tie", IsActive: true, CreatedAt: base},
		{ID: "upcoming", IsActive: true, IsUpcoming: true, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "off", IsActive: false, CreatedAt: base.Add(3 * time.Hour)},
	}

	got := offerIDs(CurrentOffers(offers))
	if want := []string{"new", "old", "tie"}; !sameIDs(got, want) {
		t.Errorf("CurrentOffers() = %v, want %v", got, want)
	}
	if got := CurrentOffers(nil); got == nil || len(got) != 0 {
		t.Errorf("CurrentOffers(nil) = %#v, want empty slice", got)
	}
}

func TestActiveAt(t *testing.T) {
	offers := []entity.Offer{
		{ID: "open-ended", IsActive: true, Discount: decimal.NewFromInt(10)},
		{ID: "expired", IsActive: true, ValidUntil: at(-time.Hour)},
		{ID: "not-yet", IsActive: true, AvailabilityDate: at(time.Hour)},
		{ID: "window", IsActive: true, AvailabilityDate: at(-time.Hour), ValidUntil: at(time.Hour)},
	}

	got := offerIDs(ActiveAt(base)(offers))
	if want := []string{"open-ended", "window"}; !sameIDs(got, want) {
		t.Errorf("ActiveAt() = %v, want %v", got, want)
	}
}
