// Package entity holds the restaurant records mirrored from the remote store
// and the per-type schemas (key, display order, freshness window) the caches need.
package entity

import (
	"fmt"
	"time"
)

// Collection names in the remote store
const (
	CollectionMenuItems     = "menu_items"
	CollectionOffers        = "offers"
	CollectionReviews       = "reviews"
	CollectionBusinessHours = "business_hours"
)

// Persisted snapshot freshness per entity type
const (
	MenuMaxAge    = 6 * time.Hour
	OffersMaxAge  = 1 * time.Hour
	ReviewsMaxAge = 6 * time.Hour
	HoursMaxAge   = 24 * time.Hour
)

// ErrInvalid is returned by Validate methods
func ErrInvalid(kind, msg string) error {
	return fmt.Errorf("entity: invalid %s: %s", kind, msg)
}

// newestFirst orders by creation time descending, ties broken by id
func newestFirst(ac, bc time.Time, aid, bid string) bool {
	if !ac.Equal(bc) {
		return ac.After(bc)
	}
	return aid < bid
}
