package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trattoria/livesync/cache"
)

// Offer is a promotion. Upcoming offers are announced before they become available.
type Offer struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Discount         decimal.Decimal `json:"discount"`
	IsActive         bool            `json:"isActive"`
	IsUpcoming       bool            `json:"isUpcoming"`
	AvailabilityDate *time.Time      `json:"availabilityDate,omitempty"`
	ValidUntil       *time.Time      `json:"validUntil,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Validate checks the fields an admin must fill in
func (o Offer) Validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return ErrInvalid("offer", "title is required")
	}
	if o.Discount.IsNegative() || o.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalid("offer", "discount must be between 0 and 100")
	}
	if o.AvailabilityDate != nil && o.ValidUntil != nil && o.ValidUntil.Before(*o.AvailabilityDate) {
		return ErrInvalid("offer", "validUntil is before availabilityDate")
	}
	return nil
}

// OfferID returns the key of an offer
func OfferID(o Offer) string { return o.ID }

// OfferWithID returns o with its key set
func OfferWithID(o Offer, id string) Offer {
	o.ID = id
	return o
}

// OfferSchema orders offers newest first
func OfferSchema() cache.Schema[Offer] {
	return cache.Schema[Offer]{
		Key: OfferID,
		Less: func(a, b Offer) bool {
			return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		},
	}
}
