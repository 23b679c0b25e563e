package entity

import (
	"strings"
	"time"

	"github.com/trattoria/livesync/cache"
)

// Review is a guest review shown in the carousel
type Review struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Featured  bool      `json:"featured"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the author and the 1..5 rating range
func (r Review) Validate() error {
	if strings.TrimSpace(r.Author) == "" {
		return ErrInvalid("review", "author is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalid("review", "rating must be between 1 and 5")
	}
	return nil
}

// ReviewID returns the key of a review
func ReviewID(r Review) string { return r.ID }

// ReviewWithID returns r with its key set
func ReviewWithID(r Review, id string) Review {
	r.ID = id
	return r
}

// ReviewSchema orders reviews newest first
func ReviewSchema() cache.Schema[Review] {
	return cache.Schema[Review]{
		Key: ReviewID,
		Less: func(a, b Review) bool {
			return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		},
	}
}
