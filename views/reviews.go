package views

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/trattoria/livesync/entity"
)

// ReviewSummary aggregates the cached reviews
type ReviewSummary struct {
	Count   int
	Average float64
	// Rounded is Average rounded half away from zero to one decimal place
	Rounded decimal.Decimal
	// Distribution counts reviews per rating; index 0 holds one-star reviews
	Distribution [5]int
}

// AverageRating returns the arithmetic mean of all ratings, or 0 without reviews
func AverageRating(reviews []entity.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// Summarize returns count, average and rating distribution.
// Ratings outside 1..5 count toward the average but not the distribution.
func Summarize(reviews []entity.Review) ReviewSummary {
	s := ReviewSummary{Count: len(reviews), Average: AverageRating(reviews)}
	s.Rounded = decimal.NewFromFloat(s.Average).Round(1)
	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			s.Distribution[r.Rating-1]++
		}
	}
	return s
}

// Featured returns the featured reviews, newest first
func Featured(reviews []entity.Review) []entity.Review {
	out := make([]entity.Review, 0)
	for _, r := range reviews {
		if r.Featured {
			out = append(out, r)
		}
	}
	sortNewest(out)
	return out
}

// Latest returns a projection of the n newest reviews
func Latest(n int) func([]entity.Review) []entity.Review {
	return func(reviews []entity.Review) []entity.Review {
		out := append([]entity.Review(nil), reviews...)
		sortNewest(out)
		if n >= 0 && len(out) > n {
			out = out[:n]
		}
		if out == nil {
			out = []entity.Review{}
		}
		return out
	}
}

func sortNewest(reviews []entity.Review) {
	sort.Slice(reviews, func(i, j int) bool {
		a, b := reviews[i], reviews[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
