package views

import (
	"testing"
	"time"

	"github.com/trattoria/livesync/entity"
)

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    float64
	}{
		{"no reviews", nil, 0},
		{"single", []int{4}, 4},
		{"mean", []int{5, 4, 3, 5}, 4.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reviews []entity.Review
			for i, r := range tt.ratings {
				reviews = append(reviews, entity.Review{ID: string(rune('a' + i)), Rating: r})
			}
			if got := AverageRating(reviews); got != tt.want {
				t.Errorf("AverageRating() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	reviews := []entity.Review{{Rating: 5}, {Rating: 5}, {Rating: 4}, {Rating: 1}, {Rating: 4}, {Rating: 4}}

	s := Summarize(reviews)
	if s.Count != 6 {
		t.Errorf("Count = %d, want 6", s.Count)
	}
	if s.Rounded.String() != "3.8" {
		t.Errorf("Rounded = %s, want 3.8", s.Rounded)
	}
	if s.Distribution != [5]int{1, 0, 0, 3, 2} {
		t.Errorf("Distribution = %v", s.Distribution)
	}

	empty := Summarize(nil)
	if empty.Average != 0 || !empty.Rounded.IsZero() {
		t.Errorf("Summarize(nil) = %+v", empty)
	}
}

func TestFeaturedAndLatest(t *testing.T) {
	reviews := []entity.Review{
		{ID: "r1", Featured: true, CreatedAt: base},
		{ID: "r2", CreatedAt: base.Add(time.Hour)},
		{ID: "r3", Featured: true, CreatedAt: base.Add(2 * time.Hour)},
	}

	featured := Featured(reviews)
	if len(featured) != 2 || featured[0].ID != "r3" || featured[1].ID != "r1" {
		t.Errorf("Featured() = %+v", featured)
	}

	latest := Latest(2)(reviews)
	if len(latest) != 2 || latest[0].ID != "r3" || latest[1].ID != "r2" {
		t.Errorf("Latest(2) = %+v", latest)
	}
	if reviews[0].ID != "r1" {
		t.Error("Latest must not reorder its input")
	}
	if got := Latest(5)(nil); got == nil || len(got) != 0 {
		t.Errorf("Latest(nil) = %#v", got)
	}
}
