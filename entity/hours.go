package entity

import (
	"regexp"
	"strings"
	"time"

	"github.com/trattoria/livesync/cache"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// DayHours is the opening window of one weekday. Close before Open means past midnight.
type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed"`
}

// BusinessHours is a weekly schedule document keyed by lowercase weekday name
type BusinessHours struct {
	ID        string              `json:"id"`
	Timezone  string              `json:"timezone,omitempty"`
	Days      map[string]DayHours `json:"days"`
	Note      string              `json:"note,omitempty"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// WeekdayKey returns the Days key for d
func WeekdayKey(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// Location resolves Timezone, falling back to UTC when empty or unknown
func (h BusinessHours) Location() *time.Location {
	if h.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks weekday keys and HH:MM clock values
func (h BusinessHours) Validate() error {
	if len(h.Days) == 0 {
		return ErrInvalid("business hours", "days are required")
	}
	for key, day := range h.Days {
		if !validWeekday(key) {
			return ErrInvalid("business hours", "unknown weekday "+key)
		}
		if day.Closed {
			continue
		}
		if !clockPattern.MatchString(day.Open) || !clockPattern.MatchString(day.Close) {
			return ErrInvalid("business hours", "open and close must be HH:MM for "+key)
		}
	}
	if h.Timezone != "" {
		if _, err := time.LoadLocation(h.Timezone); err != nil {
			return ErrInvalid("business hours", "unknown timezone "+h.Timezone)
		}
	}
	return nil
}

func validWeekday(key string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if WeekdayKey(d) == key {
			return true
		}
	}
	return false
}

// BusinessHoursID returns the key of an hours document
func BusinessHoursID(h BusinessHours) string { return h.ID }

// BusinessHoursWithID returns h with its key set
func BusinessHoursWithID(h BusinessHours, id string) BusinessHours {
	h.ID = id
	return h
}

// HoursSchema orders documents by id
func HoursSchema() cache.Schema[BusinessHours] {
	return cache.Schema[BusinessHours]{Key: BusinessHoursID}
}
