package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trattoria/livesync/cache"
)

// MenuItem is a dish or drink shown on the menu page
type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Favorite    bool            `json:"favorite"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Validate checks the fields an admin must fill in
func (m MenuItem) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrInvalid("menu item", "name is required")
	}
	if strings.TrimSpace(m.Category) == "" {
		return ErrInvalid("menu item", "category is required")
	}
	if m.Price.IsNegative() {
		return ErrInvalid("menu item", "price must not be negative")
	}
	return nil
}

// MenuItemID returns the key of a menu item
func MenuItemID(m MenuItem) string { return m.ID }

// MenuItemWithID returns m with its key set
func MenuItemWithID(m MenuItem, id string) MenuItem {
	m.ID = id
	return m
}

// MenuSchema orders items by category, then name, then id
func MenuSchema() cache.Schema[MenuItem] {
	return cache.Schema[MenuItem]{
		Key: MenuItemID,
		Less: func(a, b MenuItem) bool {
			if a.Category != b.Category {
				return a.Category < b.Category
			}
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		},
	}
}
