package views

import (
	"sort"

	"github.com/trattoria/livesync/entity"
)

// CategoryGroup is one menu section
type CategoryGroup struct {
	Category string
	Items    []entity.MenuItem
}

// Favorites returns the items flagged as favorite, in input order
func Favorites(items []entity.MenuItem) []entity.MenuItem {
	out := make([]entity.MenuItem, 0)
	for _, item := range items {
		if item.Favorite {
			out = append(out, item)
		}
	}
	return out
}

// AvailableFavorites is Favorites without the items currently off the menu
func AvailableFavorites(items []entity.MenuItem) []entity.MenuItem {
	out := make([]entity.MenuItem, 0)
	for _, item := range Favorites(items) {
		if item.Available {
			out = append(out, item)
		}
	}
	return out
}

// AvailableByCategory groups available items by category. Groups are sorted
// by category name; items keep their input order.
func AvailableByCategory(items []entity.MenuItem) []CategoryGroup {
	index := make(map[string]int)
	groups := make([]CategoryGroup, 0)
	for _, item := range items {
		if !item.Available {
			continue
		}
		i, ok := index[item.Category]
		if !ok {
			i = len(groups)
			index[item.Category] = i
			groups = append(groups, CategoryGroup{Category: item.Category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups
}
