package pack

import (
	"sort"

	"git.home.luguber.info/inful/sitepress/internal/content"
	"git.home.luguber.info/inful/sitepress/internal/fields"
)

// SortValue returns the value a unit is sorted by. "slug" refers to the
// unit's slug, anything else to a field.
func SortValue(u *content.Unit, key string) (any, bool) {
	if key == "slug" {
		return u.Slug, u.Slug != ""
	}
	v, ok := u.Fields[key]
	return v, ok && v != nil
}

// SortUnits stably sorts units by key. Units lacking the key go last in
// either direction; ties keep their input order.
func SortUnits(units []*content.Unit, key string, reverse bool) {
	sort.SliceStable(units, func(i, j int) bool {
		a, aok := SortValue(units[i], key)
		b, bok := SortValue(units[j], key)
		if !aok || !bok {
			return aok && !bok
		}
		c := fields.Compare(a, b)
		if reverse {
			return c > 0
		}
		return c < 0
	})
}

// Chain links each unit to its neighbours in slice order.
func Chain(units []*content.Unit) {
	for i, u := range units {
		u.Prev, u.Next = nil, nil
		if i > 0 {
			u.Prev = units[i-1]
		}
		if i < len(units)-1 {
			u.Next = units[i+1]
		}
	}
}
