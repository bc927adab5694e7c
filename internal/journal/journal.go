// Package journal normalizes garden journal entries and derives
// activity statistics from them. Past the load boundary only the
// normalized event shapes circulate: civil dates, lowercase trimmed
// plant names, no duplicates. Legacy file decoding lives in legacy.go
// and is used by the import tool only.
package journal

import (
	"potager/internal/catalog"
	"potager/internal/types"
)

// NormalizeWatering returns the event with its date truncated to the
// civil day and its plant list normalized: names lowercased and
// trimmed, empties and duplicates dropped. An event whose list ends up
// empty waters the whole garden.
func NormalizeWatering(ev types.WateringEvent) types.WateringEvent {
	ev.Date = types.Day(ev.Date)
	if len(ev.Plants) == 0 {
		return ev
	}
	seen := make(map[string]bool, len(ev.Plants))
	var plants []string
	for _, p := range ev.Plants {
		n := catalog.NormalizeName(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		plants = append(plants, n)
	}
	ev.Plants = plants
	return ev
}

// NormalizeMowing returns the event with its date truncated to the
// civil day.
func NormalizeMowing(ev types.MowingEvent) types.MowingEvent {
	ev.Date = types.Day(ev.Date)
	return ev
}
