package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"potager/internal/types"
)

// LegacyJournal is a legacy journal document decoded into normalized
// events. Warnings list the entries that were skipped, each carrying
// the offending payload.
type LegacyJournal struct {
	Waterings []types.WateringEvent
	Mowings   []types.MowingEvent
	Warnings  []string
}

// legacyFile mirrors the historical journal_jardin.json layout. Both
// lists hold mixed shapes, so they decode lazily.
type legacyFile struct {
	Waterings []json.RawMessage `json:"arrosages"`
	Mowings   []json.RawMessage `json:"tontes"`
}

// legacyWateringEntry is the object variant of a watering entry. The
// historical files used the French field name.
type legacyWateringEntry struct {
	Date    string   `json:"date"`
	Plants  []string `json:"plants"`
	Plantes []string `json:"plantes"`
}

// legacyMowingEntry is the object variant of a mowing entry. Older
// files carried the date as a list of strings; the latest one wins.
type legacyMowingEntry struct {
	Date     json.RawMessage `json:"date"`
	Hauteur  *float64        `json:"hauteur"`
	HeightCM *float64        `json:"height_cm"`
}

// ParseLegacyJournal decodes a legacy journal document of the form
// {"arrosages": [...], "tontes": [...]}.
//
// Watering entries are either bare date strings (a whole-garden
// watering) or {date, plants[]} objects; mowing entries are bare date
// strings or {date, hauteur|height_cm} objects. Malformed entries are
// skipped and reported in Warnings; only an unreadable envelope is an
// error. Missing lists decode as empty.
func ParseLegacyJournal(raw []byte) (*LegacyJournal, error) {
	var file legacyFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("journal: decoding legacy journal: %w", err)
	}

	out := &LegacyJournal{}
	for i, entry := range file.Waterings {
		ev, err := decodeLegacyWatering(entry)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"skipping watering entry %d (%s): %v", i, compactPayload(entry), err))
			continue
		}
		out.Waterings = append(out.Waterings, NormalizeWatering(ev))
	}
	for i, entry := range file.Mowings {
		ev, err := decodeLegacyMowing(entry)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"skipping mowing entry %d (%s): %v", i, compactPayload(entry), err))
			continue
		}
		out.Mowings = append(out.Mowings, NormalizeMowing(ev))
	}
	return out, nil
}

func decodeLegacyWatering(raw json.RawMessage) (types.WateringEvent, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		d, err := parseLegacyDate(s)
		if err != nil {
			return types.WateringEvent{}, err
		}
		return types.WateringEvent{Date: d}, nil
	}

	var obj legacyWateringEntry
	if err := json.Unmarshal(raw, &obj); err != nil {
		return types.WateringEvent{}, fmt.Errorf("neither a date string nor an object")
	}
	d, err := parseLegacyDate(obj.Date)
	if err != nil {
		return types.WateringEvent{}, err
	}
	plants := obj.Plants
	if len(plants) == 0 {
		plants = obj.Plantes
	}
	return types.WateringEvent{Date: d, Plants: plants}, nil
}

func decodeLegacyMowing(raw json.RawMessage) (types.MowingEvent, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		d, err := parseLegacyDate(s)
		if err != nil {
			return types.MowingEvent{}, err
		}
		return types.MowingEvent{Date: d}, nil
	}

	var obj legacyMowingEntry
	if err := json.Unmarshal(raw, &obj); err != nil {
		return types.MowingEvent{}, fmt.Errorf("neither a date string nor an object")
	}
	if len(obj.Date) == 0 {
		return types.MowingEvent{}, fmt.Errorf("missing date")
	}

	d, err := decodeLegacyMowingDate(obj.Date)
	if err != nil {
		return types.MowingEvent{}, err
	}
	height := obj.HeightCM
	if height == nil {
		height = obj.Hauteur
	}
	return types.MowingEvent{Date: d, CutHeightCM: height}, nil
}

// decodeLegacyMowingDate accepts a single date string or a list of
// them, keeping the latest.
func decodeLegacyMowingDate(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseLegacyDate(s)
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return time.Time{}, fmt.Errorf("unexpected date shape")
	}
	var latest time.Time
	for _, s := range list {
		d, err := parseLegacyDate(s)
		if err != nil {
			return time.Time{}, err
		}
		if d.After(latest) {
			latest = d
		}
	}
	return latest, nil
}

// parseLegacyDate accepts the canonical civil form and, for files
// written by hand or by older exports, full RFC 3339 timestamps.
func parseLegacyDate(s string) (time.Time, error) {
	if d, err := types.ParseDay(s); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return types.Day(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// compactPayload renders the raw entry for a warning without letting a
// pathological one flood the log.
func compactPayload(raw json.RawMessage) string {
	const max = 120
	s := string(raw)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
