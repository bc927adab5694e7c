package types

import (
	"fmt"
	"net/mail"
	"time"
)

// Validation constraint constants.
const (
	MinLat              = -90.0
	MaxLat              = 90.0
	MinLon              = -180.0
	MaxLon              = 180.0
	MinAltitudeM        = -430.0 // Dead Sea shore
	MaxAltitudeM        = 4810.0 // Mont Blanc
	MaxPlantNameLength  = 100
	MaxTrackedPlants    = 100
	MaxPlantsPerEvent   = 50
	MaxNoteLength       = 500
	MinCutHeightCM      = 1.0
	MaxCutHeightCM      = 20.0
	MaxJournalRangeDays = 366
)

// ValidateCoordinates checks that a latitude/longitude pair is on the globe.
func ValidateCoordinates(lat, lon float64) error {
	if lat < MinLat || lat > MaxLat {
		return NewAppError(ErrCodeValidationInvalidLat, fmt.Sprintf("latitude %.4f outside [%.0f, %.0f]", lat, MinLat, MaxLat), nil)
	}
	if lon < MinLon || lon > MaxLon {
		return NewAppError(ErrCodeValidationInvalidLon, fmt.Sprintf("longitude %.4f outside [%.0f, %.0f]", lon, MinLon, MaxLon), nil)
	}
	return nil
}

// ValidateCutHeight checks a mowing cut height in centimeters.
func ValidateCutHeight(cm float64) error {
	if cm < MinCutHeightCM || cm > MaxCutHeightCM {
		return NewAppError(ErrCodeValidationInvalidHeight,
			fmt.Sprintf("cut height %.1f cm outside [%.0f, %.0f]", cm, MinCutHeightCM, MaxCutHeightCM), nil)
	}
	return nil
}

// ValidateDayRange ensures from <= to and the span stays within the
// maximum journal query range.
func ValidateDayRange(from, to time.Time) error {
	if Day(to).Before(Day(from)) {
		return NewAppError(ErrCodeValidationDateRange, "range end precedes its start", nil)
	}
	if DaysBetween(from, to) > MaxJournalRangeDays {
		return NewAppError(ErrCodeValidationDateRange,
			fmt.Sprintf("range exceeds %d days", MaxJournalRangeDays), nil)
	}
	return nil
}

// ValidateMonth checks a calendar month number.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return NewAppError(ErrCodeValidationInvalidMonth, fmt.Sprintf("month %d outside [1, 12]", month), nil)
	}
	return nil
}

// ValidateGardenProfile applies the business rules for a complete
// garden profile. Field-level tags are checked separately by the
// request validator; this covers the cross-field rules.
func ValidateGardenProfile(g *GardenProfile) error {
	if err := ValidateCoordinates(g.Location.Lat, g.Location.Lon); err != nil {
		return err
	}
	if g.AltitudeM < MinAltitudeM || g.AltitudeM > MaxAltitudeM {
		return NewAppError(ErrCodeValidationInvalidHeight,
			fmt.Sprintf("altitude %.0f m outside [%.0f, %.0f]", g.AltitudeM, MinAltitudeM, MaxAltitudeM), nil)
	}
	if !g.Soil.IsValid() {
		return NewAppError(ErrCodeValidationInvalidSoil, fmt.Sprintf("unknown soil type %q", g.Soil), nil)
	}
	if g.Timezone != "" {
		if _, err := time.LoadLocation(g.Timezone); err != nil {
			return NewAppError(ErrCodeValidationInvalidQuery, fmt.Sprintf("unknown timezone %q", g.Timezone), err)
		}
	}
	if len(g.Plants) > MaxTrackedPlants {
		return NewAppError(ErrCodeValidationEmptyPlants,
			fmt.Sprintf("at most %d tracked plants", MaxTrackedPlants), nil)
	}
	seen := make(map[string]struct{}, len(g.Plants))
	for _, p := range g.Plants {
		if p.Name == "" || len(p.Name) > MaxPlantNameLength {
			return NewAppError(ErrCodeValidationMissingField, "plant name required, max 100 chars", nil)
		}
		if _, dup := seen[p.Name]; dup {
			return NewAppError(ErrCodeValidationInvalidQuery, fmt.Sprintf("plant %q listed twice", p.Name), nil)
		}
		seen[p.Name] = struct{}{}
		if len(p.Modes) == 0 {
			return NewAppError(ErrCodeValidationInvalidMode, fmt.Sprintf("plant %q has no cultivation mode", p.Name), nil)
		}
		modes := make(map[CultivationMode]struct{}, len(p.Modes))
		for _, m := range p.Modes {
			if !m.IsValid() {
				return NewAppError(ErrCodeValidationInvalidMode, fmt.Sprintf("unknown cultivation mode %q", m), nil)
			}
			if _, dup := modes[m]; dup {
				return NewAppError(ErrCodeValidationInvalidMode,
					fmt.Sprintf("plant %q repeats mode %q", p.Name, m), nil)
			}
			modes[m] = struct{}{}
		}
	}
	if g.Lawn.TargetHeightCM <= 0 || g.Lawn.TargetHeightCM > MaxCutHeightCM {
		return NewAppError(ErrCodeValidationInvalidHeight,
			fmt.Sprintf("lawn target height %.1f cm outside (0, %.0f]", g.Lawn.TargetHeightCM, MaxCutHeightCM), nil)
	}
	if g.Email != "" {
		if _, err := mail.ParseAddress(g.Email); err != nil {
			return NewAppError(ErrCodeValidationInvalidEmail, fmt.Sprintf("invalid report email %q", g.Email), err)
		}
	}
	return nil
}
