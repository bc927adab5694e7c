package types

import "fmt"

// CultivationMode describes how a plant unit is grown, which determines
// rain exposure and the drying adjustment applied to its water demand.
type CultivationMode string

const (
	// ModeOpenGround is a bed in the ground: rain reaches it and the
	// garden's soil profile (retention, mulch) applies.
	ModeOpenGround CultivationMode = "open_ground"
	// ModeContainer is an outdoor pot: rain reaches it, soil factors do
	// not, and the container factor accelerates drying.
	ModeContainer CultivationMode = "container"
	// ModeCoveredContainer is a pot under a roof or tunnel: no rain at
	// all, same accelerated drying as an open container.
	ModeCoveredContainer CultivationMode = "covered_container"
)

// AllCultivationModes lists the valid modes in display order.
var AllCultivationModes = []CultivationMode{ModeOpenGround, ModeContainer, ModeCoveredContainer}

// IsValid returns true if the mode is a known cultivation mode.
func (m CultivationMode) IsValid() bool {
	switch m {
	case ModeOpenGround, ModeContainer, ModeCoveredContainer:
		return true
	}
	return false
}

// RainExposed reports whether natural rainfall reaches units grown in
// this mode. Covered containers never receive rain.
func (m CultivationMode) RainExposed() bool {
	return m != ModeCoveredContainer
}

// UsesGroundSoil reports whether the garden's soil profile (retention
// factor, mulch) applies. Containers use potting mix and get the
// container factor instead.
func (m CultivationMode) UsesGroundSoil() bool {
	return m == ModeOpenGround
}

// ParseCultivationMode converts a string into a CultivationMode,
// returning a validation error for unknown values.
func ParseCultivationMode(s string) (CultivationMode, error) {
	m := CultivationMode(s)
	if !m.IsValid() {
		return "", NewAppError(ErrCodeValidationInvalidMode, fmt.Sprintf("unknown cultivation mode %q", s), nil)
	}
	return m, nil
}

// SoilType identifies one of the supported garden soil textures.
// Values are the French texture names used throughout the reference
// data and stored journals.
type SoilType string

const (
	SoilSandy SoilType = "sableux"
	SoilLoamy SoilType = "limoneux"
	SoilClay  SoilType = "argileux"
)

// AllSoilTypes lists the valid soil types in display order.
var AllSoilTypes = []SoilType{SoilSandy, SoilLoamy, SoilClay}

// IsValid returns true if the soil type is known.
func (s SoilType) IsValid() bool {
	switch s {
	case SoilSandy, SoilLoamy, SoilClay:
		return true
	}
	return false
}

// ParseSoilType converts a string into a SoilType, returning a
// validation error for unknown values.
func ParseSoilType(s string) (SoilType, error) {
	st := SoilType(s)
	if !st.IsValid() {
		return "", NewAppError(ErrCodeValidationInvalidSoil, fmt.Sprintf("unknown soil type %q", s), nil)
	}
	return st, nil
}

// WateringAdvice is the per-unit verdict produced by a deficit
// assessment, ordered from "do nothing" to "water now".
type WateringAdvice string

const (
	// AdviceSurplus: the balance is at or below zero, the soil is saturated.
	AdviceSurplus WateringAdvice = "surplus"
	// AdviceNegligible: a small deficit well inside the soil's reserve.
	AdviceNegligible WateringAdvice = "negligible"
	// AdviceRainCovered: a real deficit that forecast rain will erase.
	AdviceRainCovered WateringAdvice = "rain_covered"
	// AdviceLight: a moderate deficit; watering soon is sensible but not
	// yet required.
	AdviceLight WateringAdvice = "light_deficit"
	// AdviceWater: the deficit exceeds the soil threshold and rain will
	// not cover it; water today.
	AdviceWater WateringAdvice = "water_needed"
	// AdviceCritical: the deficit is far past the threshold even though
	// rain is coming; water without waiting for it.
	AdviceCritical WateringAdvice = "water_critical"
)

// ActionRequired reports whether the advice asks the gardener to
// actually pick up the watering can.
func (a WateringAdvice) ActionRequired() bool {
	return a == AdviceWater || a == AdviceCritical
}

// AlertType identifies a weather alert attached to an advice snapshot.
type AlertType string

const (
	AlertHeatWave  AlertType = "heat_wave"
	AlertHeavyRain AlertType = "heavy_rain"
)

// EventKind distinguishes journal entry types in mixed listings.
type EventKind string

const (
	EventWatering EventKind = "watering"
	EventMowing   EventKind = "mowing"
)

// CycleTrigger records what started an advisor cycle.
type CycleTrigger string

const (
	// TriggerScheduled is the normal daily EventBridge invocation.
	TriggerScheduled CycleTrigger = "scheduled"
	// TriggerManual is an operator-initiated run (CLI or console).
	TriggerManual CycleTrigger = "manual"
	// TriggerReplay is a re-run over a past date, e.g. after a data fix.
	TriggerReplay CycleTrigger = "replay"
)

// Alert escalation thresholds. An advice snapshot carries a heat alert
// when any forecast day in the 48h lookahead reaches HeatAlertTempC,
// and a heavy-rain notice when the summed 48h rain reaches
// HeavyRainAlert48hMM.
const (
	HeatAlertTempC      = 30.0
	HeavyRainAlert48hMM = 10.0
)
