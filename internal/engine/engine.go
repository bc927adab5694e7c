// Package engine implements the garden simulation core: the hydric
// balance walk that accumulates per-unit water deficits with resets on
// watering events, the lawn growth model, the watering urgency
// classification, and the forward search for the next watering and
// mowing dates.
//
// Everything here is pure computation over in-memory inputs. There are
// no clocks, no I/O and no hidden state: callers assemble the weather
// series, the normalized journal and the reference data, and identical
// inputs always produce identical results. Plant names are expected in
// their normalized (lowercase, trimmed) form; the journal layer takes
// care of that before events reach the engine.
package engine

import "potager/internal/types"

const (
	// DefaultLookbackDays is the historical window the balance walk
	// covers: deficits accumulate over the DefaultLookbackDays civil
	// days ending at the computation date.
	DefaultLookbackDays = 7

	// DefaultMowLookbackDays bounds the growth window when the journal
	// records no mowing at all.
	DefaultMowLookbackDays = 14

	// DefaultCutHeightCM is the assumed lawn height after a cut when
	// neither the journal nor the caller provides one.
	DefaultCutHeightCM = 5.0

	// MowOvergrowthRatio scales the target height into the mowing
	// threshold: the lawn is due once it stands 50% past target.
	MowOvergrowthRatio = 1.5
)

// Options tunes the engine windows. Zero values fall back to the
// package defaults, so Options{} is a valid configuration.
type Options struct {
	// LookbackDays is the length of the historical balance window.
	LookbackDays int
	// MowLookbackDays is the growth window used when no mowing event
	// exists.
	MowLookbackDays int
	// DefaultCutHeightCM is the cut height assumed when the journal
	// records a mowing without one, or no mowing at all. Callers
	// normally pass the lawn's target height here.
	DefaultCutHeightCM float64
}

func (o Options) withDefaults() Options {
	if o.LookbackDays <= 0 {
		o.LookbackDays = DefaultLookbackDays
	}
	if o.MowLookbackDays <= 0 {
		o.MowLookbackDays = DefaultMowLookbackDays
	}
	if o.DefaultCutHeightCM <= 0 {
		o.DefaultCutHeightCM = DefaultCutHeightCM
	}
	return o
}

// Engine evaluates the garden against a weather series. It holds only
// immutable reference data and window options and is safe for
// concurrent use.
type Engine struct {
	ref  types.ReferenceData
	opts Options
}

// New builds an engine over the given reference data. Zero-valued
// options are replaced by the package defaults.
func New(ref types.ReferenceData, opts Options) *Engine {
	return &Engine{ref: ref, opts: opts.withDefaults()}
}

// modeFactor returns the demand multiplier for a cultivation mode: soil
// retention (damped by mulch) for open ground, the flat container
// factor for pots regardless of the declared garden soil.
func (e *Engine) modeFactor(mode types.CultivationMode, soil types.SoilProfile, mulched bool) float64 {
	if mode.UsesGroundSoil() {
		f := soil.Retention
		if mulched {
			f *= e.ref.MulchFactor()
		}
		return f
	}
	return e.ref.ContainerFactor()
}
