package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"potager/internal/types"
)

//go:embed defaults.json
var defaultsJSON []byte

// Drying factors applied when a catalog document leaves them unset.
const (
	defaultMulchFactor     = 0.7
	defaultContainerFactor = 1.1
)

// catalogFile is the on-disk (and embedded) catalog document.
type catalogFile struct {
	Families    []types.PlantFamily `json:"families"`
	Details     []types.PlantDetail `json:"details"`
	Soils       []types.SoilProfile `json:"soils"`
	Factors     factorSet           `json:"factors"`
	MonthlyTips []types.MonthlyTip  `json:"monthly_tips"`
}

// factorSet holds the two global drying multipliers: mulch dampens
// evaporation on open ground, the container factor accelerates it in pots.
type factorSet struct {
	Mulch     float64 `json:"mulch"`
	Container float64 `json:"container"`
}

// loadCatalogFile parses the catalog document: the embedded defaults, or
// the file at path when one is configured. An override file is a complete
// plant dataset, not a patch; only the soil table and the drying factors
// fall back to built-in values when the file leaves them out.
func loadCatalogFile(path string) (*catalogFile, error) {
	builtin, err := decodeCatalog(defaultsJSON)
	if err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}
	if path == "" {
		return builtin, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	override, err := decodeCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	if len(override.Soils) == 0 {
		override.Soils = builtin.Soils
	}
	return override, nil
}

func decodeCatalog(raw []byte) (*catalogFile, error) {
	var f catalogFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Factors.Mulch == 0 {
		f.Factors.Mulch = defaultMulchFactor
	}
	if f.Factors.Container == 0 {
		f.Factors.Container = defaultContainerFactor
	}
	return &f, nil
}

// validateCatalog enforces the rules every downstream computation relies
// on: positive crop coefficients, each plant in exactly one family, a
// complete soil table, positive factors, and well-formed tip months.
func validateCatalog(f *catalogFile) error {
	if len(f.Families) == 0 {
		return fmt.Errorf("catalog defines no plant families")
	}
	seenFamily := make(map[string]bool, len(f.Families))
	owner := make(map[string]string)
	for _, fam := range f.Families {
		name := NormalizeName(fam.Name)
		if name == "" {
			return fmt.Errorf("family with empty name")
		}
		if seenFamily[name] {
			return fmt.Errorf("duplicate family %q", fam.Name)
		}
		seenFamily[name] = true
		if fam.Kc <= 0 {
			return fmt.Errorf("family %q: crop coefficient must be > 0, got %g", fam.Name, fam.Kc)
		}
		for _, p := range fam.Plants {
			plant := NormalizeName(p)
			if plant == "" {
				return fmt.Errorf("family %q: empty plant name", fam.Name)
			}
			if prev, dup := owner[plant]; dup {
				return fmt.Errorf("plant %q appears in families %q and %q", p, prev, fam.Name)
			}
			owner[plant] = name
		}
	}

	seenDetail := make(map[string]bool, len(f.Details))
	for _, d := range f.Details {
		plant := NormalizeName(d.Name)
		if plant == "" {
			return fmt.Errorf("detail sheet with empty plant name")
		}
		if seenDetail[plant] {
			return fmt.Errorf("duplicate detail sheet for %q", d.Name)
		}
		seenDetail[plant] = true
		if _, ok := owner[plant]; !ok {
			return fmt.Errorf("detail sheet for %q: plant not in any family", d.Name)
		}
	}

	if len(f.Soils) != len(types.AllSoilTypes) {
		return fmt.Errorf("catalog must define all %d soil types, got %d", len(types.AllSoilTypes), len(f.Soils))
	}
	seenSoil := make(map[types.SoilType]bool, len(f.Soils))
	for _, s := range f.Soils {
		if !s.Type.IsValid() {
			return fmt.Errorf("unknown soil type %q", s.Type)
		}
		if seenSoil[s.Type] {
			return fmt.Errorf("duplicate soil profile %q", s.Type)
		}
		seenSoil[s.Type] = true
		if s.Retention <= 0 {
			return fmt.Errorf("soil %q: retention factor must be > 0, got %g", s.Type, s.Retention)
		}
		if s.ThresholdMM <= 0 {
			return fmt.Errorf("soil %q: deficit threshold must be > 0, got %g", s.Type, s.ThresholdMM)
		}
	}

	if f.Factors.Mulch <= 0 {
		return fmt.Errorf("mulch factor must be > 0, got %g", f.Factors.Mulch)
	}
	if f.Factors.Container <= 0 {
		return fmt.Errorf("container factor must be > 0, got %g", f.Factors.Container)
	}

	seenMonth := make(map[int]bool, len(f.MonthlyTips))
	for _, tip := range f.MonthlyTips {
		if tip.Month < 1 || tip.Month > 12 {
			return fmt.Errorf("monthly tip with month %d outside 1-12", tip.Month)
		}
		if seenMonth[tip.Month] {
			return fmt.Errorf("duplicate tips for month %d", tip.Month)
		}
		seenMonth[tip.Month] = true
	}
	return nil
}
