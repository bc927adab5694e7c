// Package catalog provides the garden reference data: plant families and
// their crop coefficients, per-plant advisory sheets, soil water
// profiles, the mulch and container drying factors, and the monthly tip
// sheets used by reports.
//
// The standard dataset ships embedded in the binary, so the service runs
// with no external files. Deployments may point CATALOG_PATH at a JSON
// document of the same shape to supply their own plant data. A configured
// file that cannot be read, parsed or validated is a hard error: crop
// coefficients and soil thresholds feed every downstream calculation, and
// running with partial reference data would silently corrupt advice.
package catalog

import (
	"strings"

	"potager/internal/types"
)

// Catalog is an immutable in-memory reference data registry. It is built
// once at startup, implements types.ReferenceData, and is safe for
// concurrent use. All lookup results are caller-owned copies.
type Catalog struct {
	families  map[string]types.PlantFamily
	order     []string
	owner     map[string]string
	details   map[string]types.PlantDetail
	soils     map[types.SoilType]types.SoilProfile
	tips      map[int]types.MonthlyTip
	mulch     float64
	container float64
}

// New loads the catalog: the embedded defaults when overridePath is
// empty, otherwise the JSON document at that path. Any read, parse or
// consistency failure is returned as a reference-data error; callers
// must treat it as fatal rather than proceed without Kc and threshold
// data.
func New(overridePath string) (*Catalog, error) {
	file, err := loadCatalogFile(overridePath)
	if err == nil {
		err = validateCatalog(file)
	}
	if err != nil {
		appErr := types.NewAppError(types.ErrCodeReferenceCatalog, "plant catalog unavailable", err)
		if overridePath != "" {
			appErr = appErr.WithDetails(map[string]any{"path": overridePath})
		}
		return nil, appErr
	}
	return build(file), nil
}

// build indexes a validated document for lookups. Family and Kc on a
// detail sheet always come from the owning family; values present in the
// file are ignored.
func build(f *catalogFile) *Catalog {
	c := &Catalog{
		families:  make(map[string]types.PlantFamily, len(f.Families)),
		order:     make([]string, 0, len(f.Families)),
		owner:     make(map[string]string),
		details:   make(map[string]types.PlantDetail, len(f.Details)),
		soils:     make(map[types.SoilType]types.SoilProfile, len(f.Soils)),
		tips:      make(map[int]types.MonthlyTip, len(f.MonthlyTips)),
		mulch:     f.Factors.Mulch,
		container: f.Factors.Container,
	}
	for _, fam := range f.Families {
		name := NormalizeName(fam.Name)
		fam.Name = name
		plants := make([]string, len(fam.Plants))
		for i, p := range fam.Plants {
			plants[i] = NormalizeName(p)
			c.owner[plants[i]] = name
		}
		fam.Plants = plants
		c.families[name] = fam
		c.order = append(c.order, name)
	}
	for _, d := range f.Details {
		plant := NormalizeName(d.Name)
		famName := c.owner[plant]
		d.Name = plant
		d.Family = famName
		d.Kc = c.families[famName].Kc
		c.details[plant] = d
	}
	for _, s := range f.Soils {
		c.soils[s.Type] = s
	}
	for _, t := range f.MonthlyTips {
		c.tips[t.Month] = t
	}
	return c
}

// NormalizeName folds a plant or family name to its lookup form.
// Catalog names are stored lowercase without surrounding spaces, and
// journal entries are normalized the same way before matching.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FamilyOf returns the family the given plant belongs to.
func (c *Catalog) FamilyOf(plant string) (types.PlantFamily, bool) {
	name, ok := c.owner[NormalizeName(plant)]
	if !ok {
		return types.PlantFamily{}, false
	}
	return copyFamily(c.families[name]), true
}

// Kc returns the crop coefficient for a plant via its owning family.
func (c *Catalog) Kc(plant string) (float64, bool) {
	name, ok := c.owner[NormalizeName(plant)]
	if !ok {
		return 0, false
	}
	return c.families[name].Kc, true
}

// Detail returns the advisory sheet for a plant. Plants without a sheet
// return ok=false even when the plant itself is known.
func (c *Catalog) Detail(plant string) (types.PlantDetail, bool) {
	d, ok := c.details[NormalizeName(plant)]
	if !ok {
		return types.PlantDetail{}, false
	}
	return copyDetail(d), true
}

// Families returns every plant family in catalog order.
func (c *Catalog) Families() []types.PlantFamily {
	out := make([]types.PlantFamily, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, copyFamily(c.families[name]))
	}
	return out
}

// Soil returns the water profile for a soil type.
func (c *Catalog) Soil(t types.SoilType) (types.SoilProfile, bool) {
	s, ok := c.soils[t]
	return s, ok
}

// MulchFactor returns the demand multiplier applied to mulched open
// ground.
func (c *Catalog) MulchFactor() float64 { return c.mulch }

// ContainerFactor returns the demand multiplier applied to container
// cultivation.
func (c *Catalog) ContainerFactor() float64 { return c.container }

// TipsFor returns the tip sheet for a calendar month (1-12).
func (c *Catalog) TipsFor(month int) (types.MonthlyTip, bool) {
	t, ok := c.tips[month]
	if !ok {
		return types.MonthlyTip{}, false
	}
	return copyTip(t), true
}

func copyFamily(f types.PlantFamily) types.PlantFamily {
	f.Plants = append([]string(nil), f.Plants...)
	return f
}

func copyDetail(d types.PlantDetail) types.PlantDetail {
	d.GoodCompanions = append([]string(nil), d.GoodCompanions...)
	d.BadCompanions = append([]string(nil), d.BadCompanions...)
	return d
}

func copyTip(t types.MonthlyTip) types.MonthlyTip {
	t.Tips = append([]string(nil), t.Tips...)
	return t
}

// Compile-time assertion that Catalog implements ReferenceData.
var _ types.ReferenceData = (*Catalog)(nil)
