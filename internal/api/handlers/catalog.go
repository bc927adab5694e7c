package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"potager/internal/catalog"
	"potager/internal/core"
	"potager/internal/types"
)

// CatalogReader is the read-only reference data behind the catalog
// endpoints. Implemented by catalog.Catalog.
type CatalogReader interface {
	Families() []types.PlantFamily
	FamilyOf(plant string) (types.PlantFamily, bool)
	Detail(plant string) (types.PlantDetail, bool)
	TipsFor(month int) (types.MonthlyTip, bool)
}

// PlantInfo aggregates a plant's family data with its advisory sheet
// when one exists. Plants without a sheet still resolve through their
// family.
type PlantInfo struct {
	Name   string             `json:"name"`
	Family types.PlantFamily  `json:"family"`
	Detail *types.PlantDetail `json:"detail,omitempty"`
}

// CatalogHandler serves the embedded reference data: plant families,
// per-plant sheets and monthly tips.
type CatalogHandler struct {
	ref    CatalogReader
	logger *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler with the provided
// dependencies.
func NewCatalogHandler(ref CatalogReader, l *slog.Logger) *CatalogHandler {
	if l == nil {
		l = slog.Default()
	}
	return &CatalogHandler{
		ref:    ref,
		logger: l,
	}
}

// RegisterRoutes mounts the catalog routes on the provided chi.Router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/families", h.Families)
		r.Get("/plants/{name}", h.Plant)
		r.Get("/tips/{month}", h.Tips)
	})
}

// Families handles GET /v1/catalog/families.
func (h *CatalogHandler) Families(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.ref.Families()})
}

// Plant handles GET /v1/catalog/plants/{name}.
//
// Lookup is case-insensitive on the trimmed name; the response echoes
// the normalized form.
func (h *CatalogHandler) Plant(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"plant name is required", nil))
		return
	}

	family, ok := h.ref.FamilyOf(name)
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundPlant,
			fmt.Sprintf("plant %q is not in the catalog", name), nil))
		return
	}

	info := PlantInfo{
		Name:   catalog.NormalizeName(name),
		Family: family,
	}
	if detail, ok := h.ref.Detail(name); ok {
		info.Detail = &detail
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: info})
}

// Tips handles GET /v1/catalog/tips/{month}.
//
// The catalog ships tips for all twelve months; a valid month with no
// tips means broken reference data, not a client mistake.
func (h *CatalogHandler) Tips(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "month")
	month, err := strconv.Atoi(raw)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidMonth,
			fmt.Sprintf("month %q is not a number", raw), err))
		return
	}
	if err := types.ValidateMonth(month); err != nil {
		core.Error(w, r, err)
		return
	}

	tip, ok := h.ref.TipsFor(month)
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeReferenceCatalog,
			fmt.Sprintf("no tips for month %d in the reference data", month), nil))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: tip})
}
