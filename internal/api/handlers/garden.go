// Package handlers contains the HTTP handler implementations for the
// potager API.
//
// Every handler follows the same injection pattern: dependencies come
// in as small locally-defined interfaces that mirror the concrete
// repositories and clients, request bodies decode into tagged DTOs
// checked by the shared validator, and responses leave through the
// core envelope helpers. Each handler registers its own routes so
// cmd/api mounts exactly the surface it wires.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"potager/internal/core"
	"potager/internal/types"
)

// GardenRepo mirrors the concrete db.GardenRepository methods used by
// this handler.
type GardenRepo interface {
	Get(ctx context.Context) (*types.GardenProfile, error)
	Save(ctx context.Context, g *types.GardenProfile) error
}

// GardenCatalog answers whether a plant name resolves in the reference
// catalog. Implemented by catalog.Catalog. Unknown plants do not block
// an update; they surface as warnings so the gardener can fix typos
// before the next cycle skips the unit.
type GardenCatalog interface {
	FamilyOf(plant string) (types.PlantFamily, bool)
}

// GardenStatusProvider computes current advice without persisting
// anything. Implemented by advisor.Advisor via Preview.
type GardenStatusProvider interface {
	Preview(ctx context.Context) (*types.AdviceSnapshot, error)
}

// UpdateGardenRequest is the request body for PUT /v1/garden. The
// profile is replaced wholesale; the journal and the advice history
// are untouched.
type UpdateGardenRequest struct {
	Location  types.GeoPoint         `json:"location"`
	AltitudeM float64                `json:"altitude_m"`
	Timezone  string                 `json:"timezone" validate:"omitempty,is_timezone"`
	Soil      types.SoilType         `json:"soil_type" validate:"required,soil_type"`
	Mulched   bool                   `json:"mulched"`
	Plants    types.TrackedPlantList `json:"plants" validate:"required,min=1,dive"`
	Lawn      types.LawnConfig       `json:"lawn"`
	Email     string                 `json:"report_email" validate:"omitempty,email"`
}

// GardenDetail aggregates the stored profile with its expanded
// watering units and any catalog warnings.
type GardenDetail struct {
	*types.GardenProfile
	Units    []types.PlantUnit `json:"units"`
	Warnings []string          `json:"warnings,omitempty"`
}

// GardenHandler manages the garden profile and the on-demand status
// computation.
type GardenHandler struct {
	garden    GardenRepo
	catalog   GardenCatalog
	status    GardenStatusProvider
	validator *core.Validator
	logger    *slog.Logger
}

// NewGardenHandler creates a new GardenHandler with the provided
// dependencies. catalog may be nil; updates then skip the
// unknown-plant check.
func NewGardenHandler(garden GardenRepo, catalog GardenCatalog, status GardenStatusProvider, v *core.Validator, l *slog.Logger) *GardenHandler {
	if l == nil {
		l = slog.Default()
	}
	return &GardenHandler{
		garden:    garden,
		catalog:   catalog,
		status:    status,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the garden routes on the provided chi.Router.
func (h *GardenHandler) RegisterRoutes(r chi.Router) {
	r.Route("/garden", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Get("/status", h.Status)
	})
}

// Get handles GET /v1/garden.
func (h *GardenHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.garden.Get(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: GardenDetail{
		GardenProfile: profile,
		Units:         profile.Units(),
		Warnings:      h.unknownPlants(profile),
	}})
}

// Update handles PUT /v1/garden.
//
// The request replaces the whole profile. Tag-level checks run first,
// then the cross-field profile rules; an unknown soil type or a
// duplicated plant rejects the update. Plants missing from the catalog
// are accepted and reported back as warnings.
func (h *GardenHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateGardenRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	profile := &types.GardenProfile{
		Location:  req.Location,
		AltitudeM: req.AltitudeM,
		Timezone:  req.Timezone,
		Soil:      req.Soil,
		Mulched:   req.Mulched,
		Plants:    req.Plants,
		Lawn:      req.Lawn,
		Email:     req.Email,
		UpdatedAt: time.Now().UTC(),
	}

	if err := types.ValidateGardenProfile(profile); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.garden.Save(r.Context(), profile); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "garden profile updated",
		"soil", string(profile.Soil),
		"plants", len(profile.Plants),
		"mulched", profile.Mulched,
	)

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: GardenDetail{
		GardenProfile: profile,
		Units:         profile.Units(),
		Warnings:      h.unknownPlants(profile),
	}})
}

// Status handles GET /v1/garden/status.
//
// It computes advice for today from live weather and the current
// journal. Nothing is persisted and the cycle lock is not taken, so
// the call can run while a scheduled cycle is in flight.
func (h *GardenHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.status.Preview(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: snap})
}

// unknownPlants lists the tracked plants the catalog cannot resolve.
func (h *GardenHandler) unknownPlants(profile *types.GardenProfile) []string {
	if h.catalog == nil {
		return nil
	}
	var warnings []string
	for _, p := range profile.Plants {
		if _, ok := h.catalog.FamilyOf(p.Name); !ok {
			warnings = append(warnings, fmt.Sprintf("plant %q is not in the catalog; its units will be skipped", p.Name))
		}
	}
	return warnings
}
