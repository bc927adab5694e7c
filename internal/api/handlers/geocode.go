package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"potager/internal/core"
	"potager/internal/types"
)

// geocodeResultLimit caps how many matches a town search returns.
const geocodeResultLimit = 5

// PlaceSearcher resolves free-text town names to coordinates.
// Implemented by weather.GeocodingClient.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error)
}

// GeocodeRequest is the request body for POST /v1/geocode.
type GeocodeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// GeocodeHandler proxies town search so the dashboard never talks to
// the geocoding provider directly.
type GeocodeHandler struct {
	places    PlaceSearcher
	validator *core.Validator
	logger    *slog.Logger
}

// NewGeocodeHandler creates a new GeocodeHandler with the provided
// dependencies.
func NewGeocodeHandler(places PlaceSearcher, v *core.Validator, l *slog.Logger) *GeocodeHandler {
	if l == nil {
		l = slog.Default()
	}
	return &GeocodeHandler{
		places:    places,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the geocode route on the provided chi.Router.
func (h *GeocodeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/geocode", h.Search)
}

// Search handles POST /v1/geocode.
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req GeocodeRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	results, err := h.places.Search(r.Context(), req.Name, geocodeResultLimit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if len(results) == 0 {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundPlace,
			fmt.Sprintf("no place found for %q", req.Name), nil))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: results})
}
