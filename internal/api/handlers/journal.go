package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"potager/internal/catalog"
	"potager/internal/core"
	"potager/internal/journal"
	"potager/internal/types"
)

// defaultJournalWindowDays is the query window applied when a journal
// read gives no explicit range.
const defaultJournalWindowDays = 30

// JournalRepo mirrors the concrete db.JournalRepository methods used
// by this handler.
type JournalRepo interface {
	AddWatering(ctx context.Context, e *types.WateringEvent) error
	AddMowing(ctx context.Context, e *types.MowingEvent) error
	ListWaterings(ctx context.Context, from, to time.Time) ([]types.WateringEvent, error)
	ListMowings(ctx context.Context, from, to time.Time) ([]types.MowingEvent, error)
}

// JournalGarden provides the tracked plant list behind per-plant
// statistics. A profile load failure degrades to garden-wide numbers.
type JournalGarden interface {
	Get(ctx context.Context) (*types.GardenProfile, error)
}

// RecordWateringRequest is the request body for
// POST /v1/journal/waterings. An empty plant list records a
// whole-garden watering.
type RecordWateringRequest struct {
	Date   string   `json:"date" validate:"required"`
	Plants []string `json:"plants,omitempty" validate:"max=50,dive,required,max=100"`
	Note   string   `json:"note,omitempty" validate:"max=500"`
}

// RecordMowingRequest is the request body for POST /v1/journal/mowings.
type RecordMowingRequest struct {
	Date        string   `json:"date" validate:"required"`
	CutHeightCM *float64 `json:"cut_height_cm,omitempty"`
	Note        string   `json:"note,omitempty" validate:"max=500"`
}

// JournalPage groups the journal events inside one query window. Both
// lists are always present, possibly empty.
type JournalPage struct {
	From      time.Time             `json:"from"`
	To        time.Time             `json:"to"`
	Waterings []types.WateringEvent `json:"waterings"`
	Mowings   []types.MowingEvent   `json:"mowings"`
}

// JournalHandler records and queries garden journal events.
type JournalHandler struct {
	repo      JournalRepo
	garden    JournalGarden
	validator *core.Validator
	logger    *slog.Logger
}

// NewJournalHandler creates a new JournalHandler with the provided
// dependencies.
func NewJournalHandler(repo JournalRepo, garden JournalGarden, v *core.Validator, l *slog.Logger) *JournalHandler {
	if l == nil {
		l = slog.Default()
	}
	return &JournalHandler{
		repo:      repo,
		garden:    garden,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the journal routes on the provided chi.Router.
func (h *JournalHandler) RegisterRoutes(r chi.Router) {
	r.Route("/journal", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/stats", h.Stats)
		r.Post("/waterings", h.RecordWatering)
		r.Post("/mowings", h.RecordMowing)
	})
}

// RecordWatering handles POST /v1/journal/waterings.
//
// The event date must be a past or present civil day; the engine never
// credits water it has not seen fall. Plant names are normalized
// before storage so journal rows and catalog lookups agree.
func (h *JournalHandler) RecordWatering(w http.ResponseWriter, r *http.Request) {
	var req RecordWateringRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	date, err := parseEventDate(req.Date)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	ev := journal.NormalizeWatering(types.WateringEvent{
		ID:        "wat_" + uuid.New().String(),
		Date:      date,
		Plants:    req.Plants,
		Note:      req.Note,
		CreatedAt: time.Now().UTC(),
	})

	if err := h.repo.AddWatering(r.Context(), &ev); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "watering recorded",
		"event_id", ev.ID,
		"date", types.FormatDay(ev.Date),
		"plants", len(ev.Plants),
	)

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: ev})
}

// RecordMowing handles POST /v1/journal/mowings.
func (h *JournalHandler) RecordMowing(w http.ResponseWriter, r *http.Request) {
	var req RecordMowingRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	date, err := parseEventDate(req.Date)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.CutHeightCM != nil {
		if err := types.ValidateCutHeight(*req.CutHeightCM); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	ev := journal.NormalizeMowing(types.MowingEvent{
		ID:          "mow_" + uuid.New().String(),
		Date:        date,
		CutHeightCM: req.CutHeightCM,
		Note:        req.Note,
		CreatedAt:   time.Now().UTC(),
	})

	if err := h.repo.AddMowing(r.Context(), &ev); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "mowing recorded",
		"event_id", ev.ID,
		"date", types.FormatDay(ev.Date),
	)

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: ev})
}

// List handles GET /v1/journal.
//
// from and to are optional YYYY-MM-DD query parameters; the default
// window is the last 30 days ending today.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryWindow(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	waterings, err := h.repo.ListWaterings(r.Context(), from, to)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	mowings, err := h.repo.ListMowings(r.Context(), from, to)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if waterings == nil {
		waterings = []types.WateringEvent{}
	}
	if mowings == nil {
		mowings = []types.MowingEvent{}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: JournalPage{
		From:      from,
		To:        to,
		Waterings: waterings,
		Mowings:   mowings,
	}})
}

// Stats handles GET /v1/journal/stats.
//
// The garden profile feeds per-plant watering counts; when it cannot
// be loaded the statistics still cover the whole journal.
func (h *JournalHandler) Stats(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryWindow(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	waterings, err := h.repo.ListWaterings(r.Context(), from, to)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	mowings, err := h.repo.ListMowings(r.Context(), from, to)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var tracked []string
	if h.garden != nil {
		profile, err := h.garden.Get(r.Context())
		if err != nil {
			h.logger.WarnContext(r.Context(), "garden profile unavailable for per-plant statistics, continuing",
				"error", err,
			)
		} else {
			tracked = trackedNames(profile)
		}
	}

	stats := journal.Compute(journal.StatsInput{
		Waterings: waterings,
		Mowings:   mowings,
		Tracked:   tracked,
		From:      from,
		To:        to,
	})

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: stats})
}

// parseEventDate turns a request date string into a civil day and
// rejects days the garden has not lived through yet.
func parseEventDate(s string) (time.Time, error) {
	date, err := types.ParseDay(s)
	if err != nil {
		return time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidDate,
			fmt.Sprintf("invalid date %q: want YYYY-MM-DD", s), err)
	}
	if date.After(types.Day(time.Now().UTC())) {
		return time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidDate,
			fmt.Sprintf("event date %s is in the future", types.FormatDay(date)), nil)
	}
	return date, nil
}

// queryWindow reads the from/to query parameters and applies the
// default window and the range rules.
func queryWindow(r *http.Request) (time.Time, time.Time, error) {
	to := types.Day(time.Now().UTC())
	if s := r.URL.Query().Get("to"); s != "" {
		d, err := types.ParseDay(s)
		if err != nil {
			return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidDate,
				fmt.Sprintf("invalid to date %q: want YYYY-MM-DD", s), err)
		}
		to = d
	}

	from := types.AddDays(to, -(defaultJournalWindowDays - 1))
	if s := r.URL.Query().Get("from"); s != "" {
		d, err := types.ParseDay(s)
		if err != nil {
			return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidDate,
				fmt.Sprintf("invalid from date %q: want YYYY-MM-DD", s), err)
		}
		from = d
	}

	if err := types.ValidateDayRange(from, to); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// trackedNames lists the profile's plant names in normalized form.
func trackedNames(profile *types.GardenProfile) []string {
	names := make([]string, 0, len(profile.Plants))
	for _, p := range profile.Plants {
		names = append(names, catalog.NormalizeName(p.Name))
	}
	return names
}
