package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"potager/internal/core"
	"potager/internal/report"
	"potager/internal/types"
	"potager/internal/weather"
)

// AdviceRepo mirrors the concrete db.AdviceRepository methods used by
// this handler.
type AdviceRepo interface {
	Latest(ctx context.Context) (*types.AdviceSnapshot, error)
	GetByDate(ctx context.Context, runDate time.Time) (*types.AdviceSnapshot, error)
}

// ReportRenderer turns a snapshot plus context into the plain-text
// report. Implemented by report.Renderer.
type ReportRenderer interface {
	Render(in report.Input) (*report.RenderedReport, error)
}

// AdviceHandler serves persisted advice snapshots and the rendered
// text report.
type AdviceHandler struct {
	advice   AdviceRepo
	hydrator *report.Hydrator
	renderer ReportRenderer
	logger   *slog.Logger
}

// NewAdviceHandler creates a new AdviceHandler with the provided
// dependencies. archives, journal, garden and tips are soft: a nil or
// failing one drops its report section instead of failing the
// download.
func NewAdviceHandler(
	advice AdviceRepo,
	archives report.ArchiveStore,
	jr report.JournalStore,
	garden report.GardenStore,
	tips report.TipSource,
	renderer ReportRenderer,
	codec *weather.Codec,
	l *slog.Logger,
) *AdviceHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AdviceHandler{
		advice: advice,
		hydrator: &report.Hydrator{
			Archives: archives,
			Garden:   garden,
			Journal:  jr,
			Tips:     tips,
			Codec:    codec,
			Logger:   l,
		},
		renderer: renderer,
		logger:   l,
	}
}

// RegisterRoutes mounts the advice routes on the provided chi.Router.
func (h *AdviceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/advice", func(r chi.Router) {
		r.Get("/latest", h.Latest)
		r.Get("/latest/report", h.LatestReport)
		r.Get("/{date}", h.GetByDate)
	})
}

// Latest handles GET /v1/advice/latest.
func (h *AdviceHandler) Latest(w http.ResponseWriter, r *http.Request) {
	snap, err := h.advice.Latest(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: snap})
}

// GetByDate handles GET /v1/advice/{date}.
func (h *AdviceHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	date, err := types.ParseDay(raw)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidDate,
			fmt.Sprintf("invalid date %q: want YYYY-MM-DD", raw), err))
		return
	}

	snap, err := h.advice.GetByDate(r.Context(), date)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: snap})
}

// LatestReport handles GET /v1/advice/latest/report.
//
// The download runs the same hydration and rendering as the report
// worker, so the downloaded text matches the mailed one. The snapshot
// is mandatory; the weather outlook, journal statistics, garden name
// and monthly tips are hydrated best-effort and the report renders
// without whichever is unavailable.
func (h *AdviceHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.advice.Latest(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	in := report.Input{Snapshot: snap}
	h.hydrator.Hydrate(r.Context(), &in)

	rendered, err := h.renderer.Render(in)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to render report", err))
		return
	}

	filename := "rapport-potager-" + types.FormatDay(snap.RunDate) + ".txt"
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rendered.BodyText)); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write report body",
			"error", err,
		)
	}
}
