// Package httpapi is the admin HTTP surface of the bridge: worklist entry
// maintenance, manual resync, the booking hook and sync status.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/mwlsync"
	"github.com/caio-sobreiro/mwlbridge/worklist"
)

// WorklistStore is the part of worklist.Store the admin surface uses.
type WorklistStore interface {
	GetAll(ctx context.Context) ([]worklist.Entry, error)
	GetByID(ctx context.Context, id int64) (*worklist.Entry, error)
	UpdateByID(ctx context.Context, id int64, e worklist.Entry) (*worklist.Entry, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Synchronizer runs full refreshes and reports pass statistics.
type Synchronizer interface {
	FullRefresh(ctx context.Context) (int, error)
	Stats() mwlsync.Stats
}

// Enqueuer accepts fire-and-forget single-record syncs.
type Enqueuer interface {
	Enqueue(appointmentID int64) error
	Pending() int
}

type Handler struct {
	store  WorklistStore
	sync   Synchronizer
	queue  Enqueuer
	logger zerolog.Logger
}

func NewHandler(store WorklistStore, sync Synchronizer, queue Enqueuer, logger zerolog.Logger) *Handler {
	return &Handler{store: store, sync: sync, queue: queue, logger: logger}
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(h *Handler, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(Recovery(logger))
	e.Use(RequestID())
	e.Use(Logger(logger))
	h.RegisterRoutes(e)
	return e
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	api.GET("/worklist", h.ListEntries)
	api.POST("/worklist/resync", h.Resync)
	api.GET("/worklist/:id", h.GetEntry)
	api.PUT("/worklist/:id", h.UpdateEntry)
	api.DELETE("/worklist/:id", h.DeleteEntry)
	api.POST("/appointments/:id/sync", h.SyncAppointment)
	api.GET("/sync/status", h.SyncStatus)
}

func (h *Handler) Health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListEntries(c echo.Context) error {
	entries, err := h.store.GetAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []worklist.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	entry, err := h.store.GetByID(c.Request().Context(), id)
	if errors.Is(err, worklist.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "worklist entry not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

// UpdateEntry applies an administrative correction. The next full refresh
// overwrites it if the source still disagrees.
func (h *Handler) UpdateEntry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var entry worklist.Entry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if entry.AccessionNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "accession_number is required")
	}

	updated, err := h.store.UpdateByID(c.Request().Context(), id, entry)
	switch {
	case errors.Is(err, worklist.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "worklist entry not found")
	case errors.Is(err, worklist.ErrDuplicateAccession):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	deleted, err := h.store.DeleteByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "worklist entry not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// Resync runs a full refresh synchronously.
func (h *Handler) Resync(c echo.Context) error {
	n, err := h.sync.FullRefresh(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"entries": n})
}

// SyncAppointment is the booking hook. It only queues the sync; failures
// surface through the dispatcher's error channel.
func (h *Handler) SyncAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	switch err := h.queue.Enqueue(id); {
	case errors.Is(err, mwlsync.ErrQueueFull), errors.Is(err, mwlsync.ErrDispatcherStopped):
		h.logger.Warn().Err(err).Int64("appointment_id", id).Msg("Single-record sync not queued")
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]any{"appointment_id": id, "queued": true})
}

type syncStatus struct {
	mwlsync.Stats
	Pending int   `json:"pending"`
	Entries int64 `json:"entries"`
}

func (h *Handler) SyncStatus(c echo.Context) error {
	entries, err := h.store.Count(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, syncStatus{Stats: h.sync.Stats(), Pending: h.queue.Pending(), Entries: entries})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
