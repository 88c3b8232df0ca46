// Package recsys_http exposes the recommendation pipeline over HTTP.
package recsys_http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase"
	"recsys-orchestrator/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

// BatchTrigger starts background batches.
type BatchTrigger interface {
	Trigger(runDate time.Time) error
	Last() *worker.Summary
}

// ReadinessCheck reports an error when a dependency is not ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handler struct {
	recommend usecase.RecommendUsecase
	indexer   usecase.IndexPublicationsUsecase
	batch     BatchTrigger
	checks    []ReadinessCheck
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandler(
	recommend usecase.RecommendUsecase,
	indexer usecase.IndexPublicationsUsecase,
	batch BatchTrigger,
	checks []ReadinessCheck,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		recommend: recommend,
		indexer:   indexer,
		batch:     batch,
		checks:    checks,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
		now:       time.Now,
	}
}

// Register mounts the routes on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
	e.POST("/v1/recsys/recommendations", h.Recommend)
	e.POST("/internal/recsys/batch", h.TriggerBatch)
	e.GET("/internal/recsys/batch", h.BatchStatus)
	e.POST("/internal/recsys/index/rebuild", h.RebuildIndex)
}

type RecommendRequest struct {
	Client  domain.ClientInput `json:"client"`
	Date    string             `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Exclude []string           `json:"exclude" validate:"omitempty,dive,required"`
}

type RecommendResponse struct {
	RunID           string                  `json:"run_id"`
	Date            string                  `json:"date"`
	Profile         domain.ClientProfile    `json:"profile"`
	Queries         []string                `json:"queries"`
	Candidates      int                     `json:"candidates"`
	Shortlisted     int                     `json:"shortlisted"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	ReportPath      string                  `json:"report_path,omitempty"`
}

type BatchRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Recommend runs the pipeline for one client synchronously.
// (POST /v1/recsys/recommendations)
func (h *Handler) Recommend(c echo.Context) error {
	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if req.Client.ID() == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "client needs a company or client id"})
	}
	runDate := h.runDate(req.Date)

	exclude := make(map[string]struct{}, len(req.Exclude))
	for _, k := range req.Exclude {
		exclude[k] = struct{}{}
	}

	out, err := h.recommend.Execute(c.Request().Context(), usecase.RecommendInput{
		Client:  req.Client,
		RunDate: runDate,
		Exclude: exclude,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrIndexUnavailable) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("recommend_request_failed", slog.String("error", err.Error()))
		return c.JSON(status, errorResponse{Error: err.Error()})
	}

	recs := out.Recommendations
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	return c.JSON(http.StatusOK, RecommendResponse{
		RunID:           out.RunID,
		Date:            runDate.Format(dateLayout),
		Profile:         out.Profile,
		Queries:         out.Queries,
		Candidates:      out.CandidateCount,
		Shortlisted:     out.ShortlistCount,
		Recommendations: recs,
		ReportPath:      out.ReportPath,
	})
}

// TriggerBatch starts a batch over the scheduled clients.
// (POST /internal/recsys/batch)
func (h *Handler) TriggerBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	runDate := h.runDate(req.Date)

	if err := h.batch.Trigger(runDate); err != nil {
		if errors.Is(err, worker.ErrBatchRunning) {
			return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"status": "accepted",
		"date":   runDate.Format(dateLayout),
	})
}

// BatchStatus returns the last finished batch summary.
// (GET /internal/recsys/batch)
func (h *Handler) BatchStatus(c echo.Context) error {
	last := h.batch.Last()
	if last == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, last)
}

// RebuildIndex rebuilds the publication index.
// (POST /internal/recsys/index/rebuild)
func (h *Handler) RebuildIndex(c echo.Context) error {
	n, err := h.indexer.Rebuild(c.Request().Context())
	if err != nil {
		h.logger.Error("index_rebuild_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{"chunks": n})
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	failures := map[string]string{}
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			failures[chk.Name] = err.Error()
		}
	}
	if len(failures) > 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "failures": failures})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// runDate parses a validated date, defaulting to today in UTC.
func (h *Handler) runDate(s string) time.Time {
	if s != "" {
		if d, err := time.Parse(dateLayout, s); err == nil {
			return d
		}
	}
	now := h.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
