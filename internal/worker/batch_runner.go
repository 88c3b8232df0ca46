package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"recsys-orchestrator/internal/adapter/source"
	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase"
)

const defaultClientTimeout = 30 * time.Minute

// ErrBatchRunning is returned by Trigger while a batch is in flight.
var ErrBatchRunning = errors.New("batch already running")

// ClientResult is the outcome of one client in a batch.
type ClientResult struct {
	ClientID        string `json:"client_id"`
	Company         string `json:"company"`
	Recommendations int    `json:"recommendations"`
	ReportPath      string `json:"report_path,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Summary describes a finished batch.
type Summary struct {
	RunDate   time.Time      `json:"run_date"`
	Region    string         `json:"region"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Clients   []ClientResult `json:"clients"`
	Duration  time.Duration  `json:"duration"`
}

// BatchRunner runs the pipeline for every scheduled client, one at a time.
// A failed client is logged and skipped.
type BatchRunner struct {
	clients       domain.ClientSource
	recommend     usecase.RecommendUsecase
	region        string
	clientTimeout time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	last    *Summary
}

func NewBatchRunner(
	clients domain.ClientSource,
	recommend usecase.RecommendUsecase,
	region string,
	clientTimeout time.Duration,
	logger *slog.Logger,
) *BatchRunner {
	if clientTimeout <= 0 {
		clientTimeout = defaultClientTimeout
	}
	return &BatchRunner{
		clients:       clients,
		recommend:     recommend,
		region:        region,
		clientTimeout: clientTimeout,
		logger:        logger,
	}
}

// Run executes a batch synchronously. only, when non-empty, restricts the
// batch to the client whose company matches it.
func (r *BatchRunner) Run(ctx context.Context, runDate time.Time, only string) (*Summary, error) {
	start := time.Now()
	all, err := r.clients.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}

	selected := source.Scheduled(all, r.region)
	if only != "" {
		selected = selectCompany(all, only)
		if len(selected) == 0 {
			return nil, fmt.Errorf("client %q not found", only)
		}
	}

	r.logger.Info("batch_started",
		slog.String("run_date", runDate.Format("2006-01-02")),
		slog.String("region", r.region),
		slog.Int("clients", len(selected)))

	summary := &Summary{RunDate: runDate, Region: r.region}
	for _, c := range selected {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := r.runClient(ctx, c, runDate)
		if res.Error != "" {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		summary.Clients = append(summary.Clients, res)
	}
	summary.Duration = time.Since(start)

	r.logger.Info("batch_completed",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int64("duration_ms", summary.Duration.Milliseconds()))
	return summary, nil
}

func (r *BatchRunner) runClient(ctx context.Context, c domain.ClientInput, runDate time.Time) ClientResult {
	ctx, cancel := context.WithTimeout(ctx, r.clientTimeout)
	defer cancel()

	res := ClientResult{ClientID: c.ID(), Company: c.Company}
	out, err := r.recommend.Execute(ctx, usecase.RecommendInput{Client: c, RunDate: runDate})
	if err != nil {
		res.Error = err.Error()
		r.logger.Error("client_run_failed",
			slog.String("client_id", res.ClientID),
			slog.Bool("index_unavailable", errors.Is(err, domain.ErrIndexUnavailable)),
			slog.String("error", err.Error()))
		return res
	}
	res.Recommendations = len(out.Recommendations)
	res.ReportPath = out.ReportPath
	return res
}

// Trigger starts a batch in the background and returns immediately.
func (r *BatchRunner) Trigger(runDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrBatchRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		summary, err := r.Run(ctx, runDate, "")
		if err != nil {
			r.logger.Error("batch_failed", slog.String("error", err.Error()))
		}

		r.mu.Lock()
		r.running = false
		if summary != nil {
			r.last = summary
		}
		r.mu.Unlock()
	}()
	return nil
}

// Last returns the summary of the most recent background batch.
func (r *BatchRunner) Last() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Stop cancels a background batch and waits for it to return.
func (r *BatchRunner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func selectCompany(clients []domain.ClientInput, company string) []domain.ClientInput {
	for _, c := range clients {
		if c.Company == company {
			return []domain.ClientInput{c}
		}
	}
	return nil
}
