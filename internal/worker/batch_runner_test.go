package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stubs ---

type stubClients struct {
	clients []domain.ClientInput
	err     error
}

func (s stubClients) Clients(context.Context) ([]domain.ClientInput, error) {
	return s.clients, s.err
}

type stubRecommend struct {
	mu      sync.Mutex
	failFor map[string]error
	seen    []string
	block   chan struct{}
}

func (s *stubRecommend) Execute(ctx context.Context, in usecase.RecommendInput) (*usecase.RecommendOutput, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	s.seen = append(s.seen, in.Client.Company)
	s.mu.Unlock()
	if err := s.failFor[in.Client.Company]; err != nil {
		return nil, err
	}
	return &usecase.RecommendOutput{
		Recommendations: make([]domain.Recommendation, 2),
		ReportPath:      "out/" + in.Client.Company + ".csv",
	}, nil
}

func (s *stubRecommend) companies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func registry() []domain.ClientInput {
	return []domain.ClientInput{
		{Company: "acme", AddedToPipeline: true, ScheduleRegion: "apac"},
		{Company: "beta", AddedToPipeline: true, ScheduleRegion: "apac"},
		{Company: "gamma", AddedToPipeline: true, ScheduleRegion: "emea"},
		{Company: "delta", AddedToPipeline: false, ScheduleRegion: "apac"},
	}
}

var runDate = time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC)

func TestBatchRunner_RunsScheduledClientsAndSkipsFailures(t *testing.T) {
	rec := &stubRecommend{failFor: map[string]error{
		"acme": fmt.Errorf("recall: %w", domain.ErrIndexUnavailable),
	}}
	runner := NewBatchRunner(stubClients{clients: registry()}, rec, "apac", time.Minute, testLogger())

	summary, err := runner.Run(context.Background(), runDate, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"acme", "beta"}, rec.companies())
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Clients, 2)
	assert.ErrorContains(t, errors.New(summary.Clients[0].Error), domain.ErrIndexUnavailable.Error())
	assert.Equal(t, 2, summary.Clients[1].Recommendations)
	assert.Equal(t, "out/beta.csv", summary.Clients[1].ReportPath)
}

func TestBatchRunner_SingleClient(t *testing.T) {
	rec := &stubRecommend{}
	runner := NewBatchRunner(stubClients{clients: registry()}, rec, "apac", time.Minute, testLogger())

	summary, err := runner.Run(context.Background(), runDate, "gamma")
	require.NoError(t, err)
	assert.Equal(t, []string{"gamma"}, rec.companies())
	assert.Equal(t, 1, summary.Succeeded)

	_, err = runner.Run(context.Background(), runDate, "unknown")
	assert.Error(t, err)
}

func TestBatchRunner_ClientSourceError(t *testing.T) {
	runner := NewBatchRunner(stubClients{err: errors.New("no file")}, &stubRecommend{}, "", time.Minute, testLogger())

	_, err := runner.Run(context.Background(), runDate, "")
	assert.Error(t, err)
}

func TestBatchRunner_PerClientTimeout(t *testing.T) {
	rec := &stubRecommend{block: make(chan struct{})}
	runner := NewBatchRunner(stubClients{clients: registry()[:1]}, rec, "", 20*time.Millisecond, testLogger())

	summary, err := runner.Run(context.Background(), runDate, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Clients[0].Error, context.DeadlineExceeded.Error())
}

func TestBatchRunner_TriggerIsSingleFlight(t *testing.T) {
	rec := &stubRecommend{block: make(chan struct{})}
	runner := NewBatchRunner(stubClients{clients: registry()}, rec, "apac", time.Minute, testLogger())

	require.NoError(t, runner.Trigger(runDate))
	assert.ErrorIs(t, runner.Trigger(runDate), ErrBatchRunning)

	close(rec.block)
	require.Eventually(t, func() bool { return runner.Last() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, runner.Last().Succeeded)

	require.Eventually(t, func() bool { return runner.Trigger(runDate) == nil }, time.Second, 5*time.Millisecond)
	runner.Stop()
}
