package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/infra/logger"
	"recsys-orchestrator/internal/usecase/recsys"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "recsys-orchestrator/usecase"

// RecommendInput defines the input of one recommendation run.
type RecommendInput struct {
	Client  domain.ClientInput
	RunDate time.Time
	// Exclude holds identity keys that must not be recommended in this run.
	Exclude map[string]struct{}
	// Transcript overrides the chat source when non-nil.
	Transcript []domain.ChatMessage
}

// RecommendOutput is the result of one run.
type RecommendOutput struct {
	RunID           string
	Profile         domain.ClientProfile
	Queries         []string
	CandidateCount  int
	ShortlistCount  int
	Recommendations []domain.Recommendation
	ReportPath      string
}

// RecommendUsecase runs the pipeline for one client.
type RecommendUsecase interface {
	Execute(ctx context.Context, input RecommendInput) (*RecommendOutput, error)
}

// IndexEnsurer makes sure the passage index is built before reads.
type IndexEnsurer interface {
	EnsureIndex(ctx context.Context) error
}

type recommendUsecase struct {
	completer domain.StructuredCompleter
	encoder   domain.VectorEncoder
	index     domain.PassageIndex
	ensurer   IndexEnsurer
	chats     domain.ChatSource
	history   domain.RecommendationHistory
	sink      domain.ReportSink
	cfg       recsys.Config
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewRecommendUsecase creates a RecommendUsecase. history and sink may be nil.
func NewRecommendUsecase(
	completer domain.StructuredCompleter,
	encoder domain.VectorEncoder,
	index domain.PassageIndex,
	ensurer IndexEnsurer,
	chats domain.ChatSource,
	history domain.RecommendationHistory,
	sink domain.ReportSink,
	cfg recsys.Config,
	logger *slog.Logger,
) RecommendUsecase {
	return &recommendUsecase{
		completer: completer,
		encoder:   encoder,
		index:     index,
		ensurer:   ensurer,
		chats:     chats,
		history:   history,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

func (u *recommendUsecase) Execute(ctx context.Context, input RecommendInput) (out *RecommendOutput, err error) {
	runID := uuid.NewString()
	clientID := input.Client.ID()
	if clientID == "" {
		return nil, errors.New("client has neither client id nor company")
	}

	ctx = logger.WithClientID(logger.WithRunID(ctx, runID), clientID)
	ctx, span := u.tracer.Start(ctx, "recsys.recommend", trace.WithAttributes(
		attribute.String(string(logger.RunIDKey), runID),
		attribute.String(string(logger.ClientIDKey), clientID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	log := logger.FromContext(ctx, u.logger)
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("recommendation run cancelled: %w", err)
	}

	if u.ensurer != nil {
		if err := u.ensurer.EnsureIndex(ctx); err != nil {
			if errors.Is(err, domain.ErrIndexUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
		}
	}

	sc := &recsys.StageContext{
		RunID:    runID,
		ClientID: clientID,
		RunDate:  input.RunDate,
		Profile:  domain.ClientProfile{CompanyName: input.Client.Company},
	}

	sc.Transcript = input.Transcript
	if sc.Transcript == nil {
		sc.Transcript, err = u.chats.Transcript(ctx, input.Client, input.RunDate)
		if err != nil {
			return nil, fmt.Errorf("failed to load chat transcript: %w", err)
		}
	}

	sc.Exclude, err = u.excluded(ctx, clientID, input.Exclude)
	if err != nil {
		return nil, err
	}

	pool := u.cfg.Pool
	stages := []struct {
		name string
		run  func(ctx context.Context, log *slog.Logger) error
	}{
		{"profile", func(ctx context.Context, log *slog.Logger) error {
			recsys.ExtractProfile(ctx, sc, u.completer, u.encoder, pool, u.cfg.Profile, log)
			return nil
		}},
		{"queries", func(ctx context.Context, log *slog.Logger) error {
			recsys.GenerateQueries(ctx, sc, u.completer, pool, u.cfg.Query, log)
			return nil
		}},
		{"recall", func(ctx context.Context, log *slog.Logger) error {
			return recsys.Recall(ctx, sc, u.encoder, u.index, pool, u.cfg.Recall, log)
		}},
		{"aggregate", func(ctx context.Context, log *slog.Logger) error {
			sc.Candidates = recsys.Aggregate(sc.Hits, u.cfg.Aggregate.MaxPassages, sc.Exclude, log)
			return nil
		}},
		{"precision", func(ctx context.Context, log *slog.Logger) error {
			recsys.ScorePrecision(ctx, sc, u.completer, pool, log)
			sc.Shortlist = recsys.FilterPrecision(sc.Candidates, u.cfg.Precision)
			log.Info("precision_filtered",
				slog.String("run_id", sc.RunID),
				slog.Int("candidates", len(sc.Candidates)),
				slog.Int("shortlisted", len(sc.Shortlist)))
			return nil
		}},
		{"relevance", func(ctx context.Context, log *slog.Logger) error {
			recsys.ScoreRelevance(ctx, sc, u.completer, pool, log)
			recsys.RankRecommendations(sc.Recommendations)
			return nil
		}},
	}
	for _, st := range stages {
		if err := u.stage(ctx, st.name, st.run); err != nil {
			log.Error("recommendation_stage_failed",
				slog.String("stage", st.name),
				slog.String("error", err.Error()))
			return nil, err
		}
	}

	out = &RecommendOutput{
		RunID:           runID,
		Profile:         sc.Profile,
		Queries:         sc.Queries,
		CandidateCount:  len(sc.Candidates),
		ShortlistCount:  len(sc.Shortlist),
		Recommendations: sc.Recommendations,
	}

	if u.sink != nil {
		path, err := u.sink.Write(ctx, input.Client, input.RunDate, sc.Recommendations)
		if err != nil {
			log.Error("report_write_failed", slog.String("error", err.Error()))
		} else {
			out.ReportPath = path
		}
	}

	if u.history != nil && len(sc.Recommendations) > 0 {
		keys := make([]string, len(sc.Recommendations))
		for i, r := range sc.Recommendations {
			keys[i] = r.Key
		}
		if err := u.history.Record(ctx, clientID, input.RunDate, keys); err != nil {
			log.Error("recommendation_history_record_failed", slog.String("error", err.Error()))
		}
	}

	span.SetAttributes(attribute.Int("recsys.recommendations", len(sc.Recommendations)))
	log.Info("recommendation_completed",
		slog.Int("queries", len(sc.Queries)),
		slog.Int("hits", len(sc.Hits)),
		slog.Int("candidates", len(sc.Candidates)),
		slog.Int("shortlisted", len(sc.Shortlist)),
		slog.Int("recommendations", len(sc.Recommendations)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return out, nil
}

// excluded unions the caller's set with the client's recorded history.
func (u *recommendUsecase) excluded(ctx context.Context, clientID string, explicit map[string]struct{}) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(explicit))
	for k := range explicit {
		out[k] = struct{}{}
	}
	if u.history == nil {
		return out, nil
	}
	recorded, err := u.history.Recommended(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendation history: %w", err)
	}
	for k := range recorded {
		out[k] = struct{}{}
	}
	return out, nil
}

// stage runs fn inside a child span with the stage name on the context logger.
// A context that ended while the stage ran fails the stage, since its tasks
// degraded to defaults rather than producing results.
func (u *recommendUsecase) stage(ctx context.Context, name string, fn func(ctx context.Context, log *slog.Logger) error) error {
	ctx = logger.WithStage(ctx, name)
	ctx, span := u.tracer.Start(ctx, "recsys.stage."+name)
	defer span.End()

	err := fn(ctx, logger.FromContext(ctx, u.logger))
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%s stage interrupted: %w", name, ctx.Err())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
