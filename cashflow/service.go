package cashflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-fin/meridian/config"
	"github.com/meridian-fin/meridian/ledger"
	"github.com/meridian-fin/meridian/observability"
)

// Options configures a Service.
type Options struct {
	Rules                  []CashAccountRule
	Taxonomy               Taxonomy
	Classifier             Classifier
	CollectionsConceptCode string
	LabelRouting           LabelRouting

	ChunkSize           int
	DraftEstimationDays int
	GatewayCallTimeout  time.Duration
	RequestDeadline     time.Duration
	CacheTTL            time.Duration
}

// OptionsFromConfig copies the tuning knobs from runtime configuration.
// Domain policy (rules, taxonomy, classifier) still comes from the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChunkSize:           cfg.ChunkSize,
		DraftEstimationDays: cfg.DraftEstimationDays,
		GatewayCallTimeout:  cfg.GatewayCallTimeout,
		RequestDeadline:     cfg.RequestDeadline,
		CacheTTL:            cfg.CacheTTL,
	}
}

// Service is the engine's composition root. It is safe to share across
// goroutines: all cross-call state lives in the injected cache.
type Service struct {
	builder    *StatementBuilder
	projection *ProjectionEngine
	resolver   *AccountResolver
	validate   *validator.Validate
	deadline   time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewService wires the full pipeline on top of a gateway. cache may be nil
// for a private in-memory cache; metrics may be nil to disable metrics.
func NewService(gw ledger.Gateway, cache AccountSetCache, opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("cashflow: gateway is required")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("cashflow: classifier is required")
	}
	if len(opts.Taxonomy.Activities) == 0 {
		return nil, fmt.Errorf("cashflow: taxonomy is required")
	}
	if opts.CollectionsConceptCode != "" && !opts.Taxonomy.Contains(opts.CollectionsConceptCode) {
		return nil, fmt.Errorf("cashflow: collections concept %q not in taxonomy", opts.CollectionsConceptCode)
	}
	if logger == nil {
		logger = slog.Default()
	}

	reader := ledger.NewReader(gw, opts.GatewayCallTimeout)
	resolver := NewAccountResolver(reader, opts.Rules, cache, opts.CacheTTL, logger, metrics)
	movements := NewMovementReader(reader, logger, metrics)
	counterparts := NewCounterpartAggregator(reader, opts.ChunkSize, logger, metrics)
	lookup := NewAccountInfoLookup(reader)
	builder := NewStatementBuilder(resolver, movements, counterparts, lookup, opts.Classifier, opts.Taxonomy, opts.LabelRouting, logger, metrics)
	projection := NewProjectionEngine(reader, opts.Classifier, opts.Taxonomy, ProjectionConfig{
		CollectionsConceptCode: opts.CollectionsConceptCode,
		DraftEstimationDays:    opts.DraftEstimationDays,
	}, logger, metrics)

	return &Service{
		builder:    builder,
		projection: projection,
		resolver:   resolver,
		validate:   validator.New(),
		deadline:   opts.RequestDeadline,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}, nil
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// InvalidateCashAccounts drops the memoized cash-account set.
func (s *Service) InvalidateCashAccounts(ctx context.Context) {
	s.resolver.Invalidate(ctx)
}

// Actual computes the historical statement and its reconciliation.
func (s *Service) Actual(ctx context.Context, q Query) (Statement, Reconciliation, error) {
	if err := s.validateQuery(q); err != nil {
		return Statement{}, Reconciliation{}, err
	}
	ctx, cancel := s.requestCtx(ctx)
	defer cancel()
	start := s.now()
	stmt, recon, err := s.builder.Build(ctx, q)
	s.metrics.ObserveBuild("actual", start)
	if err != nil {
		return Statement{}, Reconciliation{}, err
	}
	s.stamp(&stmt)
	return stmt, recon, nil
}

// Projected computes the forward statement from pending documents.
func (s *Service) Projected(ctx context.Context, q Query) (Statement, error) {
	if err := s.validateQuery(q); err != nil {
		return Statement{}, err
	}
	ctx, cancel := s.requestCtx(ctx)
	defer cancel()
	start := s.now()
	stmt, err := s.projection.Build(ctx, q)
	s.metrics.ObserveBuild("projected", start)
	if err != nil {
		return Statement{}, err
	}
	s.stamp(&stmt)
	return stmt, nil
}

func (s *Service) validateQuery(q Query) error {
	if err := s.validate.Struct(q); err != nil {
		return fmt.Errorf("cashflow: invalid query: %w", err)
	}
	if q.DateTo.Before(q.DateFrom) {
		return fmt.Errorf("cashflow: date_to before date_from")
	}
	return nil
}

func (s *Service) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deadline <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.deadline)
}

func (s *Service) stamp(stmt *Statement) {
	stmt.Meta.RunID = uuid.New()
	stmt.Meta.GeneratedAt = s.now().UTC()
}
