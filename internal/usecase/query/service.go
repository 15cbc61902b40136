package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/overlordausritter/thematicbeast/internal/domain"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/company"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/mode"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/payload"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/record"
	"github.com/overlordausritter/thematicbeast/internal/logger"
	"github.com/overlordausritter/thematicbeast/internal/metrics"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 2 * time.Second
)

// Options tune the retry loop around retrieval.
type Options struct {
	MaxAttempts int
	Backoff     time.Duration
	Sleep       SleepFunc // nil = context-aware timer
}

// Result is the outcome of one query. Company and Message are set only in
// filtered mode; Message only when nothing matched.
type Result struct {
	Mode      mode.Mode
	Company   string
	Records   []record.Record
	Message   string
	Retrieved int
}

// Service runs queries against the retrieval index and shapes the results.
type Service struct {
	retriever   Retriever
	maxAttempts int
	backoff     time.Duration
	sleep       SleepFunc
	logger      *zap.Logger
}

// New creates a query service.
func New(retriever Retriever, opts Options, log *zap.Logger) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		retriever:   retriever,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		sleep:       opts.Sleep,
		logger:      log,
	}
}

// Query validates p, retrieves nodes for its query and shapes them for m.
// Validation errors are returned before any retrieval is attempted.
func (s *Service) Query(ctx context.Context, p *payload.Payload, m mode.Mode) (Result, error) {
	if !m.IsValid() {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, m)
	}

	q := p.TrimmedQuery()
	if q == "" {
		return Result{}, domain.ErrMissingQuery
	}

	var name string
	if m == mode.Filtered {
		name = p.CompanyName()
		if name == "" {
			return Result{}, domain.ErrMissingCompany
		}
	}

	nodes, err := s.retrieve(ctx, q)
	if err != nil {
		return Result{}, err
	}

	records := record.Normalize(nodes)
	metrics.QueryResultsTotal.WithLabelValues(string(m), "retrieved").Add(float64(len(records)))

	res := Result{Mode: m, Records: records, Retrieved: len(records)}
	if m == mode.Filtered {
		res.Company = name
		res.Records = company.Filter(records, company.Variants(name))
		if len(res.Records) == 0 {
			res.Message = fmt.Sprintf("No relevant chunks found for '%s'.", name)
		}
	}
	metrics.QueryResultsTotal.WithLabelValues(string(m), "returned").Add(float64(len(res.Records)))

	logger.FromContext(ctx, s.logger).Debug("Query served",
		zap.String("mode", string(m)),
		zap.String("company", res.Company),
		zap.Int("retrieved", res.Retrieved),
		zap.Int("returned", len(res.Records)),
	)
	return res, nil
}

// retrieve calls the retriever up to maxAttempts times. Only transient
// faults are retried, with a fixed backoff between attempts.
func (s *Service) retrieve(ctx context.Context, q string) ([]domain.Node, error) {
	log := logger.FromContext(ctx, s.logger)

	for attempt := 1; ; attempt++ {
		start := time.Now()
		nodes, err := s.retriever.Retrieve(ctx, q)
		metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.RetrievalAttemptsTotal.WithLabelValues("success").Inc()
			return nodes, nil
		}
		if !domain.IsTransient(err) {
			metrics.RetrievalAttemptsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("retrieve: %w", err)
		}
		metrics.RetrievalAttemptsTotal.WithLabelValues("transient").Inc()

		if attempt >= s.maxAttempts {
			log.Error("Retrieval failed after retries",
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return nil, &domain.ExhaustedError{Attempts: attempt, Last: err}
		}

		log.Warn("Transient retrieval fault, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Duration("backoff", s.backoff),
			zap.Error(err),
		)
		metrics.RetrievalRetriesTotal.Inc()

		if err := s.sleep(ctx, s.backoff); err != nil {
			return nil, fmt.Errorf("retry backoff: %w", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // caller wraps
	}
}
