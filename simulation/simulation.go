// Package simulation runs one estimate-versus-reference experiment: a Monte
// Carlo estimate and a quadrature reference of the same integral, compared.
package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"mc-integrator/cache"
	"mc-integrator/comparison"
	"mc-integrator/domain"
	"mc-integrator/integrand"
	"mc-integrator/metrics"
	"mc-integrator/montecarlo"
	"mc-integrator/quadrature"
)

// History persists finished runs.
type History interface {
	Save(ctx context.Context, r domain.Report) (string, error)
}

// Config describes one run.
type Config struct {
	Integrand  integrand.Integrand
	Interval   domain.Interval
	Samples    int
	Sampler    montecarlo.Sampler
	Quadrature quadrature.Options
}

type Sim struct {
	cache     cache.Repository
	history   History
	collector *metrics.MetricsCollector
	logger    *slog.Logger
	runCount  int64
}

type Option func(*Sim)

// WithCache caches reference values of named integrands.
func WithCache(c cache.Repository) Option {
	return func(s *Sim) { s.cache = c }
}

// WithHistory records every successful run.
func WithHistory(h History) Option {
	return func(s *Sim) { s.history = h }
}

func WithCollector(mc *metrics.MetricsCollector) Option {
	return func(s *Sim) { s.collector = mc }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sim) { s.logger = l }
}

func New(opts ...Option) *Sim {
	s := &Sim{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sim) GetRunCount() int64 {
	return atomic.LoadInt64(&s.runCount)
}

type estimateOutcome struct {
	res      montecarlo.Result
	duration time.Duration
}

type referenceOutcome struct {
	res      quadrature.Result
	cached   bool
	duration time.Duration
}

// Run computes the estimate and the reference concurrently and compares
// them. A panic in the integrand is re-raised on the calling goroutine.
func (s *Sim) Run(ctx context.Context, cfg Config) (report domain.Report, err error) {
	ctx, span := startRunSpan(ctx, cfg)
	defer func() {
		if err != nil {
			s.fail(err, cfg)
		}
		endSpan(span, err)
	}()

	if cfg.Integrand.F == nil {
		return domain.Report{}, errors.New("integrand has no function")
	}
	if err := cfg.Interval.Validate(); err != nil {
		return domain.Report{}, err
	}
	if err := domain.ValidateSampleCount(cfg.Samples); err != nil {
		return domain.Report{}, err
	}

	s.logger.Info("run started",
		"integrand", cfg.Integrand.Name,
		"a", cfg.Interval.A,
		"b", cfg.Interval.B,
		"samples", cfg.Samples,
		"workers", max(cfg.Sampler.Workers, 1),
	)

	var (
		est    estimateOutcome
		ref    referenceOutcome
		panics [2]any
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sctx, span := tracer.Start(gctx, "montecarlo.Sample")
		defer func() { endSpan(span, err) }()
		defer recoverInto(&panics[0], &err)
		start := time.Now()
		res, err := cfg.Sampler.Run(sctx, cfg.Integrand.F, cfg.Interval.A, cfg.Interval.B, cfg.Samples)
		if err != nil {
			return fmt.Errorf("monte carlo estimate: %w", err)
		}
		est = estimateOutcome{res: res, duration: time.Since(start)}
		return nil
	})
	g.Go(func() (err error) {
		rctx, span := tracer.Start(gctx, "quadrature.Reference")
		defer func() { endSpan(span, err) }()
		defer recoverInto(&panics[1], &err)
		ref, err = s.reference(rctx, cfg)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		return nil
	})
	err = g.Wait()
	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	if err != nil {
		return domain.Report{}, err
	}

	cmp, err := comparison.Compare(est.res.Value, ref.res.Value)
	if err != nil {
		return domain.Report{}, fmt.Errorf("compare: %w", err)
	}

	lo, hi := est.res.ConfidenceInterval(1.96)
	report = domain.Report{
		RunID:                uuid.New().String(),
		CreatedAt:            time.Now().UTC(),
		Integrand:            cfg.Integrand.Name,
		Expression:           cfg.Integrand.Expr,
		Interval:             cfg.Interval,
		Samples:              est.res.N,
		Seed:                 est.res.Seed,
		Workers:              est.res.Workers,
		Estimate:             est.res.Value,
		StdError:             est.res.StdError,
		CI95Low:              lo,
		CI95High:             hi,
		Reference:            ref.res.Value,
		ErrorBound:           ref.res.ErrorBound,
		QuadratureMethod:     ref.res.Method,
		Subintervals:         ref.res.Subintervals,
		ReferenceCached:      ref.cached,
		AbsoluteError:        cmp.Absolute,
		RelativeError:        cmp.Relative,
		RelativeErrorDefined: cmp.RelativeDefined,
		EstimateDuration:     est.duration,
		ReferenceDuration:    ref.duration,
	}
	if exact, ok := cfg.Integrand.Exact(cfg.Interval.A, cfg.Interval.B); ok && domain.IsFinite(exact) {
		report.Exact = &exact
	}
	if !cmp.RelativeDefined {
		s.logger.Warn("reference is zero, relative error undefined",
			"run_id", report.RunID, "absolute_error", cmp.Absolute)
	}

	if s.history != nil {
		if _, herr := s.history.Save(ctx, report); herr != nil {
			s.logger.Error("failed to save run history", "run_id", report.RunID, "error", herr)
		} else {
			s.logger.Debug("run saved to history", "run_id", report.RunID)
		}
	}
	if s.collector != nil {
		s.collector.RecordRun(metrics.Run{
			Samples:          int64(report.Samples),
			EstimateLatency:  est.duration,
			ReferenceLatency: ref.duration,
			RelativeError:    cmp.Relative,
			RelativeDefined:  cmp.RelativeDefined,
		})
	}
	atomic.AddInt64(&s.runCount, 1)

	span.SetAttributes(
		attribute.String("run.id", report.RunID),
		attribute.Float64("estimate", report.Estimate),
		attribute.Float64("reference", report.Reference),
		attribute.Bool("reference.cached", report.ReferenceCached),
	)
	s.logger.Info("run finished",
		"run_id", report.RunID,
		"estimate", report.Estimate,
		"std_error", report.StdError,
		"reference", report.Reference,
		"error_bound", report.ErrorBound,
		"relative_error", report.RelativeError,
		"seed", report.Seed,
	)
	return report, nil
}

// reference returns the quadrature value, from the cache when possible.
func (s *Sim) reference(ctx context.Context, cfg Config) (referenceOutcome, error) {
	start := time.Now()
	key, cacheable := "", s.cache != nil && cfg.Integrand.Cacheable()
	if cacheable {
		key = referenceKey(cfg)
		if raw, ok := s.cache.Get(ctx, key); ok {
			var res quadrature.Result
			if err := json.Unmarshal([]byte(raw), &res); err == nil {
				s.recordCache(true, key)
				return referenceOutcome{res: res, cached: true, duration: time.Since(start)}, nil
			}
			s.logger.Warn("discarding malformed cached reference", "key", key)
		}
		s.recordCache(false, key)
	}

	res, err := quadrature.Reference(ctx, cfg.Integrand.F, cfg.Interval.A, cfg.Interval.B, cfg.Quadrature)
	if err != nil {
		return referenceOutcome{}, err
	}
	out := referenceOutcome{res: res, duration: time.Since(start)}

	if cacheable {
		raw, err := json.Marshal(res)
		if err == nil {
			err = s.cache.Set(ctx, key, string(raw))
		}
		if err != nil {
			s.logger.Warn("failed to cache reference", "key", key, "error", err)
		}
	}
	return out, nil
}

func (s *Sim) recordCache(hit bool, key string) {
	s.logger.Debug("reference cache lookup", "key", key, "hit", hit)
	if s.collector != nil {
		s.collector.RecordCache(hit)
	}
}

func (s *Sim) fail(err error, cfg Config) {
	kind := domain.Kind(err)
	s.logger.Error("run failed", "integrand", cfg.Integrand.Name, "kind", kind, "error", err)
	if s.collector != nil {
		s.collector.RecordFailure(kind)
	}
}

// referenceKey identifies a reference value by everything that determines it.
func referenceKey(cfg Config) string {
	q := cfg.Quadrature.Normalized()
	return fmt.Sprintf("ref:v1:%s:%s:%016x:%016x:%g:%g:%d:%d",
		q.Method, cfg.Integrand.Name,
		math.Float64bits(cfg.Interval.A), math.Float64bits(cfg.Interval.B),
		q.AbsTol, q.RelTol, q.Limit, q.MaxLevel)
}

func recoverInto(slot *any, err *error) {
	if p := recover(); p != nil {
		*slot = p
		*err = errIntegrandPanic
	}
}

var errIntegrandPanic = errors.New("integrand panicked")
