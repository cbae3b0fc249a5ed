package montecarlo

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"mc-integrator/domain"
)

var errWorkerPanic = errors.New("sampling worker panicked")

// Sampler runs seeded estimates, optionally split across workers.
//
// For a fixed Seed and Workers the result is bit-identical across runs.
// Changing Workers changes which samples are drawn, so results differ.
type Sampler struct {
	// Seed selects the random streams; zero draws a fresh seed, reported in
	// Result.Seed.
	Seed uint64
	// Workers is the number of goroutines sampling in parallel (default 1).
	Workers int
	// MaxEvaluations caps n when positive.
	MaxEvaluations int64
	// NewSource builds worker streams; nil means NewSource.
	NewSource SourceFactory
}

// Run estimates ∫_a^b f(x)dx from n samples.
func (s Sampler) Run(ctx context.Context, f domain.Func, a, b float64, n int) (Result, error) {
	if err := validate(a, b, n); err != nil {
		return Result{}, err
	}
	if s.MaxEvaluations > 0 && int64(n) > s.MaxEvaluations {
		return Result{}, &domain.BudgetError{Limit: s.MaxEvaluations, Evaluated: int64(n)}
	}

	seed := s.Seed
	if seed == 0 {
		seed = RandomSeed()
	}
	newSource := s.NewSource
	if newSource == nil {
		newSource = NewSource
	}
	workers := max(s.Workers, 1)
	workers = min(workers, n)

	width := b - a
	pool := make([]worker, workers)
	per, rem := n/workers, n%workers
	for i := range pool {
		pool[i] = worker{id: i, src: newSource(seed, uint64(i)), count: per}
		if i < rem {
			pool[i].count++
		}
	}

	var err error
	if workers == 1 {
		err = pool[0].run(ctx, f, a, width)
	} else {
		err = runParallel(ctx, pool, f, a, width)
	}

	parts := make([]accumulator, workers)
	var evaluated int64
	for i := range pool {
		parts[i] = pool[i].acc
		evaluated += pool[i].acc.n
	}
	if err != nil {
		return Result{}, samplingError(err, evaluated)
	}

	res, err := newResult(reduce(parts), width)
	if err != nil {
		return Result{}, err
	}
	res.Seed = seed
	res.Workers = workers
	return res, nil
}

// runParallel runs every worker in its own goroutine. The first failure
// cancels the rest; a panic in f is re-raised on the calling goroutine.
func runParallel(ctx context.Context, pool []worker, f domain.Func, a, width float64) error {
	panics := make([]any, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	for i := range pool {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					panics[i] = p
					err = errWorkerPanic
				}
			}()
			return pool[i].run(gctx, f, a, width)
		})
	}
	err := g.Wait()
	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	return err
}
