package montecarlo

import (
	"context"

	"mc-integrator/domain"
)

// worker draws count samples from its own source into its own accumulator.
type worker struct {
	id    int
	src   Source
	count int
	acc   accumulator
}

func (w *worker) run(ctx context.Context, f domain.Func, a, width float64) error {
	for i := 0; i < w.count; i++ {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		x := a + width*w.src.Float64()
		y := f(x)
		if !domain.IsFinite(y) {
			return &domain.NonFiniteError{X: x, Y: y}
		}
		w.acc.add(y)
	}
	return nil
}
