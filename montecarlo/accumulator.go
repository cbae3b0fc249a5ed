package montecarlo

// accumulator keeps a running count, mean and sum of squared deviations
// (Welford). It never holds the raw sum, so large n does not lose precision
// to cancellation.
type accumulator struct {
	n    int64
	mean float64
	m2   float64
}

func (acc *accumulator) add(y float64) {
	acc.n++
	d := y - acc.mean
	acc.mean += d / float64(acc.n)
	acc.m2 += d * (y - acc.mean)
}

// variance is the unbiased sample variance, zero when n < 2.
func (acc accumulator) variance() float64 {
	if acc.n < 2 {
		return 0
	}
	return acc.m2 / float64(acc.n-1)
}

// merge combines two partial accumulators (Chan, Golub and LeVeque).
func merge(x, y accumulator) accumulator {
	if x.n == 0 {
		return y
	}
	if y.n == 0 {
		return x
	}
	n := x.n + y.n
	d := y.mean - x.mean
	fx, fy, fn := float64(x.n), float64(y.n), float64(n)
	return accumulator{
		n:    n,
		mean: x.mean + d*fy/fn,
		m2:   x.m2 + y.m2 + d*d*fx*fy/fn,
	}
}

// reduce merges partials as a balanced tree, so rounding error grows with
// log(len(parts)) rather than len(parts).
func reduce(parts []accumulator) accumulator {
	switch len(parts) {
	case 0:
		return accumulator{}
	case 1:
		return parts[0]
	}
	mid := len(parts) / 2
	return merge(reduce(parts[:mid]), reduce(parts[mid:]))
}
