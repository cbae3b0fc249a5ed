package montecarlo

import (
	"math/rand/v2"
)

// Source is a stream of uniform variates in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// SourceFactory returns the independent stream number stream of the
// generator seeded with seed.
type SourceFactory func(seed, stream uint64) Source

// NewSource returns a PCG stream. Distinct stream numbers give independent
// sequences for the same seed.
func NewSource(seed, stream uint64) Source {
	return rand.New(rand.NewPCG(seed, splitmix64(seed^(stream+1)*0x9e3779b97f4a7c15)))
}

// seedFunc draws a fresh non-zero seed (override for deterministic tests).
var seedFunc = func() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

// RandomSeed returns a fresh non-zero seed.
func RandomSeed() uint64 {
	return seedFunc()
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
