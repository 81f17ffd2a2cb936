package ports

// RandomSource produces numbers in [0, 1) for random selectors.
// *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// FixedRandom always returns the same number. Useful in tests.
type FixedRandom float64

func (f FixedRandom) Float64() float64 { return float64(f) }
