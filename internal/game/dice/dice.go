// Package dice provides the randomness abstraction used by every roll in the
// game: rarity draws, stat draws, score jitter and level-up stat picks.
package dice

// Source is the randomness provider for all game rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}

// Range returns a uniform integer in the closed interval [lo, hi].
// When hi < lo the bounds are swapped.
//
// Postcondition: lo <= result <= hi.
func Range(src Source, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Uniform returns a uniform float in [lo, hi).
//
// Precondition: lo <= hi.
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// WeightedIndex performs a categorical draw over weights and returns the
// selected index. Negative weights are treated as zero. When every weight is
// zero the first index is returned.
//
// Precondition: len(weights) > 0.
// Postcondition: 0 <= result < len(weights).
func WeightedIndex(src Source, weights []float64) int {
	if len(weights) == 0 {
		panic("dice: WeightedIndex called with no weights")
	}
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}
	roll := src.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if roll < w {
			return i
		}
		roll -= w
	}
	// Floating point residue lands on the last positive weight.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return 0
}

// Pick returns a uniformly chosen element of items.
//
// Precondition: len(items) > 0.
func Pick[T any](src Source, items []T) T {
	return items[src.Intn(len(items))]
}

// Shuffle returns a shuffled copy of items (Fisher-Yates). The input is not
// modified.
func Shuffle[T any](src Source, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Sample draws k distinct elements from items without replacement.
// When k exceeds len(items) every element is returned in random order.
//
// Postcondition: len(result) == min(k, len(items)); no element repeats.
func Sample[T any](src Source, items []T, k int) []T {
	shuffled := Shuffle(src, items)
	if k > len(shuffled) {
		k = len(shuffled)
	}
	if k < 0 {
		k = 0
	}
	return shuffled[:k]
}
