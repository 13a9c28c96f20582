package termops

import (
	"github.com/gcbaptista/go-geocode-keys/internal/tokenizer"
)

// Degens generates the degenerate IDs of a term as interleaved (key, value)
// pairs. Pair i truncates i trailing runes: the key is the term ID of the
// truncated prefix, the value is the base of the full term with distance i.
// Distance 0 is the exact term.
//
// A term of n runes yields min(n-1, MaxDistance) pairs, so the shortest prefix
// is never a single rune. Empty and one-rune terms yield an empty slice.
func (e *Encoder) Degens(term string) []uint32 {
	prefixes := tokenizer.GeneratePrefixNGrams(term)
	count := min(len(prefixes)-1, e.scheme.MaxDistance())
	if count <= 0 {
		return make([]uint32, 0)
	}

	mask := e.scheme.BaseMask()
	base := Hash(term) & mask
	degens := make([]uint32, 0, 2*count)
	for distance := 0; distance < count; distance++ {
		prefix := prefixes[len(prefixes)-1-distance]
		degens = append(degens, Hash(prefix)&mask, base|uint32(distance))
	}
	return degens
}

// DegenBase recovers the full term ID carried by a degenerate value.
func (e *Encoder) DegenBase(value uint32) uint32 {
	return value & e.scheme.BaseMask()
}

// DegenDistance recovers the number of runes truncated from the full term.
func (e *Encoder) DegenDistance(value uint32) int {
	return int(value % e.scheme.DistanceModulus())
}
