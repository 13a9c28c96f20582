package termops

// SortDegens orders degenerate values nearest first: ascending distance, ties
// broken by ascending ID. Use with slices.SortStableFunc.
func (e *Encoder) SortDegens(a, b uint32) int {
	mod := e.scheme.DistanceModulus()
	ad, bd := a%mod, b%mod
	switch {
	case ad < bd:
		return -1
	case ad > bd:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortWeighted orders weighted IDs by descending embedded weight. Equal weights
// compare equal so a stable sort keeps insertion order.
func (e *Encoder) SortWeighted(a, b uint32) int {
	mod := e.scheme.DistanceModulus()
	aw, bw := a%mod, b%mod
	switch {
	case aw > bw:
		return -1
	case aw < bw:
		return 1
	}
	return 0
}

// Weighted packs weight into the low bits of id, clamping it to the field.
func (e *Encoder) Weighted(id uint32, weight int) uint32 {
	weight = max(0, min(weight, e.scheme.MaxDistance()))
	return id&e.scheme.BaseMask() | uint32(weight)
}
