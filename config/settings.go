// Package config provides configuration structures for the geocoder key space.
// It defines the versioned bit layout shared by the index builder, the index
// reader and the relevance scorer, plus the service settings loaded from TOML.
package config

import (
	"fmt"
)

// Scheme version 1 constants.
const (
	DefaultVersion      = 1
	DefaultDistanceBits = 4
	DefaultClusterBits  = 11
	DefaultTileXShift   = 39
	DefaultTileYShift   = 25
	DefaultMaxZoom      = 14
)

// EncodingScheme is the named constant set describing every bit layout of the
// key space. Two processes agree on IDs only when their schemes are equal.
//
// IMPORTANT: a scheme must not be mutated after it has been handed to an
// encoder. Persisted indexes carry IDs computed with one scheme; reading them
// with another silently corrupts results.
type EncodingScheme struct {
	Version      int  `json:"version" toml:"version"`
	DistanceBits uint `json:"distance_bits" toml:"distance_bits"` // Low bits of term, degenerate and weighted IDs (distance or weight)
	ClusterBits  uint `json:"cluster_bits" toml:"cluster_bits"`   // High bits of a phrase ID copied from its first term
	TileXShift   uint `json:"tile_x_shift" toml:"tile_x_shift"`   // x multiplier exponent in a tile ID
	TileYShift   uint `json:"tile_y_shift" toml:"tile_y_shift"`   // y multiplier exponent in a tile ID, also the local ID width
	MaxZoom      int  `json:"max_zoom" toml:"max_zoom"`           // Zoom level of packed tile coordinates
}

// DefaultScheme returns scheme version 1.
func DefaultScheme() EncodingScheme {
	return EncodingScheme{
		Version:      DefaultVersion,
		DistanceBits: DefaultDistanceBits,
		ClusterBits:  DefaultClusterBits,
		TileXShift:   DefaultTileXShift,
		TileYShift:   DefaultTileYShift,
		MaxZoom:      DefaultMaxZoom,
	}
}

// DistanceModulus is the modulus recovering the distance or weight field.
func (s EncodingScheme) DistanceModulus() uint32 {
	return 1 << s.DistanceBits
}

// MaxDistance is the largest distance a degenerate ID can carry.
func (s EncodingScheme) MaxDistance() int {
	return int(s.DistanceModulus()) - 1
}

// BaseMask clears the distance field.
func (s EncodingScheme) BaseMask() uint32 {
	return ^(s.DistanceModulus() - 1)
}

// ClusterShift is the shift recovering the cluster field of a phrase ID.
func (s EncodingScheme) ClusterShift() uint {
	return 32 - s.ClusterBits
}

// ClusterMask selects the cluster field of a phrase ID.
func (s EncodingScheme) ClusterMask() uint32 {
	return ^uint32(0) << s.ClusterShift()
}

// MaxLocalID is the largest local feature ID that fits below the y field.
func (s EncodingScheme) MaxLocalID() uint64 {
	return 1<<s.TileYShift - 1
}

// Validate returns every conflict found in the scheme. An empty result means
// the scheme is usable.
func (s *EncodingScheme) Validate() []string {
	var conflicts []string

	if s.Version < 1 {
		conflicts = append(conflicts, fmt.Sprintf("Invalid version %d (must be >= 1)", s.Version))
	}
	if s.DistanceBits < 1 || s.DistanceBits > 8 {
		conflicts = append(conflicts, fmt.Sprintf("Invalid distance_bits %d (must be between 1 and 8)", s.DistanceBits))
	}
	if s.ClusterBits < 1 || s.ClusterBits > 16 {
		conflicts = append(conflicts, fmt.Sprintf("Invalid cluster_bits %d (must be between 1 and 16)", s.ClusterBits))
	}
	if s.TileYShift < 1 || s.TileYShift >= s.TileXShift {
		conflicts = append(conflicts, fmt.Sprintf("Invalid tile shifts x=%d y=%d (y must be positive and below x)", s.TileXShift, s.TileYShift))
	}
	// y spans [0, 2^MaxZoom) and must not reach into the x field
	if s.MaxZoom < 0 || s.TileYShift+uint(s.MaxZoom) > s.TileXShift {
		conflicts = append(conflicts, fmt.Sprintf("Invalid max_zoom %d for tile shifts x=%d y=%d", s.MaxZoom, s.TileXShift, s.TileYShift))
	}
	if s.TileXShift+uint(max(s.MaxZoom, 0)) > 63 {
		conflicts = append(conflicts, fmt.Sprintf("Tile IDs overflow 63 bits (x shift %d, max zoom %d)", s.TileXShift, s.MaxZoom))
	}

	return conflicts
}

// ApplyDefaults fills every zero field with its version 1 value.
func (s *EncodingScheme) ApplyDefaults() {
	if s.Version == 0 {
		s.Version = DefaultVersion
	}
	if s.DistanceBits == 0 {
		s.DistanceBits = DefaultDistanceBits
	}
	if s.ClusterBits == 0 {
		s.ClusterBits = DefaultClusterBits
	}
	if s.TileXShift == 0 {
		s.TileXShift = DefaultTileXShift
	}
	if s.TileYShift == 0 {
		s.TileYShift = DefaultTileYShift
	}
	if s.MaxZoom == 0 {
		s.MaxZoom = DefaultMaxZoom
	}
}
