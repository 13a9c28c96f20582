// Package tilecode packs a tile coordinate and a per-tile feature ID into one
// spatial index key: x*2^39 + y*2^25 + localID.
//
// z is not stored; it is the scheme's max zoom (14) and known from context.
// Arithmetic is uint64 and wraps on misuse. Callers keep localID below 2^25
// and x, y below 2^14.
package tilecode

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/gcbaptista/go-geocode-keys/config"
	"github.com/gcbaptista/go-geocode-keys/internal/errors"
)

// Coder packs tile IDs for one encoding scheme.
type Coder struct {
	xShift  uint
	yShift  uint
	maxZoom maptile.Zoom
}

// NewCoder creates a Coder from the scheme's tile fields.
func NewCoder(scheme config.EncodingScheme) *Coder {
	return &Coder{
		xShift:  scheme.TileXShift,
		yShift:  scheme.TileYShift,
		maxZoom: maptile.Zoom(scheme.MaxZoom),
	}
}

// MaxLocalID is the largest local ID that does not spill into the y field.
func (c *Coder) MaxLocalID() uint64 {
	return 1<<c.yShift - 1
}

// ZXY parses "z/x/y" and packs it with localID. Segments that do not parse
// as numbers count as 0 and fractional values are truncated, so malformed
// tile names degrade instead of failing.
func (c *Coder) ZXY(localID uint64, zxy string) uint64 {
	parts := strings.Split(zxy, "/")
	var x, y int64
	if len(parts) > 1 {
		x = parseInt(parts[1])
	}
	if len(parts) > 2 {
		y = parseInt(parts[2])
	}
	return c.pack(uint64(x), uint64(y), localID)
}

// Encode packs a maptile.Tile. The tile's zoom is ignored.
func (c *Coder) Encode(tile maptile.Tile, localID uint64) uint64 {
	return c.pack(uint64(tile.X), uint64(tile.Y), localID)
}

// EncodeChecked packs like Encode but rejects local IDs wider than their field.
func (c *Coder) EncodeChecked(tile maptile.Tile, localID uint64) (uint64, error) {
	if localID > c.MaxLocalID() {
		return 0, errors.NewTileRangeError(localID, c.MaxLocalID())
	}
	return c.Encode(tile, localID), nil
}

// Decode splits a tile ID into its tile at max zoom and its local ID.
func (c *Coder) Decode(id uint64) (maptile.Tile, uint64) {
	localID := id & c.MaxLocalID()
	y := (id >> c.yShift) & (1<<(c.xShift-c.yShift) - 1)
	x := id >> c.xShift
	return maptile.New(uint32(x), uint32(y), c.maxZoom), localID
}

// TileAt returns the max-zoom tile containing p.
func (c *Coder) TileAt(p orb.Point) maptile.Tile {
	return maptile.At(p, c.maxZoom)
}

func (c *Coder) pack(x, y, localID uint64) uint64 {
	return x<<c.xShift + y<<c.yShift + localID
}

// parseInt reads an integer segment, truncating decimals and yielding 0 for
// anything that is not a number.
func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
