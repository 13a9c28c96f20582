// Package index holds the in-memory, sharded postings of a geocoder index.
//
// Postings are lists of uint64 values keyed by (kind, shard, id). A shard is a
// unit of persistence: it can be packed to bytes and loaded back independently.
package index

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gcbaptista/go-geocode-keys/internal/errors"
)

// Kind names one family of postings.
type Kind string

// Kinds written by the index builder.
const (
	KindTerm   Kind = "term"   // term ID -> weighted phrase IDs
	KindPhrase Kind = "phrase" // phrase ID -> term IDs
	KindDegen  Kind = "degen"  // prefix term ID -> degenerate values
	KindGrid   Kind = "grid"   // phrase ID -> tile IDs
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{KindTerm, KindPhrase, KindDegen, KindGrid}

// ParseKind validates a kind name.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", errors.NewUnknownKindError(name)
}

// Shard returns the shard of id at the given level: id % 16^level. Level 0
// keeps everything in shard 0; levels above 8 behave as 8.
func Shard(level int, id uint64) uint32 {
	if level <= 0 {
		return 0
	}
	level = min(level, 8)
	return uint32(id % (1 << (4 * uint(level))))
}

type shardKey struct {
	kind  Kind
	shard uint32
}

// Cache holds postings for one index. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	id         string
	shardLevel int
	shards     map[shardKey]map[uint64][]uint64
}

// NewCache creates an empty cache.
func NewCache(id string, shardLevel int) *Cache {
	return &Cache{
		id:         id,
		shardLevel: shardLevel,
		shards:     make(map[shardKey]map[uint64][]uint64),
	}
}

// ID returns the cache identifier.
func (c *Cache) ID() string {
	return c.id
}

// ShardLevel returns the level used by Shard.
func (c *Cache) ShardLevel() int {
	return c.shardLevel
}

// ShardOf returns the shard id falls into for this cache.
func (c *Cache) ShardOf(id uint64) uint32 {
	return Shard(c.shardLevel, id)
}

// Set replaces the postings of id.
func (c *Cache) Set(kind Kind, shard uint32, id uint64, values []uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := shardKey{kind, shard}
	m, ok := c.shards[key]
	if !ok {
		m = make(map[uint64][]uint64)
		c.shards[key] = m
	}
	m[id] = slices.Clone(values)
}

// Get returns a copy of the postings of id.
func (c *Cache) Get(kind Kind, shard uint32, id uint64) ([]uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	values, ok := c.shards[shardKey{kind, shard}][id]
	if !ok {
		return nil, false
	}
	return slices.Clone(values), true
}

// Has reports whether a shard of kind holds any postings.
func (c *Cache) Has(kind Kind, shard uint32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.shards[shardKey{kind, shard}]
	return ok
}

// List returns the shards of kind in ascending order.
func (c *Cache) List(kind Kind) []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	shards := make([]uint32, 0)
	for key := range c.shards {
		if key.kind == kind {
			shards = append(shards, key.shard)
		}
	}
	slices.Sort(shards)
	return shards
}

// Keys returns the ids stored in one shard in ascending order.
func (c *Cache) Keys(kind Kind, shard uint32) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m := c.shards[shardKey{kind, shard}]
	keys := make([]uint64, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	slices.Sort(keys)
	return keys
}

// Pack serializes one shard with msgpack.
func (c *Cache) Pack(kind Kind, shard uint32) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.shards[shardKey{kind, shard}]
	if !ok {
		m = map[uint64][]uint64{}
	}
	data, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s shard %d: %w", kind, shard, err)
	}
	return data, nil
}

// Load replaces one shard with packed data.
func (c *Cache) Load(data []byte, kind Kind, shard uint32) error {
	var m map[uint64][]uint64
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to load %s shard %d: %w", kind, shard, err)
	}
	if m == nil {
		m = make(map[uint64][]uint64)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.shards[shardKey{kind, shard}] = m
	return nil
}

// Reset drops every shard.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shards = make(map[shardKey]map[uint64][]uint64)
}
