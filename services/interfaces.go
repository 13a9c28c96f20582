package services

import (
	"github.com/gcbaptista/go-geocode-keys/index"
	"github.com/gcbaptista/go-geocode-keys/internal/termops"
	"github.com/gcbaptista/go-geocode-keys/model"
)

// VocabularyEntry is one indexed token and its term ID.
type VocabularyEntry struct {
	Token  string `json:"token"`
	TermID uint32 `json:"term_id"`
}

// Stats summarises the contents of an index.
type Stats struct {
	Records    int                `json:"records"`
	Vocabulary int                `json:"vocabulary"`
	Shards     map[index.Kind]int `json:"shards"` // number of non-empty shards per kind
}

// Indexer defines operations for writing match records into an index.
type Indexer interface {
	AddRecords(records []model.MatchRecord) error
	Persist(dir string) error
	Restore(dir string) error
}

// Lookup defines read operations over a built index.
type Lookup interface {
	Postings(kind index.Kind, id uint64) []uint64
	Vocabulary(prefix string) []VocabularyEntry
	Context(relevance float64, externalIDs ...string) (model.Context, error)
	Feature(relevance float64, externalIDs ...string) (*model.Feature, error)
	Stats() Stats
}

// IndexAccessor provides access to an index's writer, reader and encoder.
type IndexAccessor interface {
	Indexer
	Lookup
	Encoder() *termops.Encoder
}
