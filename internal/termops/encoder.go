// Package termops converts tokens into the 32-bit keys of the geocoder index:
// term IDs, degenerate (prefix) IDs, phrase IDs, and the comparators used to
// write sorted postings.
//
// All IDs follow one config.EncodingScheme. An Encoder holds that scheme and a
// tokenizer.Normalizer by reference and has no mutable state, so one Encoder
// can serve every goroutine of a process.
package termops

import (
	"hash/fnv"

	"github.com/gcbaptista/go-geocode-keys/config"
	"github.com/gcbaptista/go-geocode-keys/internal/tokenizer"
)

// Encoder computes term, degenerate and phrase IDs for one encoding scheme.
type Encoder struct {
	scheme     config.EncodingScheme
	normalizer *tokenizer.Normalizer
}

// NewEncoder creates an Encoder. A nil normalizer uses the default
// transliteration table.
func NewEncoder(scheme config.EncodingScheme, normalizer *tokenizer.Normalizer) *Encoder {
	if normalizer == nil {
		normalizer = tokenizer.NewNormalizer(nil)
	}
	return &Encoder{scheme: scheme, normalizer: normalizer}
}

// Scheme returns a copy of the encoder's scheme.
func (e *Encoder) Scheme() config.EncodingScheme {
	return e.scheme
}

// Normalizer returns the normalizer used by the *Of helpers.
func (e *Encoder) Normalizer() *tokenizer.Normalizer {
	return e.normalizer
}

// Hash is 32-bit FNV-1a over the token's UTF-8 bytes. It has no seed, so IDs
// are stable across processes and persisted indexes.
func Hash(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}

// Terms hashes each token into a term ID with the distance field cleared.
// Output order matches input order.
func (e *Encoder) Terms(tokens []string) []uint32 {
	mask := e.scheme.BaseMask()
	terms := make([]uint32, len(tokens))
	for i, token := range tokens {
		terms[i] = Hash(token) & mask
	}
	return terms
}

// TermsMap maps each term ID back to its token. When two distinct tokens
// collide on one ID the first token observed is kept.
func (e *Encoder) TermsMap(tokens []string) map[uint32]string {
	terms := e.Terms(tokens)
	m := make(map[uint32]string, len(tokens))
	for i, id := range terms {
		if _, seen := m[id]; !seen {
			m[id] = tokens[i]
		}
	}
	return m
}

// TermsOf tokenizes text and hashes the tokens.
func (e *Encoder) TermsOf(text string) []uint32 {
	return e.Terms(e.normalizer.Tokenize(text))
}
