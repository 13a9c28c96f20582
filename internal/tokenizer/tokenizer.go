package tokenizer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/mozillazg/go-unidecode"
	"github.com/paulmach/orb"
	"golang.org/x/text/unicode/norm"
)

// lonLatRegex matches "<lon>,<lat>" with optional whitespace and signed decimals.
var lonLatRegex = regexp.MustCompile(`^\s*([-+]?(?:\d+\.?\d*|\.\d+))\s*,\s*([-+]?(?:\d+\.?\d*|\.\d+))\s*$`)

// Transliterator maps arbitrary scripts to a Latin phonetic approximation.
// Implementations are loaded once and must not change afterwards.
type Transliterator interface {
	Transliterate(s string) string
}

// TransliteratorFunc adapts a function to the Transliterator interface.
type TransliteratorFunc func(s string) string

// Transliterate calls f(s).
func (f TransliteratorFunc) Transliterate(s string) string {
	return f(s)
}

// Unidecode is the default transliteration table (Cyrillic to Latin, CJK to
// syllables, diacritics stripped).
var Unidecode Transliterator = TransliteratorFunc(unidecode.Unidecode)

// Normalizer splits and normalizes raw text into tokens. It holds no mutable
// state and is safe for concurrent use.
type Normalizer struct {
	translit Transliterator
}

// NewNormalizer creates a Normalizer using translit, or Unidecode when nil.
func NewNormalizer(translit Transliterator) *Normalizer {
	if translit == nil {
		translit = Unidecode
	}
	return &Normalizer{translit: translit}
}

// Query is the result of tokenizing user input: either text tokens or a
// coordinate pair, never both.
type Query struct {
	Tokens []string   `json:"tokens,omitempty"`
	LonLat *orb.Point `json:"lonlat,omitempty"`
}

// IsLonLat reports whether the input was read as a coordinate pair.
func (q Query) IsLonLat() bool {
	return q.LonLat != nil
}

// Tokenize converts a string into a slice of lowercase Latin tokens.
// It transliterates, lowercases, and splits on whitespace and punctuation.
func (n *Normalizer) Tokenize(text string) []string {
	tokens := make([]string, 0) // Initialize as empty slice, not nil
	if text == "" {
		return tokens
	}

	// 1. Compose so that decomposed accents transliterate like precomposed ones
	composed := norm.NFC.String(text)

	// 2. Transliterate and lowercase; commas always separate (synonym lists, "1,2")
	latin := strings.ToLower(n.translit.Transliterate(composed))
	latin = strings.ReplaceAll(latin, ",", " ")

	// 3. Split on UAX#29 word boundaries, keeping only segments with letters or digits
	segments := words.FromString(latin)
	for segments.Next() {
		if token := stripSeparators(segments.Value()); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// TokenizeQuery tokenizes text, or returns a coordinate pair when coerceNumeric
// is set and the whole input reads as "<lon>,<lat>".
func (n *Normalizer) TokenizeQuery(text string, coerceNumeric bool) Query {
	if coerceNumeric {
		if p, ok := ParseLonLat(text); ok {
			return Query{LonLat: &p}
		}
	}
	return Query{Tokens: n.Tokenize(text)}
}

// ParseLonLat parses "<lon>,<lat>". Inputs that merely start with digits
// ("14th 15th") are rejected.
func ParseLonLat(text string) (orb.Point, bool) {
	m := lonLatRegex.FindStringSubmatch(text)
	if m == nil {
		return orb.Point{}, false
	}
	lon, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return orb.Point{}, false
	}
	lat, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// stripSeparators drops every rune that is not a letter or digit, so "o'neil"
// and "u.s.a" become single tokens.
func stripSeparators(segment string) string {
	var b strings.Builder
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GeneratePrefixNGrams creates prefixes of a token, starting from length 1 up to the token's length.
// Lengths count runes. For example, for the token "search", it produces: "s", "se", "sea", "sear", "searc", "search".
func GeneratePrefixNGrams(token string) []string {
	runes := []rune(token)
	if len(runes) == 0 {
		return make([]string, 0) // Return empty slice instead of nil
	}

	ngrams := make([]string, len(runes))
	for i := 1; i <= len(runes); i++ {
		ngrams[i-1] = string(runes[:i])
	}
	return ngrams
}
