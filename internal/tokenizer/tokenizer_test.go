package tokenizer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", []string{}},
		{"single word", "foo", []string{"foo"}},
		{"two words", "foo bar", []string{"foo", "bar"}},
		{"hyphenated", "foo-bar", []string{"foo", "bar"}},
		{"diacritics", "San José", []string{"san", "jose"}},
		{"decomposed diacritics", "San Jose\u0301", []string{"san", "jose"}},
		{"multiple hyphens", "Chamonix-Mont-Blanc", []string{"chamonix", "mont", "blanc"}},
		{"cyrillic", "Москва", []string{"moskva"}},
		{"cjk", "京都市", []string{"jing", "du", "shi"}},
		{"punctuation", "Main St., Springfield", []string{"main", "st", "springfield"}},
		{"apostrophe", "O'Neil", []string{"oneil"}},
		{"abbreviation", "U.S.A.", []string{"usa"}},
		{"comma separated numbers", "1,2", []string{"1", "2"}},
		{"ordinals", "14th 15th", []string{"14th", "15th"}},
		{"leading/trailing spaces", "  hello world  ", []string{"hello", "world"}},
		{"only symbols", "!@#$%^", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeQuery(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name       string
		input      string
		coerce     bool
		wantLonLat *orb.Point
		wantTokens []string
	}{
		{"integer pair", "40,0", true, &orb.Point{40, 0}, nil},
		{"signed decimals with space", "-120.9129102983109, 45.312312", true, &orb.Point{-120.9129102983109, 45.312312}, nil},
		{"surrounding whitespace", "  1.5 ,-2  ", true, &orb.Point{1.5, -2}, nil},
		{"ordinals stay text", "14th 15th", true, nil, []string{"14th", "15th"}},
		{"pair without coercion", "40,0", false, nil, []string{"40", "0"}},
		{"three numbers", "1,2,3", true, nil, []string{"1", "2", "3"}},
		{"empty input", "", true, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := n.TokenizeQuery(tt.input, tt.coerce)
			if tt.wantLonLat != nil {
				require.True(t, q.IsLonLat(), "expected a coordinate pair")
				assert.InDelta(t, tt.wantLonLat.Lon(), q.LonLat.Lon(), 1e-12)
				assert.InDelta(t, tt.wantLonLat.Lat(), q.LonLat.Lat(), 1e-12)
				assert.Nil(t, q.Tokens)
				return
			}
			assert.False(t, q.IsLonLat())
			assert.Equal(t, tt.wantTokens, q.Tokens)
		})
	}
}

func TestNormalizer_CustomTransliterator(t *testing.T) {
	upper := TransliteratorFunc(strings.ToUpper)
	n := NewNormalizer(upper)

	// lowercase happens after transliteration
	assert.Equal(t, []string{"foo", "bar"}, n.Tokenize("foo bar"))
}

func TestGeneratePrefixNGrams(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  []string
	}{
		{"empty token", "", []string{}},
		{"single character", "a", []string{"a"}},
		{"short token", "cat", []string{"c", "ca", "cat"}},
		{"longer token", "search", []string{"s", "se", "sea", "sear", "searc", "search"}},
		{"multibyte runes", "josé", []string{"j", "jo", "jos", "josé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GeneratePrefixNGrams(tt.token)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GeneratePrefixNGrams(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}
