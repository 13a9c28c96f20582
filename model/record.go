package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Reserved keys of a match record on the wire. Every other key that does not
// start with an underscore is a property.
const (
	KeyExternalID = "_extid"
	KeyText       = "_text"
	KeyCenter     = "_center"
	KeyGeometry   = "_geometry"
	KeyBBox       = "_bbox"
	KeyAddress    = "_address"
)

// MatchRecord is one matched place at one level of specificity, as produced by
// the index reader. Text is a comma-joined synonym list whose first entry is
// canonical.
type MatchRecord struct {
	ExternalID string
	Text       string
	Center     *orb.Point
	Geometry   *geojson.Geometry
	BBox       geojson.BBox
	Address    string
	Properties map[string]interface{}
}

// Synonyms splits Text into trimmed, non-empty synonyms.
func (r *MatchRecord) Synonyms() []string {
	synonyms := make([]string, 0)
	for _, s := range strings.Split(r.Text, ",") {
		if s = strings.TrimSpace(s); s != "" {
			synonyms = append(synonyms, s)
		}
	}
	return synonyms
}

// CanonicalText is the first comma-separated synonym, untrimmed.
func (r *MatchRecord) CanonicalText() string {
	text, _, _ := strings.Cut(r.Text, ",")
	return text
}

// UnmarshalJSON reads the underscore-keyed wire format into typed fields.
func (r *MatchRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = MatchRecord{Properties: make(map[string]interface{})}
	for key, value := range raw {
		var err error
		switch key {
		case KeyExternalID:
			r.ExternalID, err = scalarString(value)
		case KeyText:
			err = json.Unmarshal(value, &r.Text)
		case KeyCenter:
			var p orb.Point
			if err = json.Unmarshal(value, &p); err == nil {
				r.Center = &p
			}
		case KeyGeometry:
			if string(value) != "null" {
				r.Geometry = &geojson.Geometry{}
				err = json.Unmarshal(value, r.Geometry)
			}
		case KeyBBox:
			err = json.Unmarshal(value, &r.BBox)
		case KeyAddress:
			r.Address, err = scalarString(value)
		default:
			if strings.HasPrefix(key, "_") {
				continue
			}
			var v interface{}
			if err = json.Unmarshal(value, &v); err == nil {
				r.Properties[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("failed to decode record field %s: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON writes the underscore-keyed wire format.
func (r MatchRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Properties)+6)
	for k, v := range r.Properties {
		out[k] = v
	}
	if r.ExternalID != "" {
		out[KeyExternalID] = r.ExternalID
	}
	if r.Text != "" {
		out[KeyText] = r.Text
	}
	if r.Center != nil {
		out[KeyCenter] = r.Center
	}
	if r.Geometry != nil {
		out[KeyGeometry] = r.Geometry
	}
	if len(r.BBox) > 0 {
		out[KeyBBox] = r.BBox
	}
	if r.Address != "" {
		out[KeyAddress] = r.Address
	}
	return json.Marshal(out)
}

// scalarString accepts a JSON string or number; house numbers and numeric IDs
// arrive as either.
func scalarString(value json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Context is the chain of records backing one result, most specific first,
// with the aggregate relevance of the whole chain.
type Context struct {
	Records   []MatchRecord `json:"records"`
	Relevance float64       `json:"relevance"`
}
