package model

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureType is the GeoJSON type of every assembled result.
const FeatureType = "Feature"

// ContextEntry names one less specific record of a result.
type ContextEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Feature is a geocoding result in the GeoJSON-like schema returned to clients.
// Center may differ from the geometry's centroid (a polygon's label point).
type Feature struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Text       string                 `json:"text"`
	PlaceName  string                 `json:"place_name"`
	Relevance  float64                `json:"relevance"`
	Properties map[string]interface{} `json:"properties"`
	BBox       geojson.BBox           `json:"bbox,omitempty"`
	Center     orb.Point              `json:"center"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Address    string                 `json:"address,omitempty"`
	Context    []ContextEntry         `json:"context,omitempty"`
}
