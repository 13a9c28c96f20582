// Package feature assembles the chain of records behind a match into the
// GeoJSON-like result returned to clients.
package feature

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gcbaptista/go-geocode-keys/internal/errors"
	"github.com/gcbaptista/go-geocode-keys/model"
)

// ToFeature reformats a context into a Feature. The primary record (index 0)
// must carry a center, an external ID and text; every other record an external
// ID and text. No partial feature is returned on error.
func ToFeature(ctx model.Context) (*model.Feature, error) {
	if len(ctx.Records) == 0 {
		return nil, errors.NewValidationError("context", "context has no records")
	}

	primary := ctx.Records[0]
	if primary.Center == nil {
		return nil, errors.NewValidationError("center", "feature has no center")
	}
	if primary.ExternalID == "" {
		return nil, errors.NewValidationError("externalID", "feature has no external id")
	}
	if primary.Text == "" {
		return nil, errors.NewValidationError("text", "feature has no text")
	}

	names := make([]string, len(ctx.Records))
	for i := range ctx.Records {
		names[i] = ctx.Records[i].CanonicalText()
	}
	placeName := strings.Join(names, ", ")
	if primary.Address != "" {
		placeName = primary.Address + " " + placeName
	}

	feat := &model.Feature{
		ID:         primary.ExternalID,
		Type:       model.FeatureType,
		Text:       names[0],
		PlaceName:  placeName,
		Relevance:  ctx.Relevance,
		Properties: make(map[string]interface{}, len(primary.Properties)),
		Address:    primary.Address,
	}

	if primary.Geometry != nil {
		feat.Geometry = primary.Geometry
	} else {
		feat.Geometry = geojson.NewGeometry(*primary.Center)
	}
	if p, ok := feat.Geometry.Coordinates.(orb.Point); ok {
		feat.Center = p
	} else {
		feat.Center = *primary.Center
	}
	if len(primary.BBox) > 0 {
		feat.BBox = primary.BBox
	}
	for k, v := range primary.Properties {
		if !strings.HasPrefix(k, "_") {
			feat.Properties[k] = v
		}
	}

	if len(ctx.Records) > 1 {
		feat.Context = make([]model.ContextEntry, 0, len(ctx.Records)-1)
		for i := 1; i < len(ctx.Records); i++ {
			rec := ctx.Records[i]
			if rec.ExternalID == "" {
				return nil, errors.NewValidationError(fmt.Sprintf("context[%d].externalID", i), "feature has no external id")
			}
			if rec.Text == "" {
				return nil, errors.NewValidationError(fmt.Sprintf("context[%d].text", i), "feature has no text")
			}
			feat.Context = append(feat.Context, model.ContextEntry{
				ID:   rec.ExternalID,
				Text: names[i],
			})
		}
	}

	return feat, nil
}
