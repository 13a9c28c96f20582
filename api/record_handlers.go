package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-geocode-keys/model"
)

// AddRecordsHandler indexes one record or an array of records. With
// ?async=true the records are indexed by a background job.
func (api *API) AddRecordsHandler(c *gin.Context) {
	// Read the raw JSON data first
	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	var records []model.MatchRecord
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &records); err != nil {
			SendInvalidJSONError(c, err)
			return
		}
	} else {
		var rec model.MatchRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			SendInvalidJSONError(c, err)
			return
		}
		records = []model.MatchRecord{rec}
	}

	if result := ValidateRecords(records); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if c.Query("async") == "true" {
		jobID, err := api.jobs.SubmitIndexRecords(api.index, records)
		if err != nil {
			SendInternalError(c, "add records", err)
			return
		}
		sendAccepted(c, jobID, "Indexing started")
		return
	}

	if err := api.index.AddRecords(records); err != nil {
		SendDomainError(c, "add records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "indexed",
		"indexed": len(records),
		"stats":   api.index.Stats(),
	})
}

// FeatureRequest is the body of POST /features: external IDs most specific first.
type FeatureRequest struct {
	IDs       []string `json:"ids"`
	Relevance float64  `json:"relevance"`
}

// FeatureHandler assembles the feature for a chain of indexed records.
func (api *API) FeatureHandler(c *gin.Context) {
	var req FeatureRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateExternalIDs(req.IDs); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	feat, err := api.index.Feature(req.Relevance, req.IDs...)
	if err != nil {
		SendDomainError(c, "feature", err)
		return
	}
	c.JSON(http.StatusOK, feat)
}
