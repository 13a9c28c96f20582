package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-geocode-keys/model"
)

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	job, err := api.jobs.GetJob(c.Param("jobId"))
	if err != nil {
		SendDomainError(c, "get job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler lists jobs, optionally filtered by ?status=
func (api *API) ListJobsHandler(c *gin.Context) {
	var statusFilter *model.JobStatus
	if statusParam := c.Query("status"); statusParam != "" {
		status := model.JobStatus(statusParam)
		switch status {
		case model.JobStatusPending, model.JobStatusRunning, model.JobStatusCompleted,
			model.JobStatusFailed, model.JobStatusCancelled:
		default:
			result := &ValidationResult{Valid: true}
			result.AddError("status", "Unknown job status: "+statusParam)
			SendValidationError(c, result)
			return
		}
		statusFilter = &status
	}

	jobs := api.jobs.ListJobs(statusFilter)
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": api.jobs.GetMetrics()})
}

// PersistHandler writes the index to the data directory in the background.
func (api *API) PersistHandler(c *gin.Context) {
	if api.dataDir == "" {
		SendError(c, http.StatusConflict, ErrorCodePersistenceFailed, "No data directory configured")
		return
	}
	jobID, err := api.jobs.SubmitPersist(api.index, api.dataDir)
	if err != nil {
		SendInternalError(c, "persist", err)
		return
	}
	sendAccepted(c, jobID, "Persist started")
}

func sendAccepted(c *gin.Context, jobID, message string) {
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": message,
		"job_id":  jobID,
	})
}
