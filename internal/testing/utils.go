// Package testing provides fixtures and helpers shared by the geokeys tests.
package testing

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-geocode-keys/config"
	"github.com/gcbaptista/go-geocode-keys/index"
	"github.com/gcbaptista/go-geocode-keys/internal/indexing"
	"github.com/gcbaptista/go-geocode-keys/internal/jobs"
	"github.com/gcbaptista/go-geocode-keys/internal/termops"
	"github.com/gcbaptista/go-geocode-keys/model"
	"github.com/gcbaptista/go-geocode-keys/services"
	"github.com/gcbaptista/go-geocode-keys/store"
)

// CreateTestService creates an empty indexing service over the default scheme
func CreateTestService(t *testing.T, shardLevel int) *indexing.Service {
	t.Helper()
	scheme := config.DefaultScheme()
	svc, err := indexing.NewService(
		termops.NewEncoder(scheme, nil),
		index.NewCache("test_index", shardLevel),
		store.NewFeatureStore(scheme.MaxLocalID()),
		nil,
	)
	require.NoError(t, err)
	return svc
}

// CreateTestJobManager starts a job manager that is stopped when the test ends
func CreateTestJobManager(t *testing.T) *jobs.Manager {
	t.Helper()
	m := jobs.NewManager(2, nil)
	m.Start()
	t.Cleanup(m.Stop)
	return m
}

// TestRecord builds a record centered on lon, lat
func TestRecord(extID, text string, lon, lat float64) model.MatchRecord {
	p := orb.Point{lon, lat}
	return model.MatchRecord{ExternalID: extID, Text: text, Center: &p}
}

// AddTestRecords indexes a small chain of places, most specific first
func AddTestRecords(t *testing.T, idx services.Indexer) []model.MatchRecord {
	t.Helper()
	address := TestRecord("address.1", "Rue du Lyret", 6.8694, 45.9237)
	address.Address = "12"
	records := []model.MatchRecord{
		address,
		TestRecord("place.1", "Chamonix,Chamonix-Mont-Blanc", 6.87, 45.92),
		TestRecord("region.1", "Haute-Savoie", 6.42, 46.03),
		TestRecord("country.1", "France", 2.35, 48.85),
	}
	require.NoError(t, idx.AddRecords(records))
	return records
}

// JobGetter is the part of the job manager the polling helpers need
type JobGetter interface {
	GetJob(jobID string) (*model.Job, error)
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:  5 * time.Second,
		Interval: 10 * time.Millisecond,
	}
}

// WaitForJobCompletion polls a job until it reaches a final status or times out
func WaitForJobCompletion(t *testing.T, jobManager JobGetter, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	var job *model.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = jobManager.GetJob(jobID)
		require.NoError(t, err)
		return job.Done()
	}, opts.Timeout, opts.Interval, "job %s did not finish", jobID)
	return job
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "job error: %s", job.Error)
	assert.Equal(t, expectedType, job.Type)
	assert.Empty(t, job.Error)
	assert.NotNil(t, job.CompletedAt)
}
