package jobs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gcbaptista/go-geocode-keys/model"
	"github.com/gcbaptista/go-geocode-keys/services"
)

// IndexBatchSize is the number of records indexed between progress updates
// and cancellation checks.
const IndexBatchSize = 100

// SubmitIndexRecords indexes records in the background.
func (m *Manager) SubmitIndexRecords(idx services.Indexer, records []model.MatchRecord) (string, error) {
	meta := map[string]string{"records": strconv.Itoa(len(records))}
	return m.Submit(model.JobTypeIndexRecords, meta, func(ctx context.Context, job *model.Job) error {
		for i := 0; i < len(records); i += IndexBatchSize {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("stopped after %d of %d records: %w", i, len(records), err)
			}
			end := min(i+IndexBatchSize, len(records))
			if err := idx.AddRecords(records[i:end]); err != nil {
				return err
			}
			m.UpdateJobProgress(job.ID, end, len(records), "Indexing records")
		}
		return nil
	})
}

// SubmitPersist writes the index to dir in the background.
func (m *Manager) SubmitPersist(idx services.Indexer, dir string) (string, error) {
	return m.Submit(model.JobTypePersist, map[string]string{"dir": dir}, func(ctx context.Context, job *model.Job) error {
		m.UpdateJobProgress(job.ID, 0, 1, "Persisting index")
		if err := idx.Persist(dir); err != nil {
			return err
		}
		m.UpdateJobProgress(job.ID, 1, 1, "Persisted")
		return nil
	})
}
