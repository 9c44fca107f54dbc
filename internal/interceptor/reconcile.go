package interceptor

import (
	"context"

	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
)

// ReconcileResult reports what an activation did to storage.
type ReconcileResult struct {
	Deleted []string
	Kept    []string
	// Failed holds partitions whose deletion failed. They are left in place
	// for a later activation to remove.
	Failed map[string]error
}

// ReconcilePartitions deletes every partition whose name is not in allowList.
//
// Deletion is best-effort: a partition that cannot be deleted is recorded and
// skipped, and the remaining partitions are still processed. Only a failure to
// list partitions is returned as an error. Running it again with the same
// allow-list when nothing is stale changes nothing.
func (m *Manager) ReconcilePartitions(ctx context.Context, allowList []string) (ReconcileResult, error) {
	allowed := make(map[string]struct{}, len(allowList))
	for _, name := range allowList {
		allowed[name] = struct{}{}
	}

	names, err := m.storage.Keys(ctx)
	if err != nil {
		interceptErr := &InterceptError{
			Message:   err.Error(),
			Retryable: failure.SeverityOf(err) == failure.SeverityRecoverable,
			Cause:     ErrCauseListFailure,
			Err:       err,
		}
		m.recordError("Manager.ReconcilePartitions", interceptErr)
		return ReconcileResult{}, interceptErr
	}

	result := ReconcileResult{Failed: make(map[string]error)}
	for _, name := range names {
		if _, keep := allowed[name]; keep {
			result.Kept = append(result.Kept, name)
			m.metadataSink.RecordPartition(metadata.PartitionKept, name, 0)
			continue
		}

		if _, err := m.storage.Delete(ctx, name); err != nil {
			result.Failed[name] = err
			m.recordError("Manager.ReconcilePartitions", &InterceptError{
				Message:   err.Error(),
				Cause:     ErrCauseStoreFailure,
				Partition: name,
				Err:       err,
			})
			continue
		}
		result.Deleted = append(result.Deleted, name)
		m.metadataSink.RecordPartition(metadata.PartitionDeleted, name, 0)
	}
	return result, nil
}
