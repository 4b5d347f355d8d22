package entity

import "time"

// BatchStatus is the lifecycle label of an outstanding LLM batch submission.
type BatchStatus string

const (
	BatchSubmitted  BatchStatus = "submitted"
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// BatchMaxClusters is the upper bound on clusters carried by one BatchJob,
// per spec.md §3 and §6.
const BatchMaxClusters = 500

// BatchJob tracks an outstanding batch submission to the LLM provider. It
// is created when a batch is submitted and updated by each poll of the
// provider until it reaches a terminal status.
type BatchJob struct {
	BatchID        string
	Status         BatchStatus
	ClusterIDs     []string
	SubmittedAt    time.Time
	EndedAt        time.Time
	RequestCount   int
	SucceededCount int
	ErroredCount   int
	TotalCostUSD   float64

	// SourceCountsAtSubmission snapshots each cluster's source_articles
	// length as of submission, keyed by cluster ID. It lets the batch
	// result applier detect a cluster that gained or lost sources while
	// the batch was outstanding and skip applying a now-stale summary to
	// it (spec.md §4.6's "skip materially-changed clusters").
	SourceCountsAtSubmission map[string]int

	// ClusterCategories records each cluster's partition key as of
	// submission, keyed by cluster ID, since ReadCluster requires the
	// category up front and a BatchJob otherwise carries only IDs.
	ClusterCategories map[string]string
}

// Terminal reports whether the batch has reached a final status.
func (b *BatchJob) Terminal() bool {
	return b.Status == BatchCompleted || b.Status == BatchFailed
}

// Validate enforces the BatchJob invariants: a batch_id, at least one
// cluster, and no more than BatchMaxClusters clusters.
func (b *BatchJob) Validate() error {
	if b.BatchID == "" {
		return &ValidationError{Field: "batch_id", Message: "batch_id is required"}
	}
	if len(b.ClusterIDs) == 0 {
		return &ValidationError{Field: "cluster_ids", Message: "batch must cover at least one cluster"}
	}
	if len(b.ClusterIDs) > BatchMaxClusters {
		return &ValidationError{Field: "cluster_ids", Message: "batch exceeds the maximum cluster count"}
	}
	return nil
}
