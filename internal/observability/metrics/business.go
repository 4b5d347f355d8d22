package metrics

import "time"

// RecordFeedPoll records one poll attempt against a feed.
func RecordFeedPoll(source, category string, duration time.Duration) {
	FeedsPolledTotal.WithLabelValues(source, category).Inc()
	FeedPollDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordArticlesIngested records the breakdown of one poll tick's outcomes.
func RecordArticlesIngested(newCount, updatedCount, filteredCount int) {
	if newCount > 0 {
		ArticlesIngestedTotal.WithLabelValues("new").Add(float64(newCount))
	}
	if updatedCount > 0 {
		ArticlesIngestedTotal.WithLabelValues("updated").Add(float64(updatedCount))
	}
	if filteredCount > 0 {
		ArticlesIngestedTotal.WithLabelValues("filtered").Add(float64(filteredCount))
	}
}

// RecordFeedFailure records a fetch or parse failure for source.
func RecordFeedFailure(source, reason string) {
	FeedFailuresTotal.WithLabelValues(source, reason).Inc()
}

// RecordFeedQuarantined records a feed entering quarantine after repeated failure.
func RecordFeedQuarantined(source string) {
	FeedQuarantinedTotal.WithLabelValues(source).Inc()
}

// RecordClusterMatch records how the clustering engine resolved one article.
func RecordClusterMatch(strategy string) {
	ClusterMatchesTotal.WithLabelValues(strategy).Inc()
}

// RecordClusterWriteConflict records one ETag conflict on a cluster replace.
func RecordClusterWriteConflict() {
	ClusterWriteConflictsTotal.Inc()
}

// RecordStatusTransition records a cluster moving from one lifecycle status to another.
func RecordStatusTransition(from, to string) {
	if from == to {
		return
	}
	StatusTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordSummaryGenerated records the outcome of one LLM summary generation.
func RecordSummaryGenerated(path string, success bool, duration time.Duration, costUSD float64, provider string) {
	status := "success"
	if !success {
		status = "failure"
	}
	SummariesGeneratedTotal.WithLabelValues(path, status).Inc()
	if path == "realtime" {
		SummarizationDuration.Observe(duration.Seconds())
	}
	if success && costUSD > 0 {
		SummaryCostUSDTotal.WithLabelValues(provider).Add(costUSD)
	}
}

// RecordBatchJobTerminal records a batch job reaching a terminal status.
func RecordBatchJobTerminal(status string) {
	BatchJobsTotal.WithLabelValues(status).Inc()
}

// UpdateArticlesTotal updates the gauge tracking total articles in the store.
func UpdateArticlesTotal(count int) {
	ArticlesTotal.Set(float64(count))
}

// UpdateClustersTotal updates the gauge tracking total clusters in the store.
func UpdateClustersTotal(count int) {
	ClustersTotal.Set(float64(count))
}

// RecordDBQuery records the duration of a database query operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
