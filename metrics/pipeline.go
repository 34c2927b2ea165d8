package metrics

import "sync/atomic"

type PipelineMetrics struct {
	ProcessedCount    atomic.Int32
	InsertedCount     atomic.Int32
	UpdatedCount      atomic.Int32
	RejectedCount     atomic.Int32
	PriceChangesCount atomic.Int32
	GoroutinesCount   atomic.Int32
}
