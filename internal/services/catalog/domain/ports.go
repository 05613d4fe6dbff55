package domain

import "context"

// WriterPort records the detectors of a run
type WriterPort interface {
	Record(ctx context.Context, runID string, xs []Record) error
}

// QueryPort reads the catalog
type QueryPort interface {
	ListRuns(ctx context.Context, in ListRunsInput) (rows []RunSummary, total int, err error)
	ListDetectors(ctx context.Context, in RunInput) ([]Record, error)
	GetDetector(ctx context.Context, in DetectorInput) (Record, error)
}
