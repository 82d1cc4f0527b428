package sagalog

import "context"

// Repository appends placement log rows.
type Repository interface {
	Save(ctx context.Context, entry *SagaLog) error
}

// Reader is the query side used by the CLI.
type Reader interface {
	GetLatest(ctx context.Context, sagaID string) (*SagaLog, error)
	History(ctx context.Context, sagaID string) ([]SagaLog, error)
}
