package intake

import (
	"context"

	"github.com/google/uuid"
)

type RecordRepository interface {
	Get(ctx context.Context, clientID uuid.UUID, kind Kind) (*Record, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, clientID uuid.UUID, kind Kind) (*Record, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Record, error)
	// Upsert inserts or replaces the record for (ClientID, Kind).
	Upsert(ctx context.Context, r *Record) error
}
