package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the outbox persistence operations.
// Implementations must be safe for concurrent use and join a transaction
// carried in the context.
type Store interface {
	// Append adds a new entry; call it inside the business transaction.
	Append(ctx context.Context, entry *Entry) error

	// FetchUnprocessed returns up to limit pending entries, oldest first.
	// Inside a transaction the rows stay locked and are skipped by other workers.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)

	// MarkProcessed marks an entry as published.
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error

	// CountPending returns the number of unprocessed entries.
	CountPending(ctx context.Context) (int64, error)

	// DeleteProcessedBefore removes old processed entries and returns how many.
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
