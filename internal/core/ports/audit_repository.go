package ports

import (
	"context"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// AuditRepository appends signed entries to durable storage. Entries are
// immutable once appended.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	FindByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditEntry, error)
}

// AuditRecorder is the write-side contract the pipeline depends on. Record
// must either durably queue the entry or block; silently dropping a security
// audit entry is a correctness violation.
type AuditRecorder interface {
	// Record queues the entry for asynchronous persistence, applying
	// backpressure when the queue is full.
	Record(ctx context.Context, entry domain.AuditEntry) error
	// RecordSync persists the entry before returning. Used for blocking
	// audit policies and break-glass events.
	RecordSync(ctx context.Context, entry domain.AuditEntry) error
}
