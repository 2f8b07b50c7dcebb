package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

const (
	defaultQueueDepth = 256
	writeTimeout      = 5 * time.Second
)

// AuditRecorder signs entries and persists them through a single background
// writer. The queue is bounded: when it is full, Record blocks the caller
// instead of dropping the entry; a lost security audit record is a
// correctness violation, not a performance trade-off.
type AuditRecorder struct {
	repo    ports.AuditRepository
	signKey []byte
	queue   chan domain.AuditEntry
	done    chan struct{}
	log     zerolog.Logger
	now     func() time.Time
}

// NewAuditRecorder creates a recorder with the given queue depth (<= 0 uses
// the default). Call Start before recording and Close on shutdown.
func NewAuditRecorder(repo ports.AuditRepository, signKey []byte, queueDepth int, log zerolog.Logger) *AuditRecorder {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	return &AuditRecorder{
		repo:    repo,
		signKey: signKey,
		queue:   make(chan domain.AuditEntry, queueDepth),
		done:    make(chan struct{}),
		log:     log,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (r *AuditRecorder) WithClock(now func() time.Time) *AuditRecorder {
	r.now = now
	return r
}

// Start launches the writer goroutine. It drains the queue until Close.
func (r *AuditRecorder) Start() {
	go r.runWriter()
}

// Close stops accepting entries and blocks until the queue has drained.
func (r *AuditRecorder) Close() {
	close(r.queue)
	<-r.done
}

// Record signs the entry and queues it for persistence. When the queue is
// full the call blocks until space frees up or ctx is cancelled.
func (r *AuditRecorder) Record(ctx context.Context, entry domain.AuditEntry) error {
	prepared, err := r.prepare(entry)
	if err != nil {
		return err
	}
	select {
	case r.queue <- prepared:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordSync signs and persists the entry before returning. Used for
// blocking audit policies and for break-glass events, which must be durable
// before the bypassed operation proceeds.
func (r *AuditRecorder) RecordSync(ctx context.Context, entry domain.AuditEntry) error {
	prepared, err := r.prepare(entry)
	if err != nil {
		return err
	}
	return r.repo.Append(ctx, prepared)
}

func (r *AuditRecorder) prepare(entry domain.AuditEntry) (domain.AuditEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now().UTC()
	}
	if err := entry.Sign(r.signKey); err != nil {
		return domain.AuditEntry{}, err
	}
	return entry, nil
}

func (r *AuditRecorder) runWriter() {
	defer close(r.done)
	for entry := range r.queue {
		// Each write gets its own short deadline so a slow audit store
		// cannot cascade into request failures.
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.repo.Append(ctx, entry); err != nil {
			r.log.Error().Err(err).
				Str("action", entry.Action).
				Str("actor_id", entry.ActorID).
				Msg("audit write failed")
		}
		cancel()
	}
}

// Verify recomputes an entry's signature against the recorder's key.
func (r *AuditRecorder) Verify(entry domain.AuditEntry) (bool, error) {
	return entry.VerifySignature(r.signKey)
}
