// Package service is the single gate through which a resident's verification
// status may change.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ResidentStore,AuditStore,CredentialIssuer,OutboxAppender

import (
	"context"
	"errors"
	"log/slog"
	"time"

	cmodels "barangay/internal/credential/models"
	"barangay/internal/platform/tracer"
	"barangay/internal/verification/metrics"
	"barangay/internal/verification/models"
	"barangay/internal/verification/store"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/outbox"
	txcontext "barangay/pkg/platform/tx"
)

// ResidentStore persists residents.
// Error Contract:
//   - FindByID returns store.ErrNotFound for an unknown resident
//   - Create returns store.ErrConflict when the resident already exists
//   - CompareAndSwap returns store.ErrVersionMoved when the stored version differs
//     from expectedVersion, store.ErrNotFound when the resident is gone
type ResidentStore interface {
	Create(ctx context.Context, resident *models.Resident) error
	FindByID(ctx context.Context, residentID id.ResidentID) (*models.Resident, error)
	CompareAndSwap(ctx context.Context, resident *models.Resident, expectedVersion int) error
}

// AuditStore is the append-only verification history.
type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByResident(ctx context.Context, residentID id.ResidentID) ([]*models.AuditEntry, error)
}

// CredentialIssuer mints and retires credentials. Both calls must join the
// transaction carried in ctx.
type CredentialIssuer interface {
	Issue(ctx context.Context, residentID id.ResidentID, status models.Status, now time.Time) (*cmodels.Credential, error)
	Retire(ctx context.Context, residentID id.ResidentID, now time.Time) error
}

// OutboxAppender records domain events inside the transition's transaction.
type OutboxAppender interface {
	Append(ctx context.Context, entry *outbox.Entry) error
}

type Option func(*Service)

// Service owns the verification state machine and its audit trail.
type Service struct {
	residents ResidentStore
	audit     AuditStore
	tx        txcontext.Runner
	issuer    CredentialIssuer
	outbox    OutboxAppender
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger

	retryBackoff time.Duration
}

func New(residents ResidentStore, audit AuditStore, tx txcontext.Runner, opts ...Option) *Service {
	svc := &Service{
		residents: residents,
		audit:     audit,
		tx:        tx,
		tracer:    tracer.NewNoop(),
		logger:    slog.Default(),

		retryBackoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithCredentialIssuer issues a credential whenever a transition lands on a
// qualifying status, and retires it on rejection.
func WithCredentialIssuer(issuer CredentialIssuer) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithOutbox publishes verification events through the transactional outbox.
func WithOutbox(o OutboxAppender) Option {
	return func(s *Service) {
		s.outbox = o
	}
}

// TransitionResult is what an accepted change produced. Credential is set
// only when the change issued one.
type TransitionResult struct {
	Resident   *models.Resident
	Entry      *models.AuditEntry
	Credential *cmodels.Credential
}

func (s *Service) loadResident(ctx context.Context, residentID id.ResidentID) (*models.Resident, error) {
	resident, err := s.residents.FindByID(ctx, residentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "resident not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
	}
	return resident, nil
}

// swap writes the resident if it still carries expectedVersion.
func (s *Service) swap(ctx context.Context, resident *models.Resident, expectedVersion int) error {
	err := s.residents.CompareAndSwap(ctx, resident, expectedVersion)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrVersionMoved):
		return models.ConcurrentModificationError(resident.ID)
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "resident not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update resident")
	}
}

type residentEvent struct {
	ResidentID     string        `json:"resident_id"`
	PreviousStatus models.Status `json:"previous_status,omitempty"`
	NewStatus      models.Status `json:"new_status"`
	Version        int           `json:"version"`
	Actor          *models.Actor `json:"actor,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

func (s *Service) appendEvent(ctx context.Context, eventType string, event residentEvent) error {
	if s.outbox == nil {
		return nil
	}
	entry, err := outbox.NewEntry(outbox.AggregateResident, event.ResidentID, eventType, event, event.OccurredAt)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode event")
	}
	if err := s.outbox.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
	}
	return nil
}

func (s *Service) observeRejected(err error) {
	if s.metrics == nil {
		return
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		s.metrics.IncrementRejected(string(de.Code))
		return
	}
	s.metrics.IncrementRejected(string(dErrors.CodeInternal))
}
