// Package service issues, validates and records scans of resident credentials.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ActiveCache,ResidentReader,OutboxAppender

import (
	"context"
	"log/slog"
	"time"

	"barangay/internal/credential/metrics"
	"barangay/internal/credential/models"
	"barangay/internal/platform/tracer"
	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/outbox"
	txcontext "barangay/pkg/platform/tx"
)

// Store persists credentials.
// Error Contract:
//   - Find* methods return store.ErrNotFound when nothing matches
//   - SupersedeActive returns store.ErrNotFound when the resident has no active credential
//   - Create returns store.ErrConflict on a duplicate issuance
//   - AppendScan returns store.ErrNotFound for an unknown credential
type Store interface {
	Create(ctx context.Context, credential *models.Credential) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	FindActiveByResident(ctx context.Context, residentID id.ResidentID) (*models.Credential, error)
	FindByIssuance(ctx context.Context, residentID id.ResidentID, status vmodels.Status, issuedAt time.Time) (*models.Credential, error)
	NextVersion(ctx context.Context, residentID id.ResidentID) (int, error)
	SupersedeActive(ctx context.Context, residentID id.ResidentID, at time.Time) (*models.Credential, error)
	AppendScan(ctx context.Context, scan *models.ScanEvent) (*models.Credential, error)
}

// ActiveCache holds a snapshot of each resident's active credential.
// Get returns store.ErrNotFound on a miss.
type ActiveCache interface {
	Get(ctx context.Context, residentID id.ResidentID) (*models.ActiveSnapshot, error)
	Set(ctx context.Context, snapshot *models.ActiveSnapshot) error
	Invalidate(ctx context.Context, residentID id.ResidentID) error
}

// ResidentReader reads verification state for on-demand issuance.
// LockByID holds the resident row until the surrounding transaction ends.
type ResidentReader interface {
	LockByID(ctx context.Context, residentID id.ResidentID) (*vmodels.Resident, error)
}

// OutboxAppender records domain events inside the issuing transaction.
type OutboxAppender interface {
	Append(ctx context.Context, entry *outbox.Entry) error
}

const (
	DefaultValidityWindow   = 24 * time.Hour
	DefaultRefreshThreshold = 2 * time.Hour
)

// Config holds the issuance parameters injected at startup.
type Config struct {
	ValidityWindow   time.Duration
	RefreshThreshold time.Duration
	ChecksumKey      []byte
}

type Option func(*Service)

// Service implements credential issuance, validation and scan recording.
type Service struct {
	store            Store
	tx               txcontext.Runner
	residents        ResidentReader
	cache            ActiveCache
	outbox           OutboxAppender
	checksum         *models.Checksummer
	validityWindow   time.Duration
	refreshThreshold time.Duration
	metrics          *metrics.Metrics
	tracer           tracer.Tracer
	logger           *slog.Logger
}

// New builds the service. The runner must be the same instance the
// verification service uses so issuance joins the transition's transaction.
func New(store Store, tx txcontext.Runner, residents ResidentReader, cfg Config, opts ...Option) *Service {
	svc := &Service{
		store:            store,
		tx:               tx,
		residents:        residents,
		checksum:         models.NewChecksummer(cfg.ChecksumKey),
		validityWindow:   cfg.ValidityWindow,
		refreshThreshold: cfg.RefreshThreshold,
		tracer:           tracer.NewNoop(),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.validityWindow <= 0 {
		svc.validityWindow = DefaultValidityWindow
	}
	if svc.refreshThreshold <= 0 {
		svc.refreshThreshold = DefaultRefreshThreshold
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

// WithActiveCache enables the read-through cache for active credential lookups.
func WithActiveCache(c ActiveCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithOutbox publishes issuance events through the transactional outbox.
func WithOutbox(o OutboxAppender) Option {
	return func(s *Service) {
		s.outbox = o
	}
}

// ValidityWindow reports the configured credential lifetime.
func (s *Service) ValidityWindow() time.Duration {
	return s.validityWindow
}

// RefreshThreshold reports how long before expiry a credential should be renewed.
func (s *Service) RefreshThreshold() time.Duration {
	return s.refreshThreshold
}

func (s *Service) appendEvent(ctx context.Context, eventType string, c *models.Credential, now time.Time) error {
	if s.outbox == nil {
		return nil
	}
	entry, err := outbox.NewEntry(outbox.AggregateCredential, c.ID.String(), eventType, credentialEvent{
		CredentialID: c.ID.String(),
		ResidentID:   c.ResidentID.String(),
		Status:       c.Status.String(),
		Version:      c.Version,
		IssuedAt:     c.IssuedAt,
		ExpiresAt:    c.ExpiresAt,
		SupersededAt: c.SupersededAt,
	}, now)
	if err != nil {
		return err
	}
	return s.outbox.Append(ctx, entry)
}

type credentialEvent struct {
	CredentialID string     `json:"credential_id"`
	ResidentID   string     `json:"resident_id"`
	Status       string     `json:"status"`
	Version      int        `json:"version"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

// invalidate drops the cached snapshot once the enclosing unit of work
// commits, so a concurrent reader cannot re-cache the row being replaced.
// A failed invalidation lives until the cache TTL.
func (s *Service) invalidate(ctx context.Context, residentID id.ResidentID) {
	if s.cache == nil {
		return
	}
	txcontext.AfterCommit(ctx, func(ctx context.Context) {
		if err := s.cache.Invalidate(ctx, residentID); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate active credential cache",
				"resident_id", residentID.String(),
				"error", err,
			)
		}
	})
}
