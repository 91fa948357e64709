package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"garagehub/internal/domain"
	"garagehub/internal/events"
	"garagehub/internal/repos"
)

// ActivityService owns the append-only audit trail. Entries are written in the
// same transaction as the mutation they describe and handed to the publisher
// only after that transaction commits.
type ActivityService struct {
	Store     *repos.Store
	Entries   *repos.ActivityRepo
	Publisher events.Publisher
	// Organization is used when the actor carries none (system jobs).
	Organization string
	Logger       *zap.Logger
}

func NewActivityService(store *repos.Store, org string, pub events.Publisher, logger *zap.Logger) *ActivityService {
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		Store:        store,
		Entries:      repos.NewActivityRepo(store.DB),
		Publisher:    pub,
		Organization: org,
		Logger:       logger,
	}
}

// Recorder collects the entries written inside one transaction.
type Recorder struct {
	ctx     context.Context
	svc     *ActivityService
	repo    *repos.ActivityRepo
	entries []domain.ActivityLogEntry
}

// Record appends one entry within the current transaction.
func (r *Recorder) Record(actor domain.Actor, action domain.Action, resourceType, resourceID, description, details string) error {
	org := actor.Organization
	if org == "" {
		org = r.svc.Organization
	}
	e := domain.ActivityLogEntry{
		ID:           uuid.NewString(),
		Organization: org,
		ActorID:      actor.ID,
		ActorName:    actor.Name,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Description:  description,
		Details:      details,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.repo.Append(r.ctx, &e); err != nil {
		return fmt.Errorf("activity.Record: %w", err)
	}
	r.entries = append(r.entries, e)
	return nil
}

// Mutate runs fn in one transaction. Activity recorded through rec is
// published once the transaction has committed; a rollback publishes nothing.
func (s *ActivityService) Mutate(ctx context.Context, fn func(tx *sqlx.Tx, rec *Recorder) error) error {
	var rec *Recorder
	err := s.Store.InTx(ctx, func(tx *sqlx.Tx) error {
		rec = &Recorder{ctx: ctx, svc: s, repo: s.Entries.WithTx(tx)}
		return fn(tx, rec)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, rec.entries)
	return nil
}

// Record writes a single standalone entry, for events that mutate nothing else.
func (s *ActivityService) Record(ctx context.Context, actor domain.Actor, action domain.Action, resourceType, resourceID, description string) error {
	return s.Mutate(ctx, func(_ *sqlx.Tx, rec *Recorder) error {
		return rec.Record(actor, action, resourceType, resourceID, description, "")
	})
}

// publish never fails the caller: the entry is already durable in the log.
func (s *ActivityService) publish(ctx context.Context, entries []domain.ActivityLogEntry) {
	for _, e := range entries {
		if err := s.Publisher.Publish(ctx, e); err != nil {
			s.Logger.Warn("activity.publish", zap.String("entry_id", e.ID), zap.Error(err))
		}
	}
}

// List returns entries newest first.
func (s *ActivityService) List(ctx context.Context, f repos.ActivityFilter) ([]domain.ActivityLogEntry, error) {
	if f.Action != "" && !f.Action.Valid() {
		return nil, domain.Invalid("unknown action " + string(f.Action))
	}
	return s.Entries.List(ctx, f)
}
