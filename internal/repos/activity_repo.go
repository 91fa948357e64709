package repos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"garagehub/internal/domain"
)

// ActivityRepo only appends and reads; the table rejects updates and deletes.
type ActivityRepo struct{ db DBTX }

func NewActivityRepo(db DBTX) *ActivityRepo { return &ActivityRepo{db: db} }

func (r *ActivityRepo) WithTx(tx *sqlx.Tx) *ActivityRepo { return &ActivityRepo{db: tx} }

type ActivityFilter struct {
	ResourceType string
	ResourceID   string
	ActorID      string
	Action       domain.Action
	Limit        uint64
}

func (r *ActivityRepo) Append(ctx context.Context, e *domain.ActivityLogEntry) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO activity_log(id, organization, actor_id, actor_name, action, resource_type, resource_id, description, details, created_at)
		VALUES (:id, :organization, :actor_id, :actor_name, :action, :resource_type, :resource_id, :description, :details, :created_at)
	`, e)
	if err != nil {
		return err
	}
	e.Seq, err = res.LastInsertId()
	return err
}

// List returns entries newest first.
func (r *ActivityRepo) List(ctx context.Context, f ActivityFilter) ([]domain.ActivityLogEntry, error) {
	q := sq.Select("seq", "id", "organization", "actor_id", "actor_name", "action", "resource_type",
		"resource_id", "description", "details", "created_at").
		From("activity_log").
		OrderBy("seq DESC")

	eq := sq.Eq{}
	if f.ResourceType != "" {
		eq["resource_type"] = f.ResourceType
	}
	if f.ResourceID != "" {
		eq["resource_id"] = f.ResourceID
	}
	if f.ActorID != "" {
		eq["actor_id"] = f.ActorID
	}
	if f.Action != "" {
		eq["action"] = f.Action
	}
	if len(eq) > 0 {
		q = q.Where(eq)
	}
	limit := f.Limit
	if limit == 0 || limit > 500 {
		limit = 100
	}
	query, args, err := q.Limit(limit).ToSql()
	if err != nil {
		return nil, err
	}

	out := []domain.ActivityLogEntry{}
	err = sqlx.SelectContext(ctx, r.db, &out, query, args...)
	return out, err
}
