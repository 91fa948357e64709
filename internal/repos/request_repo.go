package repos

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"garagehub/internal/domain"
)

type RequestRepo struct{ db DBTX }

func NewRequestRepo(db DBTX) *RequestRepo { return &RequestRepo{db: db} }

func (r *RequestRepo) WithTx(tx *sqlx.Tx) *RequestRepo { return &RequestRepo{db: tx} }

const requestColumns = `id, part_id, part_name, work_order_id, garage_id, garage_name, quantity, urgency,
  description, max_price, requested_date, needed_by, status, created_at`

type RequestFilter struct {
	PartID   string
	GarageID string
	Status   []domain.RequestStatus
	Limit    uint64
}

// Get loads the request row only; Quotes is left empty for the caller to fill.
func (r *RequestRepo) Get(ctx context.Context, id string) (domain.PartRequest, error) {
	var pr domain.PartRequest
	err := sqlx.GetContext(ctx, r.db, &pr, `SELECT `+requestColumns+` FROM part_requests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PartRequest{}, domain.ErrRequestNotFound
	}
	return pr, err
}

// List returns requests newest first.
func (r *RequestRepo) List(ctx context.Context, f RequestFilter) ([]domain.PartRequest, error) {
	q := sq.Select(requestColumns).From("part_requests").OrderBy("created_at DESC", "rowid DESC")
	if f.PartID != "" {
		q = q.Where(sq.Eq{"part_id": f.PartID})
	}
	if f.GarageID != "" {
		q = q.Where(sq.Eq{"garage_id": f.GarageID})
	}
	if len(f.Status) > 0 {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	out := []domain.PartRequest{}
	err = sqlx.SelectContext(ctx, r.db, &out, query, args...)
	return out, err
}

func (r *RequestRepo) Insert(ctx context.Context, pr domain.PartRequest) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO part_requests(`+requestColumns+`)
		VALUES (:id, :part_id, :part_name, :work_order_id, :garage_id, :garage_name, :quantity, :urgency,
		        :description, :max_price, :requested_date, :needed_by, :status, :created_at)
	`, pr)
	return err
}

func (r *RequestRepo) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE part_requests SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrRequestNotFound)
}
