package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"garagehub/internal/domain"
)

type PartRepo struct{ db DBTX }

func NewPartRepo(db DBTX) *PartRepo { return &PartRepo{db: db} }

func (r *PartRepo) WithTx(tx *sqlx.Tx) *PartRepo { return &PartRepo{db: tx} }

const partColumns = `id, name, part_number, description, quantity, min_quantity, unit_price, supplier, status, created_at, updated_at`

// PartFilter narrows List; zero values match everything.
type PartFilter struct {
	Status []domain.PartStatus
	Query  string
}

// Get returns domain.ErrPartNotFound when no row exists.
func (r *PartRepo) Get(ctx context.Context, id string) (domain.Part, error) {
	var p domain.Part
	err := sqlx.GetContext(ctx, r.db, &p, `SELECT `+partColumns+` FROM parts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Part{}, domain.ErrPartNotFound
	}
	return p, err
}

// List returns parts for the inventory pages, ordered by name.
func (r *PartRepo) List(ctx context.Context, f PartFilter) ([]domain.Part, error) {
	q := sq.Select(partColumns).From("parts").OrderBy("LOWER(name)", "id")
	if len(f.Status) > 0 {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where(sq.Or{sq.Like{"LOWER(name)": like}, sq.Like{"LOWER(part_number)": like}})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	out := []domain.Part{}
	err = sqlx.SelectContext(ctx, r.db, &out, query, args...)
	return out, err
}

func (r *PartRepo) Insert(ctx context.Context, p domain.Part) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO parts(`+partColumns+`)
		VALUES (:id, :name, :part_number, :description, :quantity, :min_quantity, :unit_price, :supplier, :status, :created_at, :updated_at)
	`, p)
	return err
}

// Update overwrites every editable column of an existing part.
func (r *PartRepo) Update(ctx context.Context, p domain.Part) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `
		UPDATE parts SET
		  name = :name, part_number = :part_number, description = :description,
		  quantity = :quantity, min_quantity = :min_quantity, unit_price = :unit_price,
		  supplier = :supplier, status = :status, updated_at = :updated_at
		WHERE id = :id
	`, p)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrPartNotFound)
}

func (r *PartRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM parts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrPartNotFound)
}

// CountRequests counts requests referencing the part in any of the given statuses.
func (r *PartRepo) CountRequests(ctx context.Context, id string, statuses ...domain.RequestStatus) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("part_requests").
		Where(sq.Eq{"part_id": id, "status": statuses}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = sqlx.GetContext(ctx, r.db, &n, query, args...)
	return n, err
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	if n > 1 {
		return fmt.Errorf("expected one row, affected %d", n)
	}
	return nil
}
