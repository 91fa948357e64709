package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"garagehub/internal/domain"
)

// QuoteRepo is the authoritative store for quotes; request quote lists are read from here.
type QuoteRepo struct{ db DBTX }

func NewQuoteRepo(db DBTX) *QuoteRepo { return &QuoteRepo{db: db} }

func (r *QuoteRepo) WithTx(tx *sqlx.Tx) *QuoteRepo { return &QuoteRepo{db: tx} }

const quoteColumns = `id, request_id, supplier_id, supplier_name, part_name, part_number, quantity,
  unit_price, total_price, availability, delivery_time, warranty, notes, valid_until, status, created_at, updated_at`

func (r *QuoteRepo) Get(ctx context.Context, id string) (domain.PartQuote, error) {
	var q domain.PartQuote
	err := sqlx.GetContext(ctx, r.db, &q, `SELECT `+quoteColumns+` FROM part_quotes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PartQuote{}, domain.ErrQuoteNotFound
	}
	return q, err
}

// ListByRequest returns quotes in submission order.
func (r *QuoteRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.PartQuote, error) {
	out := []domain.PartQuote{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+quoteColumns+` FROM part_quotes
		WHERE request_id = ?
		ORDER BY created_at, rowid
	`, requestID)
	return out, err
}

// ListByRequests returns quotes for several requests at once, keyed by request id.
func (r *QuoteRepo) ListByRequests(ctx context.Context, requestIDs []string) (map[string][]domain.PartQuote, error) {
	out := make(map[string][]domain.PartQuote, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+quoteColumns+` FROM part_quotes
		WHERE request_id IN (?)
		ORDER BY created_at, rowid
	`, requestIDs)
	if err != nil {
		return nil, err
	}
	var rows []domain.PartQuote
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, q := range rows {
		out[q.RequestID] = append(out[q.RequestID], q)
	}
	return out, nil
}

// PendingForPart returns pending quotes whose owning request targets the part.
func (r *QuoteRepo) PendingForPart(ctx context.Context, partID string) ([]domain.PartQuote, error) {
	out := []domain.PartQuote{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT q.id, q.request_id, q.supplier_id, q.supplier_name, q.part_name, q.part_number, q.quantity,
		       q.unit_price, q.total_price, q.availability, q.delivery_time, q.warranty, q.notes,
		       q.valid_until, q.status, q.created_at, q.updated_at
		FROM part_quotes q
		JOIN part_requests r ON r.id = q.request_id
		WHERE r.part_id = ? AND q.status = 'pending'
		ORDER BY q.created_at, q.rowid
	`, partID)
	return out, err
}

// AcceptedForRequest returns the accepted quote, or domain.ErrQuoteNotFound if none.
func (r *QuoteRepo) AcceptedForRequest(ctx context.Context, requestID string) (domain.PartQuote, error) {
	var q domain.PartQuote
	err := sqlx.GetContext(ctx, r.db, &q, `
		SELECT `+quoteColumns+` FROM part_quotes
		WHERE request_id = ? AND status = 'accepted'
	`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PartQuote{}, domain.ErrQuoteNotFound
	}
	return q, err
}

// Pending returns every pending quote, oldest first.
func (r *QuoteRepo) Pending(ctx context.Context) ([]domain.PartQuote, error) {
	out := []domain.PartQuote{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+quoteColumns+` FROM part_quotes
		WHERE status = 'pending'
		ORDER BY created_at, rowid
	`)
	return out, err
}

func (r *QuoteRepo) Insert(ctx context.Context, q domain.PartQuote) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO part_quotes(`+quoteColumns+`)
		VALUES (:id, :request_id, :supplier_id, :supplier_name, :part_name, :part_number, :quantity,
		        :unit_price, :total_price, :availability, :delivery_time, :warranty, :notes, :valid_until,
		        :status, :created_at, :updated_at)
	`, q)
	return err
}

// SetStatus moves a quote out of `from`. It reports false when the quote was
// no longer in `from`, leaving the row untouched.
func (r *QuoteRepo) SetStatus(ctx context.Context, id string, from, to domain.QuoteStatus, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE part_quotes SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, at, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RejectPendingSiblings rejects every other pending quote on the request and
// returns the ids it touched.
func (r *QuoteRepo) RejectPendingSiblings(ctx context.Context, requestID, exceptID string, at time.Time) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, r.db, &ids, `
		SELECT id FROM part_quotes
		WHERE request_id = ? AND id <> ? AND status = 'pending'
		ORDER BY created_at, rowid
	`, requestID, exceptID); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		UPDATE part_quotes SET status = 'rejected', updated_at = ?
		WHERE id IN (?) AND status = 'pending'
	`, at, ids)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}
