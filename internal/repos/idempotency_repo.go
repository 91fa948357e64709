package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// IdempotencyRecord is the stored outcome of a request sent with an Idempotency-Key.
type IdempotencyRecord struct {
	Key        string    `db:"idem_key"`
	Scope      string    `db:"scope"`
	ResourceID string    `db:"resource_id"`
	StatusCode int       `db:"status_code"`
	Body       string    `db:"body"`
	CreatedAt  time.Time `db:"created_at"`
}

type IdempotencyRepo struct{ db DBTX }

func NewIdempotencyRepo(db DBTX) *IdempotencyRepo { return &IdempotencyRepo{db: db} }

// Get reports ok=false when the key has not been used.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	var rec IdempotencyRecord
	err := sqlx.GetContext(ctx, r.db, &rec, `
		SELECT idem_key, scope, resource_id, status_code, body, created_at
		FROM idempotency_keys WHERE idem_key = ?
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

// Put keeps the first outcome stored for a key.
func (r *IdempotencyRepo) Put(ctx context.Context, rec IdempotencyRecord) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO idempotency_keys(idem_key, scope, resource_id, status_code, body, created_at)
		VALUES (:idem_key, :scope, :resource_id, :status_code, :body, :created_at)
		ON CONFLICT(idem_key) DO NOTHING
	`, rec)
	return err
}
