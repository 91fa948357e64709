package repos

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	applog "garagehub/internal/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", withTimeFormat(dsn))
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	// Demo parts only go into an empty inventory
	if err := seedPartsIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

// withTimeFormat makes the driver write time.Time as sortable "2006-01-02 15:04:05.999999999-07:00" text.
func withTimeFormat(dsn string) string {
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite"
}

func migrate(db *sqlx.DB) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, sub)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	results, err := provider.Up(context.Background())
	if err != nil {
		return fmt.Errorf("migrations up: %w", err)
	}
	for _, r := range results {
		applog.L().Info("db.migrate", zap.String("source", r.Source.Path), zap.Duration("took", r.Duration))
	}
	return nil
}

// Store opens transactions for services that mutate several tables at once.
type Store struct{ DB *sqlx.DB }

func NewStore(db *sqlx.DB) *Store { return &Store{DB: db} }

// InTx commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// seedUsers ensures one garage operator, two suppliers and one admin exist.
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Org, Hash string
	}
	mk := func(id, email, name, role, org, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Org: org, Hash: string(h)}
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	users := []u{
		mk("u-garage", "garage@garagehub.test", "Gina Garage", "GARAGE", "Main Street Garage", "Passw0rd!"),
		mk("u-acme", "acme@garagehub.test", "Acme Parts", "SUPPLIER", "Acme Parts Co", "Passw0rd!"),
		mk("u-bolt", "bolt@garagehub.test", "Bolt Supply", "SUPPLIER", "Bolt Supply Ltd", "Passw0rd!"),
		mk("u-admin", "admin@garagehub.test", "Admin", "ADMIN", "Main Street Garage", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role,organization)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role, x.Org); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func seedPartsIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM parts`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.L().Info("db.seed", zap.String("table", "parts"))

	now := time.Now().UTC()
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, p := range []struct {
		id, name, number, supplier, price, status string
		qty, min                                  int
	}{
		{"p-brake-pads", "Brake pads (front)", "BP-2210", "Acme Parts Co", "42.00", "out_of_stock", 0, 2},
		{"p-oil-filter", "Oil filter", "OF-118", "Bolt Supply Ltd", "7.50", "low_stock", 3, 5},
		{"p-spark-plug", "Spark plug", "SP-9", "Acme Parts Co", "4.25", "in_stock", 40, 10},
		{"p-wiper-blade", "Wiper blade 22in", "WB-22", "", "11.90", "in_stock", 12, 4},
	} {
		tx.MustExec(`
			INSERT INTO parts(id,name,part_number,quantity,min_quantity,unit_price,supplier,status,created_at,updated_at)
			VALUES(?,?,?,?,?,?,?,?,?,?)
		`, p.id, p.name, p.number, p.qty, p.min, p.price, p.supplier, p.status, now, now)
	}

	return tx.Commit()
}
