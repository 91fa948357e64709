package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"garagehub/internal/domain"
	"garagehub/internal/repos"
	"garagehub/internal/services"
)

var (
	garage = domain.Actor{ID: "u-garage", Name: "Gina Garage", Organization: "Main Street Garage"}
	acme   = domain.Actor{ID: "u-acme", Name: "Acme Parts", Organization: "Acme Parts Co"}
	bolt   = domain.Actor{ID: "u-bolt", Name: "Bolt Supply", Organization: "Bolt Supply Ltd"}
)

type recordingPublisher struct {
	mu  sync.Mutex
	got []domain.ActivityLogEntry
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.ActivityLogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

type fixture struct {
	db        *sqlx.DB
	pub       *recordingPublisher
	activity  *services.ActivityService
	inventory *services.InventoryService
	sourcing  *services.SourcingService
	auth      *services.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pub := &recordingPublisher{}
	activity := services.NewActivityService(repos.NewStore(db), "Main Street Garage", pub, nil)
	parts := repos.NewPartRepo(db)
	requests := repos.NewRequestRepo(db)
	quotes := repos.NewQuoteRepo(db)

	return &fixture{
		db:        db,
		pub:       pub,
		activity:  activity,
		inventory: services.NewInventoryService(parts, quotes, activity),
		sourcing:  services.NewSourcingService(parts, requests, quotes, activity),
		auth:      services.NewAuthService(repos.NewUserRepo(db), activity),
	}
}

// entriesFor returns the activity recorded against one resource, newest first.
func (f *fixture) entriesFor(t *testing.T, resourceID string) []domain.ActivityLogEntry {
	t.Helper()
	list, err := f.activity.List(context.Background(), repos.ActivityFilter{ResourceID: resourceID})
	require.NoError(t, err)
	return list
}

func (f *fixture) totalEntries(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, `SELECT COUNT(*) FROM activity_log`))
	return n
}

func (f *fixture) part(t *testing.T, qty, min int) domain.Part {
	t.Helper()
	p, err := f.inventory.CreatePart(context.Background(), garage, services.PartInput{
		Name: "Brake pads", PartNumber: "BP-1", Quantity: qty, MinQuantity: min,
		UnitPrice: decimal.NewFromInt(21),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) request(t *testing.T, partID string, qty int, maxPrice int64) domain.PartRequest {
	t.Helper()
	r, err := f.sourcing.CreateRequest(context.Background(), garage, services.RequestInput{
		PartID:   partID,
		Quantity: qty,
		Urgency:  domain.UrgencyHigh,
		MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(maxPrice)),
		NeededBy: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) quote(t *testing.T, by domain.Actor, requestID string, total int64) domain.PartQuote {
	t.Helper()
	q, err := f.sourcing.SubmitQuote(context.Background(), by, requestID, services.QuoteInput{
		UnitPrice:    decimal.NewFromInt(total).Div(decimal.NewFromInt(2)),
		TotalPrice:   decimal.NewNullDecimal(decimal.NewFromInt(total)),
		Availability: "in stock",
		DeliveryTime: "2 days",
	})
	require.NoError(t, err)
	return q
}

func statuses(quotes []domain.PartQuote) map[string]domain.QuoteStatus {
	out := make(map[string]domain.QuoteStatus, len(quotes))
	for _, q := range quotes {
		out[q.ID] = q.Status
	}
	return out
}
