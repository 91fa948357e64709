package services_test

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagehub/internal/domain"
	"garagehub/internal/services"
)

func TestInventoryService_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// seeded: spark plugs well stocked
	a, err := f.inventory.CheckAvailability(ctx, "p-spark-plug")
	require.NoError(t, err)
	assert.Equal(t, domain.Availability{Status: domain.PartInStock, Qty: 40}, a)

	// seeded: brake pads empty, two quotes waiting
	r := f.request(t, "p-brake-pads", 2, 50)
	f.quote(t, acme, r.ID, 84)
	f.quote(t, bolt, r.ID, 45)
	a, err = f.inventory.CheckAvailability(ctx, "p-brake-pads")
	require.NoError(t, err)
	assert.Equal(t, domain.PartOutOfStock, a.Status)
	assert.Equal(t, 0, a.Qty)
	assert.Equal(t, 2, a.PendingQuotes)

	_, err = f.inventory.CheckAvailability(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryService_StatusFollowsQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.inventory.CreatePart(ctx, garage, services.PartInput{
		Name: gofakeit.CarMaker() + " alternator", Quantity: 10, MinQuantity: 2,
		UnitPrice: decimal.RequireFromString("189.00"), Status: domain.PartOrdered,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PartOrdered, p.Status, "operator tag survives while stock is healthy")

	edit := func(qty, min int, status domain.PartStatus) domain.Part {
		t.Helper()
		got, err := f.inventory.UpdatePart(ctx, garage, p.ID, services.PartInput{
			Name: p.Name, Quantity: qty, MinQuantity: min, UnitPrice: p.UnitPrice, Status: status,
		})
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, domain.PartLowStock, edit(2, 2, "").Status)
	assert.Equal(t, domain.PartOutOfStock, edit(0, 2, "").Status)
	assert.Equal(t, domain.PartInStock, edit(5, 2, "").Status)
	assert.Equal(t, domain.PartInstalled, edit(5, 2, domain.PartInstalled).Status)
	assert.Equal(t, domain.PartInstalled, edit(6, 2, "").Status)

	stored, err := f.inventory.GetPart(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PartInstalled, stored.Status)
	assert.Equal(t, 6, stored.Quantity)

	entries := f.entriesFor(t, p.ID)
	require.Len(t, entries, 6)
	assert.Equal(t, domain.ActionUpdate, entries[0].Action)
	assert.Equal(t, domain.ActionCreate, entries[5].Action)
}

func TestInventoryService_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, in := range []services.PartInput{
		{Name: "", Quantity: 1},
		{Name: "x", Quantity: -1},
		{Name: "x", MinQuantity: -1},
		{Name: "x", UnitPrice: decimal.NewFromInt(-5)},
		{Name: "x", Status: "lost"},
	} {
		_, err := f.inventory.CreatePart(ctx, garage, in)
		assert.ErrorIs(t, err, domain.ErrValidation, "%+v", in)
	}
	_, err := f.inventory.UpdatePart(ctx, garage, "missing", services.PartInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryService_DeleteGuardsReferencedParts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	free := f.part(t, 3, 1)
	require.NoError(t, f.inventory.DeletePart(ctx, garage, free.ID))
	_, err := f.inventory.GetPart(ctx, free.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.inventory.DeletePart(ctx, garage, free.ID), domain.ErrNotFound)

	used := f.part(t, 0, 1)
	r := f.request(t, used.ID, 1, 10)
	assert.ErrorIs(t, f.inventory.DeletePart(ctx, garage, used.ID), domain.ErrConflict)

	q := f.quote(t, acme, r.ID, 9)
	_, err = f.sourcing.AcceptQuote(ctx, garage, q.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.inventory.DeletePart(ctx, garage, used.ID), domain.ErrConflict)

	_, err = f.inventory.GetPart(ctx, used.ID)
	require.NoError(t, err)
}

func TestInventoryService_LowStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	low, err := f.inventory.LowStock(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(low))
	for _, p := range low {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"p-brake-pads", "p-oil-filter"}, ids)
}
