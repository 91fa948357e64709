package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"garagehub/internal/domain"
)

func TestDeriveInventoryStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		qty, min int
		current  domain.PartStatus
		want     domain.PartStatus
	}{
		{"empty is out of stock", 0, 2, domain.PartInStock, domain.PartOutOfStock},
		{"empty overrides operational tag", 0, 2, domain.PartOrdered, domain.PartOutOfStock},
		{"at threshold is low", 2, 2, domain.PartInStock, domain.PartLowStock},
		{"below threshold is low", 1, 2, domain.PartOutOfStock, domain.PartLowStock},
		{"recovers from out of stock", 5, 2, domain.PartOutOfStock, domain.PartInStock},
		{"recovers from low stock", 3, 2, domain.PartLowStock, domain.PartInStock},
		{"keeps ordered above threshold", 5, 2, domain.PartOrdered, domain.PartOrdered},
		{"keeps installed above threshold", 5, 2, domain.PartInstalled, domain.PartInstalled},
		{"new part defaults to in stock", 5, 2, "", domain.PartInStock},
		{"zero threshold with stock", 1, 0, domain.PartLowStock, domain.PartInStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DeriveInventoryStatus(tt.qty, tt.min, tt.current))
		})
	}
}

func TestDeriveInventoryStatusProperties(t *testing.T) {
	t.Parallel()

	currents := []domain.PartStatus{domain.PartInStock, domain.PartLowStock, domain.PartOutOfStock, domain.PartOrdered}
	for qty := 0; qty <= 12; qty++ {
		for min := 0; min <= 6; min++ {
			for _, cur := range currents {
				got := domain.DeriveInventoryStatus(qty, min, cur)
				assert.Equal(t, qty == 0, got == domain.PartOutOfStock, "qty=%d min=%d cur=%s", qty, min, cur)
				assert.Equal(t, qty > 0 && qty <= min, got == domain.PartLowStock, "qty=%d min=%d cur=%s", qty, min, cur)
				if qty > min && (cur == domain.PartLowStock || cur == domain.PartOutOfStock) {
					assert.Equal(t, domain.PartInStock, got)
				}
			}
		}
	}
}

func TestQuoteWithinBudget(t *testing.T) {
	req := domain.PartRequest{Quantity: 2, MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(50))}

	assert.True(t, domain.PartQuote{TotalPrice: decimal.NewFromInt(45)}.WithinBudget(req))
	assert.True(t, domain.PartQuote{TotalPrice: decimal.NewFromInt(100)}.WithinBudget(req))
	assert.False(t, domain.PartQuote{TotalPrice: decimal.RequireFromString("100.01")}.WithinBudget(req))

	req.MaxPrice = decimal.NullDecimal{}
	assert.True(t, domain.PartQuote{TotalPrice: decimal.NewFromInt(1_000_000)}.WithinBudget(req))
}

func TestRequestQuotesAvailable(t *testing.T) {
	r := domain.PartRequest{Status: domain.RequestOpen}
	assert.False(t, r.QuotesAvailable())

	r.Quotes = []domain.PartQuote{{Status: domain.QuoteRejected}, {Status: domain.QuotePending}}
	assert.True(t, r.QuotesAvailable())
	assert.Equal(t, domain.RequestOpen, r.Status)
}
