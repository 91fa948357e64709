package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PartStatus string

const (
	PartInStock    PartStatus = "in_stock"
	PartLowStock   PartStatus = "low_stock"
	PartOutOfStock PartStatus = "out_of_stock"
	PartOrdered    PartStatus = "ordered"
	PartRequested  PartStatus = "requested"
	PartDelivered  PartStatus = "delivered"
	PartInstalled  PartStatus = "installed"
)

func (s PartStatus) Valid() bool {
	switch s {
	case PartInStock, PartLowStock, PartOutOfStock, PartOrdered, PartRequested, PartDelivered, PartInstalled:
		return true
	}
	return false
}

// stockLevel reports whether s is one of the tags derived from quantity.
func (s PartStatus) stockLevel() bool {
	return s == PartInStock || s == PartLowStock || s == PartOutOfStock
}

type Part struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	PartNumber  string          `db:"part_number" json:"partNumber,omitempty"`
	Description string          `db:"description" json:"description,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	MinQuantity int             `db:"min_quantity" json:"minQuantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Supplier    string          `db:"supplier" json:"supplier,omitempty"`
	Status      PartStatus      `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) Valid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

type RequestStatus string

const (
	RequestOpen     RequestStatus = "open"
	RequestQuoted   RequestStatus = "quoted"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
	// RequestFulfilled is reserved for a goods-received step; nothing transitions into it yet.
	RequestFulfilled RequestStatus = "fulfilled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestOpen, RequestQuoted, RequestAccepted, RequestRejected, RequestFulfilled:
		return true
	}
	return false
}

// AcceptsQuotes reports whether suppliers may still quote against the request.
func (s RequestStatus) AcceptsQuotes() bool {
	return s == RequestOpen || s == RequestQuoted
}

type PartRequest struct {
	ID            string              `db:"id" json:"id"`
	PartID        string              `db:"part_id" json:"partId"`
	PartName      string              `db:"part_name" json:"partName"`
	WorkOrderID   string              `db:"work_order_id" json:"workOrderId,omitempty"`
	GarageID      string              `db:"garage_id" json:"garageId"`
	GarageName    string              `db:"garage_name" json:"garageName"`
	Quantity      int                 `db:"quantity" json:"quantity"`
	Urgency       Urgency             `db:"urgency" json:"urgency"`
	Description   string              `db:"description" json:"description"`
	MaxPrice      decimal.NullDecimal `db:"max_price" json:"maxPrice"`
	RequestedDate time.Time           `db:"requested_date" json:"requestedDate"`
	NeededBy      time.Time           `db:"needed_by" json:"neededBy"`
	Status        RequestStatus       `db:"status" json:"status"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`

	// Quotes is filled from the quote store on read and never persisted with the request.
	Quotes []PartQuote `db:"-" json:"quotes"`
}

// QuotesAvailable drives the "quotes available" badge. It is read independently
// of Status: a request can be open while holding pending quotes.
func (r PartRequest) QuotesAvailable() bool {
	for _, q := range r.Quotes {
		if q.Status == QuotePending {
			return true
		}
	}
	return false
}

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

type PartQuote struct {
	ID           string          `db:"id" json:"id"`
	RequestID    string          `db:"request_id" json:"requestId"`
	SupplierID   string          `db:"supplier_id" json:"supplierId"`
	SupplierName string          `db:"supplier_name" json:"supplierName"`
	PartName     string          `db:"part_name" json:"partName"`
	PartNumber   string          `db:"part_number" json:"partNumber,omitempty"`
	Quantity     int             `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unitPrice"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"totalPrice"`
	Availability string          `db:"availability" json:"availability"`
	DeliveryTime string          `db:"delivery_time" json:"deliveryTime"`
	Warranty     string          `db:"warranty" json:"warranty,omitempty"`
	Notes        string          `db:"notes" json:"notes,omitempty"`
	ValidUntil   time.Time       `db:"valid_until" json:"validUntil"`
	Status       QuoteStatus     `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// WithinBudget compares the quoted total against the request's per-unit ceiling
// times the requested quantity. Display only; acceptance never consults it.
func (q PartQuote) WithinBudget(r PartRequest) bool {
	if !r.MaxPrice.Valid {
		return true
	}
	ceiling := r.MaxPrice.Decimal.Mul(decimal.NewFromInt(int64(r.Quantity)))
	return q.TotalPrice.LessThanOrEqual(ceiling)
}

type Availability struct {
	Status PartStatus `json:"status"`
	Qty    int        `json:"qty"`
	// PendingQuotes is the notification badge count for the part.
	PendingQuotes int `json:"pendingQuotes"`
}
