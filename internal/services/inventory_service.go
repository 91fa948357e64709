package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"garagehub/internal/domain"
	"garagehub/internal/repos"
)

type InventoryService struct {
	Parts    *repos.PartRepo
	Quotes   *repos.QuoteRepo
	Activity *ActivityService
}

func NewInventoryService(parts *repos.PartRepo, quotes *repos.QuoteRepo, activity *ActivityService) *InventoryService {
	return &InventoryService{Parts: parts, Quotes: quotes, Activity: activity}
}

// PartInput carries the editable fields of a part. An empty Status lets the
// stock level decide.
type PartInput struct {
	Name        string
	PartNumber  string
	Description string
	Quantity    int
	MinQuantity int
	UnitPrice   decimal.Decimal
	Supplier    string
	Status      domain.PartStatus
}

func (in PartInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return domain.Invalid("name is required")
	case in.Quantity < 0:
		return domain.Invalid("quantity must be >= 0")
	case in.MinQuantity < 0:
		return domain.Invalid("minQuantity must be >= 0")
	case in.UnitPrice.IsNegative():
		return domain.Invalid("unitPrice must be >= 0")
	case in.Status != "" && !in.Status.Valid():
		return domain.Invalid("unknown status " + string(in.Status))
	}
	return nil
}

func (s *InventoryService) CreatePart(ctx context.Context, actor domain.Actor, in PartInput) (domain.Part, error) {
	if err := in.validate(); err != nil {
		return domain.Part{}, err
	}
	now := time.Now().UTC()
	p := domain.Part{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		PartNumber:  strings.TrimSpace(in.PartNumber),
		Description: in.Description,
		Quantity:    in.Quantity,
		MinQuantity: in.MinQuantity,
		UnitPrice:   in.UnitPrice,
		Supplier:    in.Supplier,
		Status:      domain.DeriveInventoryStatus(in.Quantity, in.MinQuantity, in.Status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.Activity.Mutate(ctx, func(tx *sqlx.Tx, rec *Recorder) error {
		if err := s.Parts.WithTx(tx).Insert(ctx, p); err != nil {
			return err
		}
		return rec.Record(actor, domain.ActionCreate, domain.ResourcePart, p.ID,
			fmt.Sprintf("Added %s to inventory", p.Name),
			fmt.Sprintf("quantity=%d status=%s", p.Quantity, p.Status))
	})
	if err != nil {
		return domain.Part{}, fmt.Errorf("inventory.CreatePart: %w", err)
	}
	return p, nil
}

// UpdatePart overwrites the editable fields and re-derives the status from the
// new quantity and threshold. An empty Status keeps the stored tag.
func (s *InventoryService) UpdatePart(ctx context.Context, actor domain.Actor, id string, in PartInput) (domain.Part, error) {
	if err := in.validate(); err != nil {
		return domain.Part{}, err
	}
	var out domain.Part
	err := s.Activity.Mutate(ctx, func(tx *sqlx.Tx, rec *Recorder) error {
		parts := s.Parts.WithTx(tx)
		p, err := parts.Get(ctx, id)
		if err != nil {
			return err
		}
		before := p

		current := in.Status
		if current == "" {
			current = p.Status
		}
		p.Name = strings.TrimSpace(in.Name)
		p.PartNumber = strings.TrimSpace(in.PartNumber)
		p.Description = in.Description
		p.Quantity = in.Quantity
		p.MinQuantity = in.MinQuantity
		p.UnitPrice = in.UnitPrice
		p.Supplier = in.Supplier
		p.Status = domain.DeriveInventoryStatus(in.Quantity, in.MinQuantity, current)
		p.UpdatedAt = time.Now().UTC()

		if err := parts.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return rec.Record(actor, domain.ActionUpdate, domain.ResourcePart, p.ID,
			fmt.Sprintf("Updated %s", p.Name),
			fmt.Sprintf("quantity %d->%d status %s->%s", before.Quantity, p.Quantity, before.Status, p.Status))
	})
	if err != nil {
		return domain.Part{}, fmt.Errorf("inventory.UpdatePart: %w", err)
	}
	return out, nil
}

// DeletePart refuses while any request still references the part.
func (s *InventoryService) DeletePart(ctx context.Context, actor domain.Actor, id string) error {
	err := s.Activity.Mutate(ctx, func(tx *sqlx.Tx, rec *Recorder) error {
		parts := s.Parts.WithTx(tx)
		p, err := parts.Get(ctx, id)
		if err != nil {
			return err
		}
		open, err := parts.CountRequests(ctx, id, domain.RequestOpen, domain.RequestQuoted)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.Conflict("part has %d open request(s)", open)
		}
		closed, err := parts.CountRequests(ctx, id, domain.RequestAccepted, domain.RequestRejected, domain.RequestFulfilled)
		if err != nil {
			return err
		}
		if closed > 0 {
			return domain.Conflict("part is referenced by %d request(s)", closed)
		}
		if err := parts.Delete(ctx, id); err != nil {
			return err
		}
		return rec.Record(actor, domain.ActionDelete, domain.ResourcePart, id,
			fmt.Sprintf("Removed %s from inventory", p.Name), "")
	})
	if err != nil {
		return fmt.Errorf("inventory.DeletePart: %w", err)
	}
	return nil
}

func (s *InventoryService) GetPart(ctx context.Context, id string) (domain.Part, error) {
	return s.Parts.Get(ctx, id)
}

func (s *InventoryService) ListParts(ctx context.Context, f repos.PartFilter) ([]domain.Part, error) {
	for _, st := range f.Status {
		if !st.Valid() {
			return nil, domain.Invalid("unknown status " + string(st))
		}
	}
	return s.Parts.List(ctx, f)
}

// LowStock lists parts that need sourcing.
func (s *InventoryService) LowStock(ctx context.Context) ([]domain.Part, error) {
	return s.Parts.List(ctx, repos.PartFilter{Status: []domain.PartStatus{domain.PartLowStock, domain.PartOutOfStock}})
}

// CheckAvailability reports the stock level of a part and how many supplier
// quotes are waiting on it.
func (s *InventoryService) CheckAvailability(ctx context.Context, partID string) (domain.Availability, error) {
	p, err := s.Parts.Get(ctx, partID)
	if err != nil {
		return domain.Availability{}, err
	}
	pending, err := s.Quotes.PendingForPart(ctx, partID)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.Availability{
		Status:        domain.DeriveInventoryStatus(p.Quantity, p.MinQuantity, p.Status),
		Qty:           p.Quantity,
		PendingQuotes: len(pending),
	}, nil
}
