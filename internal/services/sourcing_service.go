package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"garagehub/internal/domain"
	"garagehub/internal/repos"
)

// DefaultQuoteValidity applies when a supplier leaves validUntil empty.
const DefaultQuoteValidity = 14 * 24 * time.Hour

// SourcingService runs the request/quote workflow. Every write to the quotes
// of one request happens under that request's lock and inside one
// transaction, so readers see either none or all of an accept cascade.
type SourcingService struct {
	Parts    *repos.PartRepo
	Requests *repos.RequestRepo
	Quotes   *repos.QuoteRepo
	Activity *ActivityService

	Now   func() time.Time
	locks KeyedMutex
}

func NewSourcingService(parts *repos.PartRepo, requests *repos.RequestRepo, quotes *repos.QuoteRepo, activity *ActivityService) *SourcingService {
	return &SourcingService{Parts: parts, Requests: requests, Quotes: quotes, Activity: activity, Now: time.Now}
}

func (s *SourcingService) now() time.Time { return s.Now().UTC() }

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

func displayName(a domain.Actor) string {
	if a.Organization != "" {
		return a.Organization
	}
	return a.Name
}

type RequestInput struct {
	PartID      string
	WorkOrderID string
	Quantity    int
	Urgency     domain.Urgency
	Description string
	// MaxPrice is a per-unit ceiling shown next to quotes; it never blocks one.
	MaxPrice decimal.NullDecimal
	NeededBy time.Time
}

func (in RequestInput) validate() error {
	switch {
	case strings.TrimSpace(in.PartID) == "":
		return domain.Invalid("partId is required")
	case in.Quantity <= 0:
		return domain.Invalid("quantity must be > 0")
	case !in.Urgency.Valid():
		return domain.Invalid("urgency must be low, medium or high")
	case in.NeededBy.IsZero():
		return domain.Invalid("neededBy is required")
	case in.MaxPrice.Valid && in.MaxPrice.Decimal.IsNegative():
		return domain.Invalid("maxPrice must be >= 0")
	}
	return nil
}

// CreateRequest raises an open request against an existing part.
func (s *SourcingService) CreateRequest(ctx context.Context, actor domain.Actor, in RequestInput) (domain.PartRequest, error) {
	if err := in.validate(); err != nil {
		return domain.PartRequest{}, err
	}
	var out domain.PartRequest
	err := s.Activity.Mutate(ctx, func(tx *sqlx.Tx, rec *Recorder) error {
		part, err := s.Parts.WithTx(tx).Get(ctx, in.PartID)
		if err != nil {
			return err
		}
		now := s.now()
		out = domain.PartRequest{
			ID:            uuid.NewString(),
			PartID:        part.ID,
			PartName:      part.Name,
			WorkOrderID:   strings.TrimSpace(in.WorkOrderID),
			GarageID:      actor.ID,
			GarageName:    displayName(actor),
			Quantity:      in.Quantity,
			Urgency:       in.Urgency,
			Description:   in.Description,
			MaxPrice:      in.MaxPrice,
			RequestedDate: now,
			NeededBy:      in.NeededBy.UTC(),
			Status:        domain.RequestOpen,
			Quotes:        []domain.PartQuote{},
			CreatedAt:     now,
		}
		if err := s.Requests.WithTx(tx).Insert(ctx, out); err != nil {
			return err
		}
		return rec.Record(actor, domain.ActionCreate, domain.ResourcePartRequest, out.ID,
			fmt.Sprintf("Requested %d x %s", out.Quantity, out.PartName),
			fmt.Sprintf("urgency=%s neededBy=%s", out.Urgency, out.NeededBy.Format(time.DateOnly)))
	})
	if err != nil {
		return domain.PartRequest{}, fmt.Errorf("sourcing.CreateRequest: %w", err)
	}
	return out, nil
}

type QuoteInput struct {
	PartName   string
	PartNumber string
	// Quantity defaults to the requested quantity when zero.
	Quantity  int
	UnitPrice decimal.Decimal
	// TotalPrice is supplier-asserted; when absent it defaults to quantity x unitPrice.
	TotalPrice   decimal.NullDecimal
	Availability string
	DeliveryTime string
	Warranty     string
	Notes        string
	ValidUntil   time.Time
}

func (in QuoteInput) validate(now time.Time) error {
	switch {
	case in.Quantity < 0:
		return domain.Invalid("quantity must be > 0")
	case in.UnitPrice.IsNegative():
		return domain.Invalid("unitPrice must be >= 0")
	case in.TotalPrice.Valid && in.TotalPrice.Decimal.IsNegative():
		return domain.Invalid("totalPrice must be >= 0")
	case !in.ValidUntil.IsZero() && !in.ValidUntil.After(now):
		return domain.Invalid("validUntil must be in the future")
	}
	return nil
}

// SubmitQuote records a pending quote against a request that is still taking
// offers. The request's own status is left alone.
func (s *SourcingService) SubmitQuote(ctx context.Context, actor domain.Actor, requestID string, in QuoteInput) (domain.PartQuote, error) {
	now := s.now()
	if err := in.validate(now); err != nil {
		return domain.PartQuote{}, err
	}

	unlock := s.locks.Lock(requestID)
	defer unlock()

	var out domain.PartQuote
	err := s.Activity.Mutate(ctx, func(tx *sqlx.Tx, rec *Recorder) error {
		req, err := s.Requests.WithTx(tx).Get(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.AcceptsQuotes() {
			return domain.Conflict("request is %s", req.Status)
		}

		qty := in.Quantity
		if qty == 0 {
			qty = req.Quantity
		}
		total := in.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		if in.TotalPrice.Valid {
			total = in.TotalPrice.Decimal
		}
		validUntil := in.ValidUntil.UTC()
		if in.ValidUntil.IsZero() {
			validUntil = now.Add(DefaultQuoteValidity)
		}
		partName := strings.TrimSpace(in.PartName)
		if partName == "" {
			partName = req.PartName
		}

		out = domain.PartQuote{
			ID:           uuid.NewString(),
			RequestID:    req.ID,
			SupplierID:   actor.ID,
			SupplierName: displayName(actor),
			PartName:     partName,
			PartNumber:   strings.TrimSpace(in.PartNumber),
			Quantity:     qty,
			UnitPrice:    in.UnitPrice,
			TotalPrice:   total,
			Availability: in.Availability,
			DeliveryTime: in.DeliveryTime,
			Warranty:     in.Warranty,
			Notes:        in.Notes,
			ValidUntil:   validUntil,
			Status:       domain.QuotePending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.Quotes.WithTx(tx).Insert(ctx, out); err != nil {
			return err
		}
		return rec.Record(actor, domain.ActionCreate, domain.ResourcePartQuote, out.ID,
			fmt.Sprintf("%s quoted %s for %s", out.SupplierName, out.TotalPrice.StringFixed(2), out.PartName),
			"request="+req.ID)
	})
	if err != nil {
		return domain.PartQuote{}, fmt.Errorf("sourcing.SubmitQuote: %w", err)
	}
	return out, nil
}

// AcceptQuote accepts a pending quote, rejects its pending siblings and marks
// the request accepted, all in one transaction with one activity entry.
// Accepting the already accepted quote changes nothing and records nothing.
func (s *SourcingService) AcceptQuote(ctx context.Context, actor domain.Actor, quoteID string) (domain.PartRequest, error) {
	const op = "sourcing.AcceptQuote"

	q, err := s.Quotes.Get(ctx, quoteID)
	if err != nil {
		return domain.PartRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	unlock := s.locks.Lock(q.RequestID)
	defer unlock()

	err = s.Activity.Mutate(ctx, func(tx *sqlx.Tx, rec *Recorder) error {
		quotes := s.Quotes.WithTx(tx)
		requests := s.Requests.WithTx(tx)

		q, err := quotes.Get(ctx, quoteID)
		if err != nil {
			return err
		}
		switch q.Status {
		case domain.QuoteAccepted:
			return nil
		case domain.QuoteRejected, domain.QuoteExpired:
			return domain.Conflict("quote is %s", q.Status)
		}

		req, err := requests.Get(ctx, q.RequestID)
		if err != nil {
			return err
		}
		if !req.Status.AcceptsQuotes() {
			return domain.Conflict("request is %s", req.Status)
		}
		if other, err := quotes.AcceptedForRequest(ctx, req.ID); err == nil {
			return domain.Conflict("request already accepted quote %s", other.ID)
		} else if !isNotFound(err) {
			return err
		}

		now := s.now()
		ok, err := quotes.SetStatus(ctx, q.ID, domain.QuotePending, domain.QuoteAccepted, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("quote is no longer pending")
		}
		rejected, err := quotes.RejectPendingSiblings(ctx, req.ID, q.ID, now)
		if err != nil {
			return err
		}
		if err := requests.UpdateStatus(ctx, req.ID, domain.RequestAccepted); err != nil {
			return err
		}
		return rec.Record(actor, domain.ActionUpdate, domain.ResourcePartQuote, q.ID,
			fmt.Sprintf("Accepted quote from %s for %s", q.SupplierName, q.PartName),
			fmt.Sprintf("request=%s total=%s rejected=%s", req.ID, q.TotalPrice.StringFixed(2), strings.Join(rejected, ",")))
	})
	if err != nil {
		return domain.PartRequest{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetRequest(ctx, q.RequestID)
}

// RejectQuote rejects one pending quote without touching the request or its
// other quotes. Rejecting an already rejected quote is a no-op.
func (s *SourcingService) RejectQuote(ctx context.Context, actor domain.Actor, quoteID string) (domain.PartQuote, error) {
	const op = "sourcing.RejectQuote"

	q, err := s.Quotes.Get(ctx, quoteID)
	if err != nil {
		return domain.PartQuote{}, fmt.Errorf("%s: %w", op, err)
	}

	unlock := s.locks.Lock(q.RequestID)
	defer unlock()

	err = s.Activity.Mutate(ctx, func(tx *sqlx.Tx, rec *Recorder) error {
		quotes := s.Quotes.WithTx(tx)
		cur, err := quotes.Get(ctx, quoteID)
		if err != nil {
			return err
		}
		switch cur.Status {
		case domain.QuoteRejected:
			q = cur
			return nil
		case domain.QuoteAccepted, domain.QuoteExpired:
			return domain.Conflict("quote is %s", cur.Status)
		}
		now := s.now()
		ok, err := quotes.SetStatus(ctx, cur.ID, domain.QuotePending, domain.QuoteRejected, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("quote is no longer pending")
		}
		cur.Status = domain.QuoteRejected
		cur.UpdatedAt = now
		q = cur
		return rec.Record(actor, domain.ActionUpdate, domain.ResourcePartQuote, cur.ID,
			fmt.Sprintf("Rejected quote from %s for %s", cur.SupplierName, cur.PartName),
			"request="+cur.RequestID)
	})
	if err != nil {
		return domain.PartQuote{}, fmt.Errorf("%s: %w", op, err)
	}
	return q, nil
}

// ExpireQuotes moves pending quotes whose validUntil has passed to expired.
// Each request is handled under its own lock and transaction.
func (s *SourcingService) ExpireQuotes(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.Quotes.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("sourcing.ExpireQuotes: %w", err)
	}
	lapsed := lo.Filter(pending, func(q domain.PartQuote, _ int) bool { return q.ValidUntil.Before(now) })
	byRequest := lo.GroupBy(lapsed, func(q domain.PartQuote) string { return q.RequestID })
	requestIDs := lo.Keys(byRequest)
	sort.Strings(requestIDs)

	expired := 0
	for _, rid := range requestIDs {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		n, err := s.expireForRequest(ctx, rid, byRequest[rid], now)
		expired += n
		if err != nil {
			return expired, fmt.Errorf("sourcing.ExpireQuotes: request %s: %w", rid, err)
		}
	}
	return expired, nil
}

func (s *SourcingService) expireForRequest(ctx context.Context, requestID string, lapsed []domain.PartQuote, now time.Time) (int, error) {
	unlock := s.locks.Lock(requestID)
	defer unlock()

	n := 0
	err := s.Activity.Mutate(ctx, func(tx *sqlx.Tx, rec *Recorder) error {
		quotes := s.Quotes.WithTx(tx)
		for _, q := range lapsed {
			// an accept or reject may have won the race for the lock
			ok, err := quotes.SetStatus(ctx, q.ID, domain.QuotePending, domain.QuoteExpired, now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			n++
			if err := rec.Record(domain.System, domain.ActionUpdate, domain.ResourcePartQuote, q.ID,
				fmt.Sprintf("Quote from %s for %s expired", q.SupplierName, q.PartName),
				"validUntil="+q.ValidUntil.Format(time.RFC3339)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// GetRequest returns the request with its quotes read from the quote store.
func (s *SourcingService) GetRequest(ctx context.Context, id string) (domain.PartRequest, error) {
	req, err := s.Requests.Get(ctx, id)
	if err != nil {
		return domain.PartRequest{}, err
	}
	req.Quotes, err = s.Quotes.ListByRequest(ctx, id)
	if err != nil {
		return domain.PartRequest{}, err
	}
	return req, nil
}

func (s *SourcingService) ListRequests(ctx context.Context, f repos.RequestFilter) ([]domain.PartRequest, error) {
	for _, st := range f.Status {
		if !st.Valid() {
			return nil, domain.Invalid("unknown status " + string(st))
		}
	}
	reqs, err := s.Requests.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.withQuotes(ctx, reqs)
}

func (s *SourcingService) withQuotes(ctx context.Context, reqs []domain.PartRequest) ([]domain.PartRequest, error) {
	byRequest, err := s.Quotes.ListByRequests(ctx, lo.Map(reqs, func(r domain.PartRequest, _ int) string { return r.ID }))
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		reqs[i].Quotes = byRequest[reqs[i].ID]
		if reqs[i].Quotes == nil {
			reqs[i].Quotes = []domain.PartQuote{}
		}
	}
	return reqs, nil
}

// ListQuotesForPart returns the pending quotes on every request for the part.
func (s *SourcingService) ListQuotesForPart(ctx context.Context, partID string) ([]domain.PartQuote, error) {
	if _, err := s.Parts.Get(ctx, partID); err != nil {
		return nil, err
	}
	return s.Quotes.PendingForPart(ctx, partID)
}

// QuoteCountForPart drives the notification badge and is recomputed on every call.
func (s *SourcingService) QuoteCountForPart(ctx context.Context, partID string) (int, error) {
	quotes, err := s.ListQuotesForPart(ctx, partID)
	return len(quotes), err
}

// OpenRequestsForPart returns requests for the part that still take quotes.
func (s *SourcingService) OpenRequestsForPart(ctx context.Context, partID string) ([]domain.PartRequest, error) {
	if _, err := s.Parts.Get(ctx, partID); err != nil {
		return nil, err
	}
	return s.ListRequests(ctx, repos.RequestFilter{
		PartID: partID,
		Status: []domain.RequestStatus{domain.RequestOpen, domain.RequestQuoted},
	})
}

// AcceptedQuoteForRequest returns domain.ErrQuoteNotFound when the request has
// not accepted a quote yet.
func (s *SourcingService) AcceptedQuoteForRequest(ctx context.Context, requestID string) (domain.PartQuote, error) {
	if _, err := s.Requests.Get(ctx, requestID); err != nil {
		return domain.PartQuote{}, err
	}
	return s.Quotes.AcceptedForRequest(ctx, requestID)
}
