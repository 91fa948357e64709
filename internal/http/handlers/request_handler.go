package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"garagehub/internal/domain"
	applog "garagehub/internal/log"
	"garagehub/internal/repos"
	"garagehub/internal/services"
	"garagehub/internal/validate"
)

type RequestHandler struct {
	Sourcing *services.SourcingService
}

type requestBody struct {
	PartID      string              `json:"partId"`
	WorkOrderID string              `json:"workOrderId"`
	Quantity    int                 `json:"quantity"`
	Urgency     string              `json:"urgency"`
	Description string              `json:"description"`
	MaxPrice    decimal.NullDecimal `json:"maxPrice"`
	NeededBy    string              `json:"neededBy"`
}

type quoteBody struct {
	PartName     string              `json:"partName"`
	PartNumber   string              `json:"partNumber"`
	Quantity     int                 `json:"quantity"`
	UnitPrice    decimal.Decimal     `json:"unitPrice"`
	TotalPrice   decimal.NullDecimal `json:"totalPrice"`
	Availability string              `json:"availability"`
	DeliveryTime string              `json:"deliveryTime"`
	Warranty     string              `json:"warranty"`
	Notes        string              `json:"notes"`
	ValidUntil   string              `json:"validUntil"`
}

// parseWhen accepts a date-picker value or a full RFC 3339 timestamp.
// Blank yields the zero time.
func parseWhen(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	if t, ok := validate.Date(s); ok {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func (b requestBody) input() (services.RequestInput, string, bool) {
	neededBy, ok := parseWhen(b.NeededBy)
	if !ok {
		return services.RequestInput{}, "neededBy", false
	}
	return services.RequestInput{
		PartID:      strings.TrimSpace(b.PartID),
		WorkOrderID: validate.Text(b.WorkOrderID, 64),
		Quantity:    b.Quantity,
		Urgency:     domain.Urgency(strings.ToLower(strings.TrimSpace(b.Urgency))),
		Description: validate.Text(b.Description, 500),
		MaxPrice:    b.MaxPrice,
		NeededBy:    neededBy,
	}, "", true
}

func (b quoteBody) input() (services.QuoteInput, string, bool) {
	validUntil, ok := parseWhen(b.ValidUntil)
	if !ok {
		return services.QuoteInput{}, "validUntil", false
	}
	return services.QuoteInput{
		PartName:     validate.Text(b.PartName, 80),
		PartNumber:   validate.Text(b.PartNumber, 64),
		Quantity:     b.Quantity,
		UnitPrice:    b.UnitPrice,
		TotalPrice:   b.TotalPrice,
		Availability: validate.Text(b.Availability, 80),
		DeliveryTime: validate.Text(b.DeliveryTime, 80),
		Warranty:     validate.Text(b.Warranty, 80),
		Notes:        validate.Text(b.Notes, 500),
		ValidUntil:   validUntil,
	}, "", true
}

func requestFilter(c *fiber.Ctx) repos.RequestFilter {
	f := repos.RequestFilter{PartID: strings.TrimSpace(c.Query("partId"))}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.Status = append(f.Status, domain.RequestStatus(strings.TrimSpace(s)))
		}
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		f.Limit = uint64(n)
	}
	if c.Query("mine") == "true" {
		if u := currentUser(c); u != nil {
			f.GarageID = u.ID
		}
	}
	return f
}

// GET /api/v1/requests
func (h *RequestHandler) List(c *fiber.Ctx) error {
	reqs, err := h.Sourcing.ListRequests(c.UserContext(), requestFilter(c))
	if err != nil {
		return apiError(c, "request.list", err)
	}
	return c.JSON(reqs)
}

// GET /api/v1/requests/:id
func (h *RequestHandler) Get(c *fiber.Ctx) error {
	req, err := h.Sourcing.GetRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "request.get", err)
	}
	return c.JSON(req)
}

// POST /api/v1/requests
func (h *RequestHandler) Create(c *fiber.Ctx) error {
	var body requestBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	in, field, ok := body.input()
	if !ok {
		return badRequest(c, field, field+" must be a date")
	}
	req, err := h.Sourcing.CreateRequest(c.UserContext(), actorOf(c), in)
	if err != nil {
		return apiError(c, "request.create", err)
	}
	applog.Audit(c, "request.create", map[string]any{"request_id": req.ID, "part_id": req.PartID})
	return c.Status(fiber.StatusCreated).JSON(req)
}

// GET /api/v1/requests/:id/accepted-quote
func (h *RequestHandler) AcceptedQuote(c *fiber.Ctx) error {
	q, err := h.Sourcing.AcceptedQuoteForRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "request.accepted", err)
	}
	return c.JSON(q)
}

// POST /api/v1/requests/:id/quotes
func (h *RequestHandler) SubmitQuote(c *fiber.Ctx) error {
	var body quoteBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	in, field, ok := body.input()
	if !ok {
		return badRequest(c, field, field+" must be a date")
	}
	q, err := h.Sourcing.SubmitQuote(c.UserContext(), actorOf(c), c.Params("id"), in)
	if err != nil {
		return apiError(c, "quote.submit", err)
	}
	applog.Audit(c, "quote.submit", map[string]any{"quote_id": q.ID, "request_id": q.RequestID, "total": q.TotalPrice.StringFixed(2)})
	return c.Status(fiber.StatusCreated).JSON(q)
}
