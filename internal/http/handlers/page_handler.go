package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"garagehub/internal/domain"
	applog "garagehub/internal/log"
	"garagehub/internal/services"
	"garagehub/internal/validate"
)

// PageHandler serves the server-rendered screens. Forms post back here and
// redirect on success.
type PageHandler struct {
	Inv      *services.InventoryService
	Sourcing *services.SourcingService
	Activity *services.ActivityService
}

type partRow struct {
	domain.Part
	Quotes int
}

// GET /parts
func (h *PageHandler) Parts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	f, ok := partFilter(c)
	if !ok {
		return badRequest(c, "q", "invalid search query")
	}
	parts, err := h.Inv.ListParts(ctx, f)
	if err != nil {
		return pageError(c, "page.parts", err)
	}
	rows := make([]partRow, 0, len(parts))
	for _, p := range parts {
		n, err := h.Sourcing.QuoteCountForPart(ctx, p.ID)
		if err != nil {
			return pageError(c, "page.parts", err)
		}
		rows = append(rows, partRow{Part: p, Quotes: n})
	}
	return render(c, "parts", fiber.Map{"Parts": rows, "Q": f.Query})
}

func partForm(c *fiber.Ctx) (services.PartInput, string, bool) {
	name, ok := validate.Name(c.FormValue("name"))
	if !ok {
		return services.PartInput{}, "name", false
	}
	qty, ok := validate.Qty(c.FormValue("quantity"))
	if !ok {
		return services.PartInput{}, "quantity", false
	}
	minQty, ok := validate.Qty(c.FormValue("minQuantity"))
	if !ok {
		return services.PartInput{}, "minQuantity", false
	}
	price, ok := validate.Money(c.FormValue("unitPrice"))
	if !ok {
		return services.PartInput{}, "unitPrice", false
	}
	return services.PartInput{
		Name:        name,
		PartNumber:  validate.Text(c.FormValue("partNumber"), 64),
		Description: validate.Text(c.FormValue("description"), 500),
		Quantity:    qty,
		MinQuantity: minQty,
		UnitPrice:   price,
		Supplier:    validate.Text(c.FormValue("supplier"), 80),
		Status:      domain.PartStatus(strings.TrimSpace(c.FormValue("status"))),
	}, "", true
}

// POST /parts
func (h *PageHandler) CreatePart(c *fiber.Ctx) error {
	in, field, ok := partForm(c)
	if !ok {
		return badRequest(c, field, "enter a valid "+field)
	}
	p, err := h.Inv.CreatePart(c.UserContext(), actorOf(c), in)
	if err != nil {
		return pageError(c, "part.create", err)
	}
	applog.Audit(c, "part.create", map[string]any{"part_id": p.ID, "qty": p.Quantity})
	return c.Redirect("/parts")
}

// POST /parts/:id edits the stock figures; the catalogue fields are kept.
func (h *PageHandler) UpdateStock(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p, err := h.Inv.GetPart(ctx, c.Params("id"))
	if err != nil {
		return pageError(c, "part.update", err)
	}
	qty, ok := validate.Qty(c.FormValue("quantity"))
	if !ok {
		return badRequest(c, "quantity", "enter a valid quantity")
	}
	minQty := p.MinQuantity
	if raw := c.FormValue("minQuantity"); raw != "" {
		if minQty, ok = validate.Qty(raw); !ok {
			return badRequest(c, "minQuantity", "enter a valid minimum quantity")
		}
	}
	p, err = h.Inv.UpdatePart(ctx, actorOf(c), p.ID, services.PartInput{
		Name:        p.Name,
		PartNumber:  p.PartNumber,
		Description: p.Description,
		Quantity:    qty,
		MinQuantity: minQty,
		UnitPrice:   p.UnitPrice,
		Supplier:    p.Supplier,
		Status:      domain.PartStatus(strings.TrimSpace(c.FormValue("status"))),
	})
	if err != nil {
		return pageError(c, "part.update", err)
	}
	applog.Audit(c, "part.update", map[string]any{"part_id": p.ID, "qty": p.Quantity, "status": p.Status})
	return c.Redirect("/parts")
}

// GET /requests
func (h *PageHandler) Requests(c *fiber.Ctx) error {
	ctx := c.UserContext()
	f := requestFilter(c)
	if u := currentUser(c); u != nil && u.Role == domain.RoleSupplier && len(f.Status) == 0 {
		f.Status = []domain.RequestStatus{domain.RequestOpen, domain.RequestQuoted}
	}
	reqs, err := h.Sourcing.ListRequests(ctx, f)
	if err != nil {
		return pageError(c, "page.requests", err)
	}
	low, err := h.Inv.LowStock(ctx)
	if err != nil {
		return pageError(c, "page.requests", err)
	}
	return render(c, "requests", fiber.Map{
		"Requests": reqs,
		"LowStock": low,
		"PartID":   f.PartID,
	})
}

// POST /requests
func (h *PageHandler) CreateRequest(c *fiber.Ctx) error {
	partID, ok := validate.ID(c.FormValue("partId"))
	if !ok {
		return badRequest(c, "partId", "choose a part")
	}
	qty, ok := validate.PositiveQty(c.FormValue("quantity"))
	if !ok {
		return badRequest(c, "quantity", "enter a quantity greater than zero")
	}
	urgency, ok := validate.Urgency(c.FormValue("urgency"))
	if !ok {
		return badRequest(c, "urgency", "choose low, medium or high urgency")
	}
	maxPrice, ok := validate.OptionalMoney(c.FormValue("maxPrice"))
	if !ok {
		return badRequest(c, "maxPrice", "enter a valid maximum price")
	}
	neededBy, ok := validate.Date(c.FormValue("neededBy"))
	if !ok {
		return badRequest(c, "neededBy", "enter the date the part is needed by")
	}
	req, err := h.Sourcing.CreateRequest(c.UserContext(), actorOf(c), services.RequestInput{
		PartID:      partID,
		WorkOrderID: validate.Text(c.FormValue("workOrderId"), 64),
		Quantity:    qty,
		Urgency:     domain.Urgency(urgency),
		Description: validate.Text(c.FormValue("description"), 500),
		MaxPrice:    maxPrice,
		NeededBy:    neededBy,
	})
	if err != nil {
		return pageError(c, "request.create", err)
	}
	applog.Audit(c, "request.create", map[string]any{"request_id": req.ID, "part_id": req.PartID})
	return c.Redirect("/requests/" + req.ID)
}

type quoteRow struct {
	domain.PartQuote
	InBudget bool
}

// GET /requests/:id
func (h *PageHandler) Request(c *fiber.Ctx) error {
	req, err := h.Sourcing.GetRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return pageError(c, "page.request", err)
	}
	rows := make([]quoteRow, 0, len(req.Quotes))
	for _, q := range req.Quotes {
		rows = append(rows, quoteRow{PartQuote: q, InBudget: q.WithinBudget(req)})
	}
	return render(c, "request", fiber.Map{"Request": req, "Quotes": rows})
}

// POST /requests/:id/quotes
func (h *PageHandler) SubmitQuote(c *fiber.Ctx) error {
	requestID := c.Params("id")
	price, ok := validate.Money(c.FormValue("unitPrice"))
	if !ok {
		return badRequest(c, "unitPrice", "enter a valid unit price")
	}
	total, ok := validate.OptionalMoney(c.FormValue("totalPrice"))
	if !ok {
		return badRequest(c, "totalPrice", "enter a valid total price")
	}
	qty := 0
	if raw := c.FormValue("quantity"); raw != "" {
		if qty, ok = validate.PositiveQty(raw); !ok {
			return badRequest(c, "quantity", "enter a quantity greater than zero")
		}
	}
	validUntil, ok := parseWhen(c.FormValue("validUntil"))
	if !ok {
		return badRequest(c, "validUntil", "enter a valid date")
	}
	q, err := h.Sourcing.SubmitQuote(c.UserContext(), actorOf(c), requestID, services.QuoteInput{
		PartName:     validate.Text(c.FormValue("partName"), 80),
		PartNumber:   validate.Text(c.FormValue("partNumber"), 64),
		Quantity:     qty,
		UnitPrice:    price,
		TotalPrice:   total,
		Availability: validate.Text(c.FormValue("availability"), 80),
		DeliveryTime: validate.Text(c.FormValue("deliveryTime"), 80),
		Warranty:     validate.Text(c.FormValue("warranty"), 80),
		Notes:        validate.Text(c.FormValue("notes"), 500),
		ValidUntil:   validUntil,
	})
	if err != nil {
		return pageError(c, "quote.submit", err)
	}
	applog.Audit(c, "quote.submit", map[string]any{"quote_id": q.ID, "request_id": requestID})
	return c.Redirect("/requests/" + requestID)
}

// POST /quotes/:id/accept
func (h *PageHandler) AcceptQuote(c *fiber.Ctx) error {
	req, err := h.Sourcing.AcceptQuote(c.UserContext(), actorOf(c), c.Params("id"))
	if err != nil {
		return pageError(c, "quote.accept", err)
	}
	applog.Audit(c, "quote.accept", map[string]any{"quote_id": c.Params("id"), "request_id": req.ID})
	return c.Redirect("/requests/" + req.ID)
}

// POST /quotes/:id/reject
func (h *PageHandler) RejectQuote(c *fiber.Ctx) error {
	q, err := h.Sourcing.RejectQuote(c.UserContext(), actorOf(c), c.Params("id"))
	if err != nil {
		return pageError(c, "quote.reject", err)
	}
	applog.Audit(c, "quote.reject", map[string]any{"quote_id": q.ID, "request_id": q.RequestID})
	return c.Redirect("/requests/" + q.RequestID)
}

// GET /activity
func (h *PageHandler) ActivityLog(c *fiber.Ctx) error {
	f, ok := activityFilter(c)
	if !ok {
		return badRequest(c, "action", "unknown action")
	}
	entries, err := h.Activity.List(c.UserContext(), f)
	if err != nil {
		return pageError(c, "page.activity", err)
	}
	return render(c, "activity", fiber.Map{"Entries": entries, "Filter": f})
}
