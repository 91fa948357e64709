package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"garagehub/internal/domain"
	applog "garagehub/internal/log"
	"garagehub/internal/repos"
	"garagehub/internal/services"
	"garagehub/internal/validate"
)

type PartHandler struct {
	Inv      *services.InventoryService
	Sourcing *services.SourcingService
}

type partBody struct {
	Name        string          `json:"name"`
	PartNumber  string          `json:"partNumber"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	MinQuantity int             `json:"minQuantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Supplier    string          `json:"supplier"`
	Status      string          `json:"status"`
}

func (b partBody) input() services.PartInput {
	return services.PartInput{
		Name:        b.Name,
		PartNumber:  b.PartNumber,
		Description: validate.Text(b.Description, 500),
		Quantity:    b.Quantity,
		MinQuantity: b.MinQuantity,
		UnitPrice:   b.UnitPrice,
		Supplier:    b.Supplier,
		Status:      domain.PartStatus(strings.TrimSpace(b.Status)),
	}
}

func partFilter(c *fiber.Ctx) (repos.PartFilter, bool) {
	var f repos.PartFilter
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.Status = append(f.Status, domain.PartStatus(strings.TrimSpace(s)))
		}
	}
	if raw := c.Query("q"); raw != "" {
		q, ok := validate.Q(raw)
		if !ok {
			return f, false
		}
		f.Query = q
	}
	return f, true
}

// GET /api/v1/parts
func (h *PartHandler) List(c *fiber.Ctx) error {
	f, ok := partFilter(c)
	if !ok {
		return badRequest(c, "q", "invalid search query")
	}
	parts, err := h.Inv.ListParts(c.UserContext(), f)
	if err != nil {
		return apiError(c, "part.list", err)
	}
	return c.JSON(parts)
}

// GET /api/v1/parts/:id
func (h *PartHandler) Get(c *fiber.Ctx) error {
	p, err := h.Inv.GetPart(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "part.get", err)
	}
	return c.JSON(p)
}

// POST /api/v1/parts
func (h *PartHandler) Create(c *fiber.Ctx) error {
	var body partBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	p, err := h.Inv.CreatePart(c.UserContext(), actorOf(c), body.input())
	if err != nil {
		return apiError(c, "part.create", err)
	}
	applog.Audit(c, "part.create", map[string]any{"part_id": p.ID, "qty": p.Quantity})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /api/v1/parts/:id
func (h *PartHandler) Update(c *fiber.Ctx) error {
	var body partBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	p, err := h.Inv.UpdatePart(c.UserContext(), actorOf(c), c.Params("id"), body.input())
	if err != nil {
		return apiError(c, "part.update", err)
	}
	applog.Audit(c, "part.update", map[string]any{"part_id": p.ID, "qty": p.Quantity, "status": p.Status})
	return c.JSON(p)
}

// DELETE /api/v1/parts/:id
func (h *PartHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Inv.DeletePart(c.UserContext(), actorOf(c), id); err != nil {
		return apiError(c, "part.delete", err)
	}
	applog.Audit(c, "part.delete", map[string]any{"part_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/v1/availability?partId=
func (h *PartHandler) Availability(c *fiber.Ctx) error {
	partID, ok := validate.ID(c.Query("partId"))
	if !ok {
		return badRequest(c, "partId", "missing partId")
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), partID)
	if err != nil {
		return apiError(c, "part.availability", err)
	}
	return c.JSON(avail)
}

// GET /api/v1/parts/:id/quotes
func (h *PartHandler) Quotes(c *fiber.Ctx) error {
	quotes, err := h.Sourcing.ListQuotesForPart(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "part.quotes", err)
	}
	return c.JSON(fiber.Map{"count": len(quotes), "quotes": quotes})
}

// GET /api/v1/parts/:id/requests
func (h *PartHandler) OpenRequests(c *fiber.Ctx) error {
	reqs, err := h.Sourcing.OpenRequestsForPart(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "part.requests", err)
	}
	return c.JSON(reqs)
}
