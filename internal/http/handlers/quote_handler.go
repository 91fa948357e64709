package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	applog "garagehub/internal/log"
	"garagehub/internal/repos"
	"garagehub/internal/services"
)

const acceptScope = "quote.accept"

type QuoteHandler struct {
	Sourcing *services.SourcingService
	Idem     *repos.IdempotencyRepo
}

// POST /api/v1/quotes/:id/accept
//
// A client may send Idempotency-Key; a retry with the same key replays the
// first response instead of running the accept again. Keys are stored per
// user, so one caller's key never replays another caller's response.
func (h *QuoteHandler) Accept(c *fiber.Ctx) error {
	quoteID := c.Params("id")
	key := strings.TrimSpace(c.Get("Idempotency-Key"))
	if len(key) > 128 {
		return badRequest(c, "Idempotency-Key", "Idempotency-Key is too long")
	}

	actor := actorOf(c)
	storedKey := ""
	if key != "" {
		storedKey = actor.ID + ":" + key
		rec, ok, err := h.Idem.Get(c.UserContext(), storedKey)
		if err != nil {
			return apiError(c, "quote.accept", err)
		}
		if ok {
			if rec.Scope != acceptScope || rec.ResourceID != quoteID {
				applog.Security(c, "idempotency.key.reuse", map[string]any{"quote_id": quoteID})
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Idempotency-Key was used for a different request"})
			}
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(rec.StatusCode).SendString(rec.Body)
		}
	}

	status := fiber.StatusOK
	var payload any
	req, err := h.Sourcing.AcceptQuote(c.UserContext(), actor, quoteID)
	if err != nil {
		status = StatusFor(err)
		if status >= fiber.StatusInternalServerError {
			return apiError(c, "quote.accept", err)
		}
		applog.Info(c, "quote.accept.rejected", map[string]any{"quote_id": quoteID, "reason": PublicMessage(err)})
		payload = fiber.Map{"error": PublicMessage(err)}
	} else {
		applog.Audit(c, "quote.accept", map[string]any{"quote_id": quoteID, "request_id": req.ID})
		payload = req
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apiError(c, "quote.accept", err)
	}
	if key != "" {
		err := h.Idem.Put(c.UserContext(), repos.IdempotencyRecord{
			Key:        storedKey,
			Scope:      acceptScope,
			ResourceID: quoteID,
			StatusCode: status,
			Body:       string(body),
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			applog.Error(c, "idempotency.store.fail", err, map[string]any{"quote_id": quoteID})
		}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(status).Send(body)
}

// POST /api/v1/quotes/:id/reject
func (h *QuoteHandler) Reject(c *fiber.Ctx) error {
	q, err := h.Sourcing.RejectQuote(c.UserContext(), actorOf(c), c.Params("id"))
	if err != nil {
		return apiError(c, "quote.reject", err)
	}
	applog.Audit(c, "quote.reject", map[string]any{"quote_id": q.ID, "request_id": q.RequestID})
	return c.JSON(q)
}
