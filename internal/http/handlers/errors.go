package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"garagehub/internal/domain"
	applog "garagehub/internal/log"
)

const genericMessage = "Something went wrong. Please try again."

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// PublicMessage is the text a client may see; internals never leak.
func PublicMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	for _, nf := range []error{domain.ErrPartNotFound, domain.ErrRequestNotFound, domain.ErrQuoteNotFound} {
		if errors.Is(err, nf) {
			return nf.Error()
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound.Error()
	}
	return genericMessage
}

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }

// apiError writes {"error": ...} with the mapped status. Server faults are
// logged with their cause; client faults are logged as info.
func apiError(c *fiber.Ctx, action string, err error) error {
	code := StatusFor(err)
	c.Status(code)
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, action+".fail", err, nil)
	} else {
		applog.Info(c, action+".rejected", map[string]any{"reason": PublicMessage(err)})
	}
	return c.JSON(fiber.Map{"error": PublicMessage(err)})
}

func badRequest(c *fiber.Ctx, field, msg string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	if isAPI(c) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	c.Status(fiber.StatusBadRequest)
	return render(c, "notfound", fiber.Map{"Message": msg})
}

// pageError renders the friendly error page with the mapped status.
func pageError(c *fiber.Ctx, action string, err error) error {
	code := StatusFor(err)
	c.Status(code)
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, action+".fail", err, nil)
	} else {
		applog.Info(c, action+".rejected", map[string]any{"reason": PublicMessage(err)})
	}
	return render(c, "notfound", fiber.Map{"Message": PublicMessage(err)})
}
