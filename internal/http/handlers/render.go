package handlers

import (
	"github.com/gofiber/fiber/v2"

	"garagehub/internal/domain"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	// Inject user if present
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	// Pick up the token the CSRF middleware put into Locals
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		// the cookie carries the same token when Locals was not populated
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// actorOf names the logged-in user in the activity log.
func actorOf(c *fiber.Ctx) domain.Actor {
	if u := currentUser(c); u != nil {
		return u.Actor()
	}
	return domain.Actor{ID: "anonymous", Name: "Anonymous"}
}
