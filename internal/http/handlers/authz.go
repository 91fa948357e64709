package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "garagehub/internal/log"
	"garagehub/internal/services"
)

// RequireUser enforces that a user is logged in; otherwise redirect to login
// (pages) or answer 401 (API).
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) != nil {
			return c.Next()
		}
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
				return c.Next()
			}
		}
		if isAPI(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
		}
		return c.Redirect("/login")
	}
}

// RequireRole lets through users holding any of roles. Mount it after RequireUser.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			if isAPI(c) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
			}
			return c.Redirect("/login")
		}
		if !u.HasRole(roles...) {
			applog.Security(c, "access.denied.role", map[string]any{"role": u.Role, "need": roles})
			if isAPI(c) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
			}
			c.Status(fiber.StatusForbidden)
			return render(c, "notfound", fiber.Map{"Message": "Access denied"})
		}
		return c.Next()
	}
}
