// Package http assembles the fiber application: middleware, the JSON API
// under /api/v1 and the server-rendered pages.
package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"garagehub/internal/config"
	"garagehub/internal/domain"
	"garagehub/internal/http/handlers"
	applog "garagehub/internal/log"
)

const friendlyError = "Something went wrong. Please try again."

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }

// ErrorHandler keeps client errors as they are and hides server faults
// behind a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := friendlyError
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code, msg = fe.Code, fe.Message
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// NewApp wires middleware and routes. cfg.TemplatesDir and cfg.StaticDir are
// resolved relative to the working directory.
func NewApp(cfg config.Config, deps *handlers.Deps) *fiber.App {
	engine := html.New(cfg.TemplatesDir, ".html")
	engine.Reload(cfg.AppEnv == "local")

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: ErrorHandler,
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	// Attach user to context if logged in (for templates/headers)
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := deps.Auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), "/static/")
			},
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate.global.hit", nil)
				return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded, retry soon")
			},
		}))
	}
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ContextKey:     "csrf",
		// JSON clients cannot be driven by a cross-site form post
		Next: func(c *fiber.Ctx) bool {
			return isAPI(c) && strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"error": err.Error()})
			if isAPI(c) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "security check failed"})
			}
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	app.Static("/static", cfg.StaticDir)

	// ---------- Auth ----------
	authH := deps.AuthHandler
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        max(cfg.LoginRateLimit, 1),
		Expiration: 10 * time.Minute,
		Next:       func(*fiber.Ctx) bool { return cfg.LoginRateLimit <= 0 },
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Post("/logout", authH.Logout)

	requireUser := handlers.RequireUser(deps.Auth)
	garageOnly := handlers.RequireRole(domain.RoleGarage, domain.RoleAdmin)
	supplierOnly := handlers.RequireRole(domain.RoleSupplier, domain.RoleAdmin)

	// ---------- API ----------
	api := app.Group("/api/v1", requireUser)
	parts, reqs, quotes := deps.PartHandler, deps.RequestHandler, deps.QuoteHandler

	api.Get("/parts", parts.List)
	api.Post("/parts", garageOnly, parts.Create)
	api.Get("/parts/:id", parts.Get)
	api.Put("/parts/:id", garageOnly, parts.Update)
	api.Delete("/parts/:id", garageOnly, parts.Delete)
	api.Get("/parts/:id/quotes", parts.Quotes)
	api.Get("/parts/:id/requests", parts.OpenRequests)

	availLimiter := limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Get("/availability", availLimiter, parts.Availability)

	api.Get("/requests", reqs.List)
	api.Post("/requests", garageOnly, reqs.Create)
	api.Get("/requests/:id", reqs.Get)
	api.Get("/requests/:id/accepted-quote", reqs.AcceptedQuote)
	api.Post("/requests/:id/quotes", supplierOnly, reqs.SubmitQuote)

	api.Post("/quotes/:id/accept", garageOnly, quotes.Accept)
	api.Post("/quotes/:id/reject", garageOnly, quotes.Reject)

	api.Get("/activity", deps.ActivityHandler.List)

	// ---------- Pages ----------
	pages := deps.PageHandler
	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/parts") })
	app.Get("/parts", requireUser, pages.Parts)
	app.Post("/parts", requireUser, garageOnly, pages.CreatePart)
	app.Post("/parts/:id", requireUser, garageOnly, pages.UpdateStock)
	app.Get("/requests", requireUser, pages.Requests)
	app.Post("/requests", requireUser, garageOnly, pages.CreateRequest)
	app.Get("/requests/:id", requireUser, pages.Request)
	app.Post("/requests/:id/quotes", requireUser, supplierOnly, pages.SubmitQuote)
	app.Post("/quotes/:id/accept", requireUser, garageOnly, pages.AcceptQuote)
	app.Post("/quotes/:id/reject", requireUser, garageOnly, pages.RejectQuote)
	app.Get("/activity", requireUser, pages.ActivityLog)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	return app
}
