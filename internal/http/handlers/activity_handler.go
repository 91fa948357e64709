package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"garagehub/internal/domain"
	"garagehub/internal/repos"
	"garagehub/internal/services"
)

type ActivityHandler struct {
	Activity *services.ActivityService
}

const maxActivityRows = 200

func activityFilter(c *fiber.Ctx) (repos.ActivityFilter, bool) {
	f := repos.ActivityFilter{
		ResourceType: c.Query("resourceType"),
		ResourceID:   c.Query("resourceId"),
		ActorID:      c.Query("actorId"),
		Action:       domain.Action(c.Query("action")),
		Limit:        50,
	}
	if f.Action != "" && !f.Action.Valid() {
		return f, false
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		f.Limit = uint64(min(n, maxActivityRows))
	}
	return f, true
}

// GET /api/v1/activity
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	f, ok := activityFilter(c)
	if !ok {
		return badRequest(c, "action", "unknown action")
	}
	entries, err := h.Activity.List(c.UserContext(), f)
	if err != nil {
		return apiError(c, "activity.list", err)
	}
	return c.JSON(entries)
}
