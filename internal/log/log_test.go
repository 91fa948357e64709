package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "garagehub/internal/log"
)

func TestRequestScopedEntry(t *testing.T) {
	var buf bytes.Buffer
	restore := applog.SetOutput(&buf)
	defer restore()

	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/x", func(c *fiber.Ctx) error {
		applog.Audit(c, "quote.accept", map[string]any{"quote_id": "q-1"})
		applog.Error(c, "server.error", errors.New("boom"), nil)
		return c.SendStatus(fiber.StatusNoContent)
	})
	_, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var audit map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &audit))
	assert.Equal(t, "quote.accept", audit["action"])
	assert.Equal(t, "audit", audit["kind"])
	assert.Equal(t, "GET", audit["method"])
	assert.NotEmpty(t, audit["req_id"])
	assert.Equal(t, map[string]any{"quote_id": "q-1"}, audit["fields"])

	var failure map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failure))
	assert.Equal(t, "error", failure["level"])
	assert.Equal(t, "boom", failure["error"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	require.Error(t, applog.Init("loud", true))
}
