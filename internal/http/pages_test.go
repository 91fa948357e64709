package http_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagehub/internal/domain"
)

func TestPartFormsNeedCSRF(t *testing.T) {
	env := newTestEnv(t)
	sid := env.session(t, garageID)

	vals := url.Values{"name": {"Timing belt"}, "quantity": {"4"}, "minQuantity": {"1"}, "unitPrice": {"55.00"}}
	resp, _ := env.form(t, "/parts", sid, "", vals)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.form(t, "/parts", sid, env.csrfToken(t), vals)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/parts", resp.Header.Get("Location"))

	resp, body := env.page(t, "/parts", sid)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Timing belt")
}

func TestStockEditFromInventoryPage(t *testing.T) {
	env := newTestEnv(t)
	sid := env.session(t, garageID)
	tok := env.csrfToken(t)

	resp, _ := env.form(t, "/parts/p-oil-filter", sid, tok, url.Values{"quantity": {"12"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, body := env.api(t, "GET", "/api/v1/parts/p-oil-filter", sid, nil)
	p := decode[domain.Part](t, body)
	assert.Equal(t, 12, p.Quantity)
	assert.Equal(t, 5, p.MinQuantity)
	assert.Equal(t, domain.PartInStock, p.Status)

	resp, _ = env.form(t, "/parts/p-oil-filter", sid, tok, url.Values{"quantity": {"-3"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.form(t, "/parts/missing", sid, tok, url.Values{"quantity": {"1"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// suppliers cannot edit stock
	resp, _ = env.form(t, "/parts/p-oil-filter", env.session(t, acmeID), tok, url.Values{"quantity": {"0"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestQuoteReviewPages(t *testing.T) {
	env := newTestEnv(t)
	garage := env.session(t, garageID)
	acme := env.session(t, acmeID)
	bolt := env.session(t, boltID)
	tok := env.csrfToken(t)

	resp, _ := env.form(t, "/requests", garage, tok, url.Values{
		"partId": {"p-brake-pads"}, "quantity": {"2"}, "urgency": {"high"},
		"maxPrice": {"30"}, "neededBy": {"2030-01-15"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/requests/"), loc)
	requestID := strings.TrimPrefix(loc, "/requests/")

	resp, _ = env.form(t, loc+"/quotes", acme, tok, url.Values{"unitPrice": {"42.00"}, "deliveryTime": {"2 days"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp, _ = env.form(t, loc+"/quotes", bolt, tok, url.Values{"unitPrice": {"22.50"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp, body := env.page(t, "/requests", garage)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "quotes available")

	resp, body = env.page(t, loc, garage)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Acme Parts Co")
	assert.Contains(t, body, "Bolt Supply Ltd")
	assert.Contains(t, body, "84.00")
	assert.Equal(t, 1, strings.Count(body, "over budget"), "only the 84.00 quote exceeds 2 x 30")

	resp, body = env.page(t, "/parts", garage)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "2 quotes available")

	req, err := env.quoteIDs(requestID)
	require.NoError(t, err)
	resp, _ = env.form(t, "/quotes/"+req["Bolt Supply Ltd"]+"/accept", garage, tok, url.Values{})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, loc, resp.Header.Get("Location"))

	_, body = env.page(t, "/requests", garage)
	assert.NotContains(t, body, "quotes available", "no pending quotes remain after accept")

	// accepting a second one is a conflict shown on the error page
	resp, body = env.form(t, "/quotes/"+req["Acme Parts Co"]+"/accept", garage, tok, url.Values{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "Oops")

	resp, body = env.page(t, "/activity", garage)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Acme Parts")
}

// quoteIDs maps supplier name to quote id for a request.
func (e *testEnv) quoteIDs(requestID string) (map[string]string, error) {
	rows := []struct {
		ID   string `db:"id"`
		Name string `db:"supplier_name"`
	}{}
	if err := e.db.Select(&rows, `SELECT id, supplier_name FROM part_quotes WHERE request_id = ?`, requestID); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, r := range rows {
		out[r.Name] = r.ID
	}
	return out, nil
}

func TestTemplateAutoEscape(t *testing.T) {
	env := newTestEnv(t)
	sid := env.session(t, garageID)

	resp, body := env.api(t, "POST", "/api/v1/parts", sid, map[string]any{
		"name": "<script>alert(1)</script>", "quantity": 1, "unitPrice": "1.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	_, page := env.page(t, "/parts", sid)
	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.Contains(t, page, "&lt;script&gt;alert(1)&lt;/script&gt;")
}
