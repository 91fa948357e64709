package http_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagehub/internal/domain"
)

func TestAuthLogging(t *testing.T) {
	env := newTestEnv(t)
	tok := env.csrfToken(t)

	run := func(email, pass string) []logEntry {
		return captureLogs(t, func() {
			_, _ = env.form(t, "/login", "", tok, url.Values{"email": {email}, "password": {pass}})
		})
	}

	fail, ok := findLog(run(garageMail, "Badpass1!"), "auth.login.fail")
	require.True(t, ok, "auth.login.fail log not found")
	assert.Equal(t, "security", fail.Kind)
	assert.Equal(t, garageMail, fail.Fields["email"])
	assert.Equal(t, "bad_credentials", fail.Fields["reason"])

	bad, ok := findLog(run("not-an-email", password), "auth.login.fail")
	require.True(t, ok)
	assert.Equal(t, "bad_format", bad.Fields["reason"])

	success, ok := findLog(run(garageMail, password), "auth.login.success")
	require.True(t, ok, "auth.login.success log not found")
	assert.Equal(t, "audit", success.Kind)
	assert.Equal(t, garageMail, success.Fields["email"])
	assert.Equal(t, domain.RoleGarage, success.Fields["role"])
}

func TestMutationAuditLogs(t *testing.T) {
	env := newTestEnv(t)
	garage := env.session(t, garageID)
	acme := env.session(t, acmeID)

	var reqID, quoteID string
	entries := captureLogs(t, func() {
		_, body := env.api(t, "POST", "/api/v1/requests", garage, map[string]any{
			"partId": "p-brake-pads", "quantity": 1, "urgency": "high", "neededBy": "2030-01-01",
		})
		reqID = decode[domain.PartRequest](t, body).ID
		_, body = env.api(t, "POST", "/api/v1/requests/"+reqID+"/quotes", acme, map[string]any{"unitPrice": "40"})
		quoteID = decode[domain.PartQuote](t, body).ID
		_, _ = env.api(t, "POST", "/api/v1/quotes/"+quoteID+"/accept", garage, nil)
		_, _ = env.api(t, "POST", "/api/v1/quotes/"+quoteID+"/reject", garage, nil)
	})

	created, ok := findLog(entries, "request.create")
	require.True(t, ok)
	assert.Equal(t, reqID, created.Fields["request_id"])

	submitted, ok := findLog(entries, "quote.submit")
	require.True(t, ok)
	assert.Equal(t, "40.00", submitted.Fields["total"])

	accepted, ok := findLog(entries, "quote.accept")
	require.True(t, ok)
	assert.Equal(t, quoteID, accepted.Fields["quote_id"])

	// rejecting the accepted quote is refused and logged as such
	refused, ok := findLog(entries, "quote.reject.rejected")
	require.True(t, ok)
	assert.Equal(t, "info", refused.Level)
}
