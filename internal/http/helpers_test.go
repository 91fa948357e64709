package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"garagehub/internal/config"
	"garagehub/internal/events"
	apphttp "garagehub/internal/http"
	"garagehub/internal/http/handlers"
	applog "garagehub/internal/log"
	"garagehub/internal/repos"
)

// Seeded accounts (see repos.seedUsers).
const (
	garageID   = "u-garage"
	acmeID     = "u-acme"
	boltID     = "u-bolt"
	garageMail = "garage@garagehub.test"
	password   = "Passw0rd!"
)

type testEnv struct {
	app   *fiber.App
	db    *sqlx.DB
	users *repos.UserRepo
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		DBDSN:          ":memory:",
		TemplatesDir:   "../../web/templates",
		StaticDir:      "../../web/static",
		Organization:   "Main Street Garage",
		LoginRateLimit: 100,
	}
}

// newTestEnv boots the full application on an in-memory database.
func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, f := range tweak {
		f(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	deps := handlers.NewDeps(db, cfg, events.Noop{})
	return &testEnv{app: apphttp.NewApp(cfg, deps), db: db, users: repos.NewUserRepo(db)}
}

// session binds a fresh session id to the user, skipping the login form.
func (e *testEnv) session(t *testing.T, userID string) string {
	t.Helper()
	sid := "sid-" + userID
	require.NoError(t, e.users.BindSession(sid, userID))
	return sid
}

func (e *testEnv) send(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// api issues a JSON request. body may be nil, a string (sent raw) or any
// value to marshal.
func (e *testEnv) api(t *testing.T, method, path, sid string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp := e.send(t, req)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// csrfToken fetches the login page to obtain a token cookie.
func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	resp := e.send(t, httptest.NewRequest("GET", "/login", nil))
	tok := extractCookie(resp, "csrf_")
	require.NotEmpty(t, tok, "csrf token missing")
	return tok
}

// form posts url-encoded values the way the browser pages do. An empty
// csrf skips the token entirely.
func (e *testEnv) form(t *testing.T, path, sid, csrf string, vals url.Values) (*http.Response, string) {
	t.Helper()
	if csrf != "" {
		vals.Set("csrf", csrf)
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if csrf != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrf})
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp := e.send(t, req)
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) page(t *testing.T, path, sid string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp := e.send(t, req)
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.buf.Write(p)
}

// captureLogs routes the application logger into a buffer while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	w := &lockedWriter{}
	restore := applog.SetOutput(w)
	defer restore()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(w.buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
