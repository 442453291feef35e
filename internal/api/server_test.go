package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/todo-core/internal/auth"
	"github.com/nerrad567/todo-core/internal/infrastructure/config"
	"github.com/nerrad567/todo-core/internal/infrastructure/database"
	"github.com/nerrad567/todo-core/internal/infrastructure/logging"
	"github.com/nerrad567/todo-core/internal/todo"
	_ "github.com/nerrad567/todo-core/migrations" // registers embedded schema
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// fakePublisher records published events.
type fakePublisher struct {
	mu        sync.Mutex
	topics    []string
	events    []TaskEvent
	err       error
	connected bool
}

func (f *fakePublisher) PublishJSON(topic string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	if ev, ok := v.(TaskEvent); ok {
		f.events = append(f.events, ev)
	}
	return nil
}

func (f *fakePublisher) IsConnected() bool { return f.connected }

func (f *fakePublisher) published() ([]string, []TaskEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...), append([]TaskEvent(nil), f.events...)
}

// testDB opens a temp-file SQLite database with the real schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "api-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

func testDeps(t *testing.T) Deps {
	t.Helper()

	db := testDB(t)
	return Deps{
		Config: &config.Config{
			API: config.APIConfig{
				Host: "127.0.0.1",
				Port: 0,
				Timeouts: config.APITimeoutConfig{
					Read:  5,
					Write: 5,
					Idle:  5,
				},
			},
			Security: config.SecurityConfig{
				JWT:      config.JWTConfig{Secret: testSecret, TokenTTL: 24},
				Password: config.PasswordConfig{BcryptCost: 4},
			},
		},
		Logger:  logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test"),
		Users:   auth.NewUserRepository(db),
		Tasks:   todo.NewRepository(db),
		DB:      db,
		Version: "test",
	}
}

// testServer creates a Server backed by a migrated temp database.
func testServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	return testServerWith(t, testDeps(t))
}

func testServerWith(t *testing.T, deps Deps) (*Server, http.Handler) {
	t.Helper()

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, srv.buildRouter()
}

// do sends a JSON request through router. token is sent as a bearer token
// when non-empty.
func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encoding body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code, message string) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	resp := decode[Error](t, w)
	if resp.Code != code {
		t.Errorf("code = %q, want %q", resp.Code, code)
	}
	if resp.Status != status {
		t.Errorf("body status = %d, want %d", resp.Status, status)
	}
	if message != "" && resp.Message != message {
		t.Errorf("message = %q, want %q", resp.Message, message)
	}
}

// register creates a user and returns the issued token.
func register(t *testing.T, router http.Handler, username, email, password string) authResponse {
	t.Helper()

	w := do(t, router, http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d (body %s)", w.Code, http.StatusCreated, w.Body.String())
	}
	return decode[authResponse](t, w)
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"missing logger", func(d *Deps) { d.Logger = nil }},
		{"missing users", func(d *Deps) { d.Users = nil }},
		{"missing tasks", func(d *Deps) { d.Tasks = nil }},
		{"missing config", func(d *Deps) { d.Config = nil }},
		{"missing secret", func(d *Deps) { d.Config.Security.JWT.Secret = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps(t)
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestNew_DurationsFromConfig(t *testing.T) {
	deps := testDeps(t)
	deps.Config.Security.JWT.TokenTTL = 2
	deps.Config.API.Timeouts = config.APITimeoutConfig{Read: 7, Write: 11, Idle: 13}

	srv, _ := testServerWith(t, deps)

	if srv.tokenTTL != 2*time.Hour {
		t.Errorf("tokenTTL = %v, want 2h", srv.tokenTTL)
	}
	want := serverTimeouts{read: 7 * time.Second, write: 11 * time.Second, idle: 13 * time.Second}
	if srv.timeouts != want {
		t.Errorf("timeouts = %+v, want %+v", srv.timeouts, want)
	}
}

func TestStartAndClose(t *testing.T) {
	srv, _ := testServer(t)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck before Start should fail")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() }) //nolint:errcheck // test cleanup

	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck after Start: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestClose_NotStarted(t *testing.T) {
	srv, _ := testServer(t)
	if err := srv.Close(); err != nil {
		t.Errorf("Close() on unstarted server: %v", err)
	}
	if srv.Addr() != "" {
		t.Errorf("Addr() = %q before Start, want empty", srv.Addr())
	}
}

// ─── Health, Metrics and Middleware ────────────────────────────────

func TestHealth(t *testing.T) {
	_, router := testServer(t)

	w := do(t, router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestMetrics(t *testing.T) {
	deps := testDeps(t)
	deps.Events = &fakePublisher{connected: true}
	_, router := testServerWith(t, deps)

	w := do(t, router, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", w.Code, http.StatusOK)
	}

	m := decode[SystemMetrics](t, w)
	if m.Version != "test" {
		t.Errorf("Version = %q, want test", m.Version)
	}
	if m.Runtime.Goroutines < 1 {
		t.Errorf("Goroutines = %d, want >= 1", m.Runtime.Goroutines)
	}
	if !m.Events.Enabled || !m.Events.Connected {
		t.Errorf("Events = %+v, want enabled and connected", m.Events)
	}
	if m.Database.OpenConnections < 1 {
		t.Errorf("OpenConnections = %d, want >= 1", m.Database.OpenConnections)
	}
}

func TestMetrics_NoEvents(t *testing.T) {
	_, router := testServer(t)

	m := decode[SystemMetrics](t, do(t, router, http.MethodGet, "/metrics", "", nil))
	if m.Events.Enabled {
		t.Error("Events.Enabled = true with no publisher")
	}
}

func TestRequestID_Generated(t *testing.T) {
	_, router := testServer(t)

	w := do(t, router, http.MethodGet, "/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	_, router := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-id-123" {
		t.Errorf("X-Request-ID = %q, want client-id-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	_, router := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/todos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want http://localhost:3000", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	deps := testDeps(t)
	deps.Config.API.CORS.AllowedOrigins = []string{"https://app.example.com"}
	_, router := testServerWith(t, deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for disallowed origin, want empty", got)
	}
}

func TestNotFound(t *testing.T) {
	_, router := testServer(t)

	w := do(t, router, http.MethodGet, "/nonexistent", "", nil)
	assertError(t, w, http.StatusNotFound, ErrCodeNotFound, "")
}

func TestMethodNotAllowed(t *testing.T) {
	_, router := testServer(t)

	w := do(t, router, http.MethodGet, "/register", "", nil)
	assertError(t, w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "")
}

func TestRecovery(t *testing.T) {
	srv, _ := testServer(t)

	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assertError(t, w, http.StatusInternalServerError, ErrCodeInternal, "")
}

func TestBodySizeLimit(t *testing.T) {
	_, router := testServer(t)

	huge := `{"username":"al","email":"a@x.com","password":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	w := do(t, router, http.MethodPost, "/register", "", huge)
	assertError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"abc.def.ghi", "abc.def.ghi"},
		{"Bearer  padded ", "padded"},
		{"bearer abc", "bearer abc"},
		{"Bearer tok extra", "tok extra"},
	}

	for _, tt := range tests {
		if got := bearerToken(tt.header); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

// errUserRepo fails every call.
type errUserRepo struct{}

func (errUserRepo) Create(context.Context, *auth.User) error {
	return errors.New("disk I/O error")
}

func (errUserRepo) GetByEmail(context.Context, string) (*auth.User, error) {
	return nil, errors.New("disk I/O error")
}

// errTaskRepo fails every call.
type errTaskRepo struct{}

var errStorage = errors.New("disk I/O error")

func (errTaskRepo) ListByOwner(context.Context, string) ([]todo.Task, error) { return nil, errStorage }
func (errTaskRepo) Create(context.Context, *todo.Task) error                 { return errStorage }
func (errTaskRepo) GetOwned(context.Context, int64, string) (*todo.Task, error) {
	return nil, errStorage
}
func (errTaskRepo) UpdateCompletion(context.Context, int64, string, bool) error { return errStorage }
func (errTaskRepo) Delete(context.Context, int64, string) error                 { return errStorage }
