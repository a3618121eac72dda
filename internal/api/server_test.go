package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/device"
	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
	"github.com/hearthwire/hearth-core/internal/infrastructure/logging"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fakeBridge implements device.Publisher.
type fakeBridge struct {
	mu        sync.Mutex
	connected bool
	published []string
}

func (b *fakeBridge) IsConnected() bool { return b.connected }

func (b *fakeBridge) Publish(topic string, _ []byte, _ byte, _ bool) error {
	b.mu.Lock()
	b.published = append(b.published, topic)
	b.mu.Unlock()
	return nil
}

// memStore implements device.Store in memory.
type memStore struct {
	mu      sync.Mutex
	devices map[string]device.Record
	prefs   map[string]device.PreferenceDocument
}

func newMemStore() *memStore {
	return &memStore{
		devices: make(map[string]device.Record),
		prefs:   make(map[string]device.PreferenceDocument),
	}
}

func (m *memStore) ListDevices(context.Context) ([]device.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]device.Record, 0, len(m.devices))
	for _, rec := range m.devices {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) GetDevice(_ context.Context, id string) (*device.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return &rec, nil
}

func (m *memStore) PutDevice(_ context.Context, rec device.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[rec.DeviceID] = rec
	return nil
}

func (m *memStore) SavePreferences(_ context.Context, doc device.PreferenceDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[doc.UserID] = doc
	return nil
}

func (m *memStore) GetPreferences(_ context.Context, userID string) (*device.PreferenceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.prefs[userID]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return &doc, nil
}

func (m *memStore) HealthCheck(context.Context) error { return nil }

// testEnv bundles a running test server with its collaborators.
type testEnv struct {
	ts     *httptest.Server
	bridge *fakeBridge
	store  *memStore
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`
		CREATE TABLE users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);
		CREATE TABLE activity_log (
			id         TEXT PRIMARY KEY,
			action     TEXT NOT NULL,
			user_id    TEXT,
			device_id  TEXT,
			details    TEXT,
			created_at TEXT NOT NULL
		);
	`); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	gate := auth.NewGate(auth.NewUserRepository(db), testSecret, 60)
	t.Cleanup(gate.Close)

	bridge := &fakeBridge{connected: true}
	store := newMemStore()
	svc := device.NewService(bridge, store, nil, nil, 1)

	server, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: config.APITimeoutConfig{
				Read: 5, Write: 5, Idle: 5,
			},
		},
		Security: config.SecurityConfig{
			Session: config.SessionConfig{Secret: testSecret, TTLMinutes: 60},
		},
		Logger:   logging.Default(),
		Gate:     gate,
		Devices:  svc,
		Activity: audit.NewSQLiteRepository(db),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(server.buildRouter())
	t.Cleanup(ts.Close)

	// Do not follow redirects; tests assert on them.
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{ts: ts, bridge: bridge, store: store, client: client}
}

// signupAndLogin registers a user and returns a valid session token.
func (e *testEnv) signupAndLogin(t *testing.T, username, password string) string {
	t.Helper()

	resp := e.postForm(t, "/signup", url.Values{"username": {username}, "password": {password}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("signup status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	resp = e.postForm(t, "/login", url.Values{"username": {username}, "password": {password}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	t.Fatal("login did not set a session cookie")
	return ""
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.Post(e.ts.URL+path, "application/x-www-form-urlencoded",
		strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

// =============================================================================
// Tests
// =============================================================================

func TestHealthNoAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/devices", "/logout", "/preferences/usr-1"} {
		resp, err := env.client.Get(env.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestEndToEndDeviceControl(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodPost, "/device/light_1", token,
		map[string]string{"status": "on"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["message"] != "Device light_1 turned on" {
		t.Errorf("message = %v", body["message"])
	}
	if body["topic"] != "home/device/light_1" {
		t.Errorf("topic = %v", body["topic"])
	}

	if len(env.bridge.published) != 1 || env.bridge.published[0] != "home/device/light_1" {
		t.Errorf("published topics = %v", env.bridge.published)
	}
}

func TestControlDeviceBridgeDown(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	env.bridge.connected = false

	resp := env.doJSON(t, http.MethodPost, "/device/light_1", token,
		map[string]string{"status": "on"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["error"] != "BridgeUnavailable" {
		t.Errorf("error = %v, want BridgeUnavailable", body["error"])
	}
	if len(env.bridge.published) != 0 {
		t.Error("disconnected bridge received a publish")
	}
}

func TestControlDeviceMissingStatus(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodPost, "/device/light_1", token,
		map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["error"] != "MissingStatus" {
		t.Errorf("error = %v, want MissingStatus", body["error"])
	}
	if len(env.bridge.published) != 0 {
		t.Error("missing status must never publish")
	}
}

func TestSignupDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodPost, "/signup", "",
		map[string]string{"username": "alice", "password": "other"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodPost, "/login", "",
		map[string]string{"username": "alice", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["error"] != "InvalidCredentials" {
		t.Errorf("error = %v, want InvalidCredentials", body["error"])
	}
}

func TestLoginJSONReturnsToken(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodPost, "/login", "",
		map[string]string{"username": "alice", "password": "pw123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("JSON login did not return a token")
	}

	// The returned token works as a bearer credential.
	devResp := env.doJSON(t, http.MethodGet, "/devices", token, nil)
	devResp.Body.Close()
	if devResp.StatusCode != http.StatusOK {
		t.Errorf("GET /devices with token status = %d, want 200", devResp.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodGet, "/logout", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	after := env.doJSON(t, http.MethodGet, "/devices", token, nil)
	defer after.Body.Close()
	if after.StatusCode != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want 401", after.StatusCode)
	}
}

func TestListDevices(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	env.store.devices["light_1"] = device.Record{DeviceID: "light_1", Status: "on"}

	resp := env.doJSON(t, http.MethodGet, "/devices", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodPost, "/preferences", token, map[string]any{
		"user_id":     "usr-1",
		"preferences": map[string]any{"theme": "dark"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["message"] != "Preferences saved" {
		t.Errorf("message = %v", body["message"])
	}

	getResp := env.doJSON(t, http.MethodGet, "/preferences/usr-1", token, nil)
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", getResp.StatusCode)
	}
	doc := decodeBody(t, getResp)
	prefs, _ := doc["preferences"].(map[string]any)
	if prefs["theme"] != "dark" {
		t.Errorf("preferences = %v", doc)
	}
}

func TestActivityLogRecordsActions(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodPost, "/device/light_1", token,
		map[string]string{"status": "on"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("control status = %d, want 200", resp.StatusCode)
	}

	listResp := env.doJSON(t, http.MethodGet, "/activity", token, nil)
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /activity status = %d, want 200", listResp.StatusCode)
	}
	body := decodeBody(t, listResp)

	// signup + login + command
	if body["total"] != float64(3) {
		t.Errorf("total = %v, want 3", body["total"])
	}

	cmdResp := env.doJSON(t, http.MethodGet, "/activity?action=command", token, nil)
	if cmdResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /activity?action=command status = %d, want 200", cmdResp.StatusCode)
	}
	cmdBody := decodeBody(t, cmdResp)
	entries, _ := cmdBody["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("command entries = %d, want 1", len(entries))
	}
	entry, _ := entries[0].(map[string]any)
	if entry["device_id"] != "light_1" {
		t.Errorf("device_id = %v, want light_1", entry["device_id"])
	}
	details, _ := entry["details"].(map[string]any)
	if details["status"] != "on" {
		t.Errorf("details = %v", entry["details"])
	}
}

func TestActivityLogFilterByAction(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodGet, "/activity?action=login", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["total"] != float64(1) {
		t.Errorf("total = %v, want 1", body["total"])
	}
}

func TestPreferencesValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodPost, "/preferences", token, map[string]any{
		"user_id": "usr-1",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing preferences status = %d, want 400", resp.StatusCode)
	}
}
