package api

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/device"
	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
	"github.com/hearthwire/hearth-core/internal/infrastructure/logging"
)

// newDegradedEnv builds a server running without a device state store,
// the mode Hearth falls into when AWS configuration is incomplete.
func newDegradedEnv(t *testing.T) *testEnv {
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
	`); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	gate := auth.NewGate(auth.NewUserRepository(db), testSecret, 60)
	t.Cleanup(gate.Close)

	bridge := &fakeBridge{connected: true}
	svc := device.NewService(bridge, nil, nil, nil, 1)

	server, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     8080,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Security: config.SecurityConfig{
			Session: config.SessionConfig{Secret: testSecret, TTLMinutes: 60},
		},
		Logger:  logging.Default(),
		Gate:    gate,
		Devices: svc,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(server.buildRouter())
	t.Cleanup(ts.Close)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{ts: ts, bridge: bridge, client: client}
}

func TestDegradedStoreListDevices(t *testing.T) {
	env := newDegradedEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	resp := env.doJSON(t, http.MethodGet, "/devices", token, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["error"] != "StoreUnavailable" {
		t.Errorf("error = %v, want StoreUnavailable", body["error"])
	}
}

func TestDegradedStoreCommandsStillWork(t *testing.T) {
	env := newDegradedEnv(t)
	token := env.signupAndLogin(t, "alice", "pw123")

	// Command routing has no store dependency; it must keep working.
	resp := env.doJSON(t, http.MethodPost, "/device/light_1", token,
		map[string]string{"status": "on"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
