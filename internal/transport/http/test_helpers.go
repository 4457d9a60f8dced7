package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Beds-2-Bytes/backend/internal/auth"
	"github.com/Beds-2-Bytes/backend/internal/config"
	"github.com/Beds-2-Bytes/backend/internal/relay"
	"github.com/Beds-2-Bytes/backend/internal/store"
	"github.com/Beds-2-Bytes/backend/internal/store/sqlite"
)

// testEnv bundles a running server with the pieces tests poke at directly.
type testEnv struct {
	ts          *httptest.Server
	registry    *relay.Registry
	engine      *relay.Engine
	authService *auth.Service
	store       store.Store
	jwtConfig   *auth.JWTConfig
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newTestEnv starts a full server over an in-memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := createTestStore(t)

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      2 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	logger := zerolog.Nop()
	registry := relay.NewRegistry()
	engine := relay.NewEngine(registry, &logger)

	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		UploadDir:         t.TempDir(),
		WSSendTimeout:     time.Second,
	}

	server := NewServer(engine, authService, st, cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:          ts,
		registry:    registry,
		engine:      engine,
		authService: authService,
		store:       st,
		jwtConfig:   jwtConfig,
	}
}

// makeToken issues a token the way the auth service would for a known user.
func makeToken(t *testing.T, env *testEnv, username string) string {
	t.Helper()

	token, err := auth.GenerateToken(env.jwtConfig, 1, username, string(store.RoleStudent))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// makeTokenWithConfig issues a token under an arbitrary JWT config.
func makeTokenWithConfig(t *testing.T, cfg *auth.JWTConfig, username string) string {
	t.Helper()

	token, err := auth.GenerateToken(cfg, 1, username, string(store.RoleStudent))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// waitForHandleChange polls until the handle registered for user differs from old.
func waitForHandleChange(t *testing.T, env *testEnv, room, user string, old relay.Handle) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, m := range env.registry.Snapshot(room) {
			if m.UserID == user && m.Handle != old {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("handle for %q in room %q never changed", user, room)
}

// waitForMembers polls the registry until the room reaches the wanted size.
func waitForMembers(t *testing.T, env *testEnv, room string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.registry.Members(room) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %q never reached %d members (has %d)", room, want, env.registry.Members(room))
}
