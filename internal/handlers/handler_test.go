// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"porteiro/internal/cache"
	"porteiro/internal/database"
	"porteiro/internal/middleware"
	"porteiro/internal/models"
	"porteiro/internal/render"
	"porteiro/internal/session"
	"porteiro/internal/sitemode"
	"porteiro/internal/store"
)

// testSiteID scopes handler test data away from the default site.
const testSiteID = "handlers-test"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "porteiro")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "porteiro")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session, page and settings cache keys.
		for _, pattern := range []string{"session:*", "page:*", "settings:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB         *sql.DB
	Valkey     *redis.Client
	Renderer   *render.Renderer
	Sessions   *session.Store
	PageStore  *store.PageStore
	UserStore  *store.UserStore
	Settings   *store.SettingStore
	GateEvents *store.GateEventStore
	Modes      *sitemode.Service
	PageCache  *cache.PageCache
	Admin      *Admin
	Auth       *Auth
	Public     *Public
	API        *API
	Jobs       *Jobs
}

// newTestEnv creates a complete test environment with all handler dependencies.
// The gate settings of the test site are wiped before and after each test so
// every test starts from the lowered-gate defaults.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	renderer, err := render.New("Porteiro")
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	sessions := session.NewStore(vk, false)
	pageStore := store.NewPageStore(db)
	userStore := store.NewUserStore(db)
	settingStore := store.NewSettingStore(db)
	gateEvents := store.NewGateEventStore(db)
	settingCache := cache.NewSettingCache(vk, settingStore, time.Second)
	modes := sitemode.NewService(settingCache)
	pageCache := cache.NewPageCache(vk, 1*time.Minute)

	admin := NewAdmin(renderer, sessions, pageStore, userStore, gateEvents, modes, pageCache, testSiteID)
	auth := NewAuth(renderer, sessions, userStore)
	public := NewPublic(renderer, pageStore, pageCache, testSiteID)
	api := NewAPI(modes, pageStore, testSiteID)
	jobs := NewJobs(pageStore, pageCache, "test-job-token")

	cleanSettings(t, db)
	t.Cleanup(func() { cleanSettings(t, db) })

	return &testEnv{
		DB:         db,
		Valkey:     vk,
		Renderer:   renderer,
		Sessions:   sessions,
		PageStore:  pageStore,
		UserStore:  userStore,
		Settings:   settingStore,
		GateEvents: gateEvents,
		Modes:      modes,
		PageCache:  pageCache,
		Admin:      admin,
		Auth:       auth,
		Public:     public,
		API:        api,
		Jobs:       jobs,
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// testSession creates a session.Data for testing.
func testSession(userID uuid.UUID, email, role string, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      userID,
		Email:       email,
		DisplayName: "Test User",
		Role:        role,
		TwoFADone:   twoFADone,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withChiURLParamAndSession adds both chi URL param and session to a request.
func withChiURLParamAndSession(r *http.Request, key, value string, sess *session.Data) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.SessionKey, sess)
	return r.WithContext(ctx)
}

// testAuthorID returns the ID of the shared test author, creating it on
// first use.
func testAuthorID(t *testing.T, userStore *store.UserStore) uuid.UUID {
	t.Helper()
	u, err := userStore.FindByEmail("author@porteiro.test")
	if err != nil {
		t.Fatalf("find test author: %v", err)
	}
	if u == nil {
		u, err = userStore.Create("author@porteiro.test", "test-password-123", "Test Author", models.RoleEditor)
		if err != nil {
			t.Fatalf("create test author: %v", err)
		}
	}
	return u.ID
}

// cleanPages removes test pages by slug.
func cleanPages(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for _, s := range slugs {
		db.Exec("DELETE FROM pages WHERE site_id = $1 AND slug = $2", testSiteID, s)
	}
}

// cleanSettings removes the gate settings rows for the test site.
func cleanSettings(t *testing.T, db *sql.DB) {
	t.Helper()
	db.Exec("DELETE FROM site_settings WHERE site_id = $1", testSiteID)
}

// cleanUsers removes test users by email.
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, e := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", e)
	}
}
