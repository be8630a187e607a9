package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tasklist/internal/todo/audit"
	"github.com/aussiebroadwan/tasklist/internal/todo/cache"
	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
	"github.com/aussiebroadwan/tasklist/internal/todo/service"
	"github.com/aussiebroadwan/tasklist/internal/todo/store/drivers/sqlite"
)

// newTestRouter assembles the full stack the way the application does at
// boot: sqlite store, redis cache, audit recorder, services, router.
func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mr := miniredis.RunT(t)
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := cache.NewRedis(cache.Config{URL: "redis://" + mr.Addr()}, discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	rec, err := audit.NewRecorder(filepath.Join(t.TempDir(), "audit.log"), c, discard, 100)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	tokens := &service.TokenService{Secret: []byte("test-secret"), Algorithm: "HS256", TTL: time.Minute}

	r := NewRouter("test", st, c, discard)
	r.TokenService = tokens
	r.AuthService = &service.AuthService{Store: st, Tokens: tokens}
	r.TodoService = &service.ToDoService{Store: st, Cache: c, Audit: rec, CacheTTL: time.Minute}
	r.ApplyRoutes()

	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func signUp(t *testing.T, h http.Handler, email, username, password string) domain.Token {
	t.Helper()

	w := doJSON(t, h, http.MethodPost, "/auth/sign-up", "", map[string]string{
		"email": email, "username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, "sign-up failed: %s", w.Body.String())
	return decodeBody[domain.Token](t, w)
}

func TestSignUp(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	t.Run("returns a usable token", func(t *testing.T) {
		token := signUp(t, r, "alice@example.com", "alice", "s3cret")
		require.NotEmpty(t, token.AccessToken)
		require.Equal(t, "Bearer", token.TokenType)
		require.Equal(t, int64(60), token.ExpiresIn)
	})

	t.Run("duplicate identity is a conflict", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/sign-up", "", map[string]string{
			"email": "alice@example.com", "username": "alice2", "password": "pw",
		})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/sign-up", "", map[string]string{
			"email": "not-an-email", "username": "bob", "password": "pw",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/sign-up", "", map[string]string{
			"email": "bob@example.com",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/sign-up", strings.NewReader("{nope"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSignIn(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)
	signUp(t, r, "carol@example.com", "carol", "hunter2")

	postForm := func(username, password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {username}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("valid credentials", func(t *testing.T) {
		w := postForm("carol", "hunter2")
		require.Equal(t, http.StatusOK, w.Code)

		token := decodeBody[domain.Token](t, w)
		require.NotEmpty(t, token.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postForm("carol", "wrong")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := postForm("nobody", "hunter2")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postForm("carol", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)
	token := signUp(t, r, "dave@example.com", "dave", "pw")

	t.Run("with token", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/auth/user", token.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		user := decodeBody[domain.PublicUser](t, w)
		require.Equal(t, "dave", user.Username)
		require.Equal(t, "dave@example.com", user.Email)
	})

	t.Run("without token", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/auth/user", "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("garbage token", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/auth/user", "garbage", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTodosCRUD(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)
	token := signUp(t, r, "eve@example.com", "eve", "pw")

	var created domain.Item

	t.Run("create", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/todos", token.AccessToken, map[string]any{
			"title": "write tests",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		created = decodeBody[domain.Item](t, w)
		require.Positive(t, created.ID)
		require.Equal(t, "write tests", created.Title)
		require.False(t, created.Completed)
	})

	t.Run("get", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos/"+itoa(created.ID), token.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		item := decodeBody[domain.Item](t, w)
		require.Equal(t, created.ID, item.ID)
	})

	t.Run("list", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos", token.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		items := decodeBody[[]domain.Item](t, w)
		require.Len(t, items, 1)
	})

	t.Run("update", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/todos/"+itoa(created.ID), token.AccessToken, map[string]any{
			"completed": true,
		})
		require.Equal(t, http.StatusOK, w.Code)

		item := decodeBody[domain.Item](t, w)
		require.True(t, item.Completed)
		require.Equal(t, "write tests", item.Title)
	})

	t.Run("list filtered", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos?completed=true", token.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, decodeBody[[]domain.Item](t, w), 1)

		w = doJSON(t, r, http.MethodGet, "/todos?completed=false", token.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, decodeBody[[]domain.Item](t, w))
	})

	t.Run("delete", func(t *testing.T) {
		w := doJSON(t, r, http.MethodDelete, "/todos/"+itoa(created.ID), token.AccessToken, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, r, http.MethodGet, "/todos/"+itoa(created.ID), token.AccessToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTodosValidation(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)
	token := signUp(t, r, "frank@example.com", "frank", "pw")

	t.Run("empty title", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/todos", token.AccessToken, map[string]any{"title": "   "})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("title too long", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/todos", token.AccessToken, map[string]any{
			"title": strings.Repeat("x", maxTitleLength+1),
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad completed filter", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos?completed=maybe", token.AccessToken, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-numeric id reads as absent", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos/abc", token.AccessToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos/99999", token.AccessToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTodosAuthorization(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	alice := signUp(t, r, "alice@example.com", "alice", "pw")
	mallory := signUp(t, r, "mallory@example.com", "mallory", "pw")

	w := doJSON(t, r, http.MethodPost, "/todos", alice.AccessToken, map[string]any{"title": "private"})
	require.Equal(t, http.StatusCreated, w.Code)
	item := decodeBody[domain.Item](t, w)

	t.Run("no token", func(t *testing.T) {
		for _, route := range []struct{ method, path string }{
			{http.MethodGet, "/todos"},
			{http.MethodPost, "/todos"},
			{http.MethodGet, "/todos/" + itoa(item.ID)},
			{http.MethodPut, "/todos/" + itoa(item.ID)},
			{http.MethodDelete, "/todos/" + itoa(item.ID)},
		} {
			w := doJSON(t, r, route.method, route.path, "", nil)
			require.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
		}
	})

	t.Run("foreign-owned item reads as absent", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos/"+itoa(item.ID), mallory.AccessToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		w = doJSON(t, r, http.MethodDelete, "/todos/"+itoa(item.ID), mallory.AccessToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	t.Run("livez", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/livez", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		health := decodeBody[HealthResponse](t, w)
		require.Equal(t, "ok", health.Status)
		require.Equal(t, "test", health.Version)
	})

	t.Run("readyz", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		health := decodeBody[HealthResponse](t, w)
		require.Equal(t, "ok", health.Status)
		require.NotNil(t, health.Checks)
		require.Equal(t, "ok", health.Checks.Database)
	})
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
