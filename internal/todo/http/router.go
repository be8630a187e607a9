package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/todo/cache"
	"github.com/aussiebroadwan/tasklist/internal/todo/service"
	"github.com/aussiebroadwan/tasklist/internal/todo/store"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	cache        cache.Cache

	TokenService *service.TokenService
	AuthService  *service.AuthService
	TodoService  *service.ToDoService
}

func NewRouter(buildVersion string, st store.Store, c cache.Cache, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cache:        c,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTodos()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /auth/sign-up", http.HandlerFunc(h.HandleSignUp))
	r.Mux.Handle("POST /auth/sign-in", http.HandlerFunc(h.HandleSignIn))
	r.Mux.Handle("GET /auth/user",
		httpx.Chain(http.HandlerFunc(h.HandleCurrentUser),
			RequireAuth(r.TokenService),
		),
	)
}

func (r *Router) registerTodos() {
	h := &TodosHandler{TodoService: r.TodoService}
	authn := RequireAuth(r.TokenService)

	r.Mux.Handle("GET /todos", httpx.Chain(http.HandlerFunc(h.HandleList), authn))
	r.Mux.Handle("POST /todos", httpx.Chain(http.HandlerFunc(h.HandleCreate), authn))
	r.Mux.Handle("GET /todos/{id}", httpx.Chain(http.HandlerFunc(h.HandleGet), authn))
	r.Mux.Handle("PUT /todos/{id}", httpx.Chain(http.HandlerFunc(h.HandleUpdate), authn))
	r.Mux.Handle("DELETE /todos/{id}", httpx.Chain(http.HandlerFunc(h.HandleDelete), authn))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache))
}
