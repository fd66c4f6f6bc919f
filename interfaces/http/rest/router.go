package rest

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/serializer"
	"github.com/umeboshi2/kotti-jsonapi/application/site"
	"github.com/umeboshi2/kotti-jsonapi/interfaces/http/rest/handlers"
	"github.com/umeboshi2/kotti-jsonapi/interfaces/http/rest/middleware"
	"github.com/umeboshi2/kotti-jsonapi/pkg/auth"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
	"github.com/umeboshi2/kotti-jsonapi/pkg/observability"
)

// Options configures the router's middleware.
type Options struct {
	AllowedOrigins []string
	SessionTTL     time.Duration
	SecureCookies  bool
	EnableTracing  bool
}

// Router creates and configures the HTTP router
type Router struct {
	env       *handlers.Env
	validator middleware.TokenValidator
	limiter   auth.RateLimiter
	collector *observability.Collector
	opts      Options
	logger    *zap.Logger
	views     map[string]view
}

// view is one "@@name" entry point.
type view struct {
	methods map[string]handlers.ViewFunc
	// negotiate requires the client to accept the JSON:API media type.
	negotiate bool
}

// NewRouter creates a new router instance. validator, limiter and collector
// are optional.
func NewRouter(
	env *handlers.Env,
	validator middleware.TokenValidator,
	limiter auth.RateLimiter,
	collector *observability.Collector,
	opts Options,
	logger *zap.Logger,
) *Router {
	rt := &Router{
		env:       env,
		validator: validator,
		limiter:   limiter,
		collector: collector,
		opts:      opts,
		logger:    logger,
	}

	jsonapi := handlers.NewJSONAPIHandler(env)
	contents := handlers.NewContentsHandler(env)
	users := handlers.NewUsersHandler(env)
	rt.views = map[string]view{
		"json": {
			negotiate: true,
			methods: map[string]handlers.ViewFunc{
				http.MethodGet:    jsonapi.Get,
				http.MethodPost:   jsonapi.Post,
				http.MethodPatch:  jsonapi.Patch,
				http.MethodPut:    jsonapi.Put,
				http.MethodDelete: jsonapi.Delete,
			},
		},
		"contents-json": {
			negotiate: true,
			methods:   map[string]handlers.ViewFunc{http.MethodGet: contents.List},
		},
		"up-json":              {methods: map[string]handlers.ViewFunc{http.MethodPost: contents.Up}},
		"down-json":            {methods: map[string]handlers.ViewFunc{http.MethodPost: contents.Down}},
		"workflow-change-json": {methods: map[string]handlers.ViewFunc{http.MethodPost: contents.ChangeState}},
		"copyjson":             {methods: map[string]handlers.ViewFunc{http.MethodPost: contents.Copy}},
		"setup-users-json": {
			methods: map[string]handlers.ViewFunc{
				http.MethodGet:  users.List,
				http.MethodPost: users.Apply,
			},
		},
	}
	return rt
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.EnableTracing {
		router.Use(middleware.Tracing())
	}
	if rt.collector != nil {
		router.Use(middleware.Metrics(rt.collector))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}

	router.Group(func(r chi.Router) {
		if rt.limiter != nil {
			r.Use(middleware.RateLimit(rt.limiter, rt.env.Errors))
		}
		r.Use(middleware.Session(rt.opts.SessionTTL, rt.opts.SecureCookies))
		r.Use(middleware.Authenticate(rt.validator, rt.env.Principals, rt.env.Errors, rt.logger))
		r.HandleFunc("/*", rt.traverse)
	})

	return router
}

// splitView separates "/a/b/@@json" into the node path "/a/b/" and the view
// name "json". A path without a view addresses the json view.
func splitView(urlPath string) (string, string) {
	if i := strings.LastIndex(urlPath, "@@"); i >= 0 && (i == 0 || urlPath[i-1] == '/') {
		return urlPath[:i], strings.TrimSuffix(urlPath[i+2:], "/")
	}
	return urlPath, "json"
}

// traverse resolves the view named by the URL and dispatches on the verb.
func (rt *Router) traverse(w http.ResponseWriter, r *http.Request) {
	path, name := splitView(r.URL.Path)
	v, ok := rt.views[name]
	if !ok {
		rt.env.Errors.Handle(w, r, pkgerrors.NewNotFoundError("view "+name))
		return
	}
	fn, ok := v.methods[r.Method]
	if !ok {
		w.Header().Set("Allow", strings.Join(v.allowed(), ", "))
		rt.env.Errors.Handle(w, r, pkgerrors.NewMethodNotAllowedError(r.Method))
		return
	}
	if v.negotiate && !middleware.Accepts(r, serializer.MediaType) {
		rt.env.Errors.Handle(w, r, pkgerrors.NewNotAcceptableError(serializer.MediaType))
		return
	}
	fn(w, r, handlers.Target{Path: path, View: name})
}

func (v view) allowed() []string {
	out := make([]string, 0, len(v.methods))
	for m := range v.methods {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready once the content tree can be read.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := rt.env.Site.View(r.Context(), func(tx *site.Tx) error {
		if tx.Root() == nil {
			return pkgerrors.NewUnavailableError("content", nil)
		}
		return nil
	}); err != nil {
		rt.env.Errors.Handle(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
