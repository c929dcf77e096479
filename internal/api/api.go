// Package api exposes the auth, watchlist and quote services over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"stocktracker/internal/auth"
	"stocktracker/internal/dashboard"
	"stocktracker/internal/provider"
	"stocktracker/internal/user"
	"stocktracker/internal/watchlist"
)

// Deps are the services the handlers call.
type Deps struct {
	Auth      *auth.Service
	Users     user.Store
	Watchlist *watchlist.Service
	// Quotes is the cached, rate limited fetcher chain.
	Quotes    provider.Fetcher
	Dashboard *dashboard.Loader
	Logger    *slog.Logger
	// RequestTimeout bounds a single upstream quote lookup. Zero disables it.
	RequestTimeout time.Duration
}

type Server struct {
	auth      *auth.Service
	users     user.Store
	watchlist *watchlist.Service
	quotes    provider.Fetcher
	dashboard *dashboard.Loader
	log       *slog.Logger
	timeout   time.Duration
	validate  *validator.Validate
	routes    []route
}

type route struct {
	name    string
	method  string
	path    string
	private bool
	handler func(*Server) http.HandlerFunc
}

var routeTable = []route{
	{"root", http.MethodGet, "/", false, (*Server).handleRoot},
	{"health", http.MethodGet, "/healthz", false, (*Server).handleHealth},
	{"register", http.MethodPost, "/api/auth/register", false, (*Server).handleRegister},
	{"login", http.MethodPost, "/api/auth/login", false, (*Server).handleLogin},
	{"profile", http.MethodGet, "/api/protected/profile", true, (*Server).handleProfile},
	{"watchlist", http.MethodGet, "/api/watchlist", true, (*Server).handleListWatchlist},
	{"watchlistAdd", http.MethodPost, "/api/watchlist", true, (*Server).handleAddWatchlist},
	{"watchlistQuotes", http.MethodGet, "/api/watchlist/quotes", true, (*Server).handleWatchlistQuotes},
	{"watchlistRemove", http.MethodDelete, "/api/watchlist/{symbol}", true, (*Server).handleRemoveWatchlist},
	{"stock", http.MethodGet, "/api/stocks/{symbol}", true, (*Server).handleStock},
}

func New(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	loader := d.Dashboard
	if loader == nil {
		loader = &dashboard.Loader{F: d.Quotes, Timeout: d.RequestTimeout, Logger: log}
	}
	return &Server{
		auth:      d.Auth,
		users:     d.Users,
		watchlist: d.Watchlist,
		quotes:    d.Quotes,
		dashboard: loader,
		log:       log,
		timeout:   d.RequestTimeout,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		routes:    routeTable,
	}
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	for _, rt := range s.routes {
		h := rt.handler(s)
		if rt.private {
			h = s.requireUser(h)
		}
		r.HandleFunc(rt.path, h).Methods(rt.method).Name(rt.name)
	}
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)

	var h http.Handler = r
	h = trimTrailingSlash(h)
	h = limitBody(h)
	h = recoverPanic(s.log, h)
	h = withGzip(h)
	h = withCORS(h)
	h = accessLog(s.log, h)
	h = withRequestID(h)
	return h
}

func (s *Server) availableRoutes() map[string]string {
	out := make(map[string]string, len(s.routes))
	for _, rt := range s.routes {
		out[rt.name] = rt.method + " " + rt.path
	}
	return out
}
