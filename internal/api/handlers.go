package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"stocktracker/internal/auth"
	"stocktracker/internal/provider"
	"stocktracker/internal/user"
	"stocktracker/internal/watchlist"
)

const failedStockData = "Failed to fetch stock data"

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type addSymbolRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

// trim strips surrounding whitespace from identifying fields. Passwords are
// kept as typed.
func (r *registerRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *loginRequest) trim() { r.Email = strings.TrimSpace(r.Email) }

func (r *addSymbolRequest) trim() { r.Symbol = strings.TrimSpace(r.Symbol) }

type authResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    user.Public `json:"user"`
}

type watchlistResponse struct {
	Message   string   `json:"message"`
	Watchlist []string `json:"watchlist"`
}

type notFoundResponse struct {
	Message         string            `json:"message"`
	Path            string            `json:"path"`
	Method          string            `json:"method"`
	AvailableRoutes map[string]string `json:"availableRoutes"`
}

// decode reads a JSON body into dst and validates its tags. A missing
// required field becomes missing, a bad email becomes errInvalidEmail.
func (s *Server) decode(r *http.Request, dst any, missing error) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errInvalidJSON
	}
	if t, ok := dst.(interface{ trim() }); ok {
		t.trim()
	}
	err := s.validate.Struct(dst)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return missing
		}
	}
	return errInvalidEmail
}

func (s *Server) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Stock Tracker Backend Running"))
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := s.decode(r, &req, auth.ErrMissingFields); err != nil {
			s.fail(w, r, err, "Registration failed")
			return
		}
		token, u, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			s.fail(w, r, err, "Registration failed")
			return
		}
		s.log.InfoContext(r.Context(), "user registered", "user_id", u.ID, "request_id", requestIDFrom(r.Context()))
		writeJSON(w, http.StatusCreated, authResponse{Message: "User registered successfully", Token: token, User: u.Public()})
	}
}

func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := s.decode(r, &req, auth.ErrMissingFields); err != nil {
			s.fail(w, r, err, "Login failed")
			return
		}
		token, u, err := s.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			s.fail(w, r, err, "Login failed")
			return
		}
		writeJSON(w, http.StatusOK, authResponse{Message: "Login successful", Token: token, User: u.Public()})
	}
}

func (s *Server) handleProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.users.ByID(r.Context(), userIDFrom(r.Context()))
		if err != nil {
			s.fail(w, r, err, "Failed to load profile")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Message string    `json:"message"`
			User    user.User `json:"user"`
		}{"Protected route accessed", u})
	}
}

func (s *Server) handleListWatchlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.watchlist.List(r.Context(), userIDFrom(r.Context()))
		if err != nil {
			s.fail(w, r, err, "Failed to load watchlist")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) handleAddWatchlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addSymbolRequest
		if err := s.decode(r, &req, watchlist.ErrSymbolRequired); err != nil {
			s.fail(w, r, err, "Failed to update watchlist")
			return
		}
		list, err := s.watchlist.Add(r.Context(), userIDFrom(r.Context()), req.Symbol)
		if err != nil {
			s.fail(w, r, err, "Failed to update watchlist")
			return
		}
		writeJSON(w, http.StatusOK, watchlistResponse{Message: "Stock added to watchlist", Watchlist: list})
	}
}

func (s *Server) handleRemoveWatchlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.watchlist.Remove(r.Context(), userIDFrom(r.Context()), mux.Vars(r)["symbol"])
		if err != nil {
			s.fail(w, r, err, "Failed to update watchlist")
			return
		}
		writeJSON(w, http.StatusOK, watchlistResponse{Message: "Stock removed from watchlist", Watchlist: list})
	}
}

func (s *Server) handleWatchlistQuotes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.watchlist.List(r.Context(), userIDFrom(r.Context()))
		if err != nil {
			s.fail(w, r, err, "Failed to load watchlist")
			return
		}
		writeJSON(w, http.StatusOK, s.dashboard.Load(r.Context(), list))
	}
}

func (s *Server) handleStock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := provider.NormalizeSymbol(mux.Vars(r)["symbol"])
		ctx := r.Context()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		q, err := s.quotes.Fetch(ctx, symbol)
		if err != nil {
			if errors.Is(err, provider.ErrRateLimitedOrInvalidSymbol) {
				writeJSON(w, http.StatusTooManyRequests, messageBody{Message: "Rate limited. Try again later."})
				return
			}
			s.log.ErrorContext(r.Context(), "stock api error", "symbol", symbol, "err", err, "request_id", requestIDFrom(r.Context()))
			writeJSON(w, http.StatusInternalServerError, messageBody{Message: failedStockData})
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, notFoundResponse{
		Message:         "Route not found",
		Path:            r.URL.Path,
		Method:          r.Method,
		AvailableRoutes: s.availableRoutes(),
	})
}
