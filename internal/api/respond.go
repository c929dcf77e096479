package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"stocktracker/internal/auth"
	"stocktracker/internal/provider"
	"stocktracker/internal/user"
	"stocktracker/internal/watchlist"
)

var (
	errInvalidJSON  = errors.New("invalid JSON body")
	errInvalidEmail = errors.New("invalid email address")
)

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// errorStatus maps a service error to the HTTP status and client message.
// fallback is the message used for 500s.
func errorStatus(err error, fallback string) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return http.StatusBadRequest, "All fields are required"
	case errors.Is(err, errInvalidEmail):
		return http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest, "Invalid JSON body"
	case errors.Is(err, auth.ErrEmailAlreadyRegistered):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, watchlist.ErrSymbolRequired):
		return http.StatusBadRequest, "Stock symbol is required"
	case errors.Is(err, watchlist.ErrDuplicateSymbol):
		return http.StatusBadRequest, "Stock already in watchlist"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, user.ErrNotFound):
		// a valid token whose user no longer exists
		return http.StatusUnauthorized, "Not authorized"
	case errors.Is(err, provider.ErrRateLimitedOrInvalidSymbol):
		return http.StatusTooManyRequests, "Rate limited. Try again later."
	default:
		return http.StatusInternalServerError, fallback
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := errorStatus(err, fallback)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "err", err, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()))
	} else {
		s.log.DebugContext(r.Context(), "request rejected", "err", err, "status", status, "request_id", requestIDFrom(r.Context()))
	}
	writeJSON(w, status, messageBody{Message: msg})
}
