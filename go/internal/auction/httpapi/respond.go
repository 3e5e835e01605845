package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcdev12/auctionhouse/go/internal/auction/engine"
	"github.com/rs/zerolog/log"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// RespondError sends an {"error": message} response
func RespondError(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, map[string]string{"error": message})
}

// RespondEngineError maps an engine error to its HTTP status.
func RespondEngineError(w http.ResponseWriter, err error) {
	RespondError(w, StatusFor(err), err.Error())
}

// StatusFor returns the HTTP status for an engine error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidConfiguration), errors.Is(err, engine.ErrInvalidBidder):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotStarted), errors.Is(err, engine.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, engine.ErrBidTooLow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrStopped), errors.Is(err, engine.ErrCollaboratorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads the request body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
