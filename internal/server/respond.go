package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nextlevelbuilder/hackhero/internal/ingest"
	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes. Ingest failure kinds
// carry their own codes; provider outages surface as bad gateway.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrOversize):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingest.ErrUnsupportedMime):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ingest.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ingest.ErrTooManyRedirects),
		errors.Is(err, ingest.ErrNetwork),
		errors.Is(err, ingest.ErrDecode):
		return http.StatusBadGateway
	case providers.IsUnavailable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
