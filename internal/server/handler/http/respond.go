package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/service"
)

// maxBody bounds JSON request bodies, backups included.
const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(dst); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case service.IsValidation(err), errors.Is(err, service.ErrInvalidBackup):
		return http.StatusBadRequest
	case service.IsUnauthenticated(err):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicate), errors.Is(err, service.ErrNotSelectable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError answers with the status of err. Internal errors are not echoed.
func writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusUnauthorized:
		msg = "unauthenticated"
	case http.StatusForbidden:
		msg = "forbidden"
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		msg = "invalid credentials"
	}
	http.Error(w, msg, code)
}

func sessionOf(r *http.Request) access.Session {
	s, _ := access.FromContext(r.Context())
	return s
}
