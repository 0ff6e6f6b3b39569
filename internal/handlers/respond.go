package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/diewo77/go-submittals/httpx"
	"github.com/diewo77/go-submittals/i18n"
	"github.com/diewo77/go-submittals/internal/workflow"
)

// DefaultMaxBody bounds JSON request bodies when a handler is given no limit.
const DefaultMaxBody = 1 << 20

// errorDetails is the "details" object of an error response.
type errorDetails struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeError maps a workflow error to its HTTP status and code. Store and
// sequence causes are logged and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))

	var we *workflow.Error
	if !errors.As(err, &we) {
		log.Printf("[http] %s %s: %v", r.Method, r.URL.Path, err)
		httpx.JSONError(w, http.StatusServiceUnavailable, "try_again", errorDetails{Message: i18n.T(lang, "try_again")})
		return
	}

	switch {
	case errors.Is(we, workflow.ErrValidation):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", errorDetails{
			Message: i18n.T(lang, "validation_failed"),
			Fields:  i18n.Fields(lang, we.Fields),
		})
	case errors.Is(we, workflow.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", errorDetails{Message: we.Message})
	case errors.Is(we, workflow.ErrInvalidReference):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "invalid_reference", errorDetails{Message: we.Message})
	case errors.Is(we, workflow.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "conflict", errorDetails{Message: we.Message})
	default:
		log.Printf("[http] %s %s: %v", r.Method, r.URL.Path, err)
		httpx.JSONError(w, http.StatusServiceUnavailable, "try_again", errorDetails{Message: i18n.T(lang, "try_again")})
	}
}

// writeCode answers with a plain error code translated for the client.
func writeCode(w http.ResponseWriter, r *http.Request, status int, code string) {
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	httpx.JSONError(w, status, code, errorDetails{Message: i18n.T(lang, code)})
}

// decode reads a JSON body, answering 400 or 413 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	if err := httpx.DecodeJSON(w, r, limit, dst); err != nil {
		if errors.Is(err, httpx.ErrTooLarge) {
			writeCode(w, r, http.StatusRequestEntityTooLarge, "payload_too_large")
			return false
		}
		writeCode(w, r, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

// pathID parses a positive numeric path value, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		writeCode(w, r, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return uint(id), true
}
