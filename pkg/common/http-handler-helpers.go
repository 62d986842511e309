package common

import (
	"errors"
	"log"
	"net/http"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
)

// HttpError carries the status code a handler error should be answered with.
type HttpError struct {
	Status int
	Err    error
}

func (e *HttpError) Error() string {
	return e.Err.Error()
}

func (e *HttpError) Unwrap() error {
	return e.Err
}

func NewHttpError(status int, err error) error {
	return &HttpError{Status: status, Err: err}
}

func BadRequest(err error) error {
	return NewHttpError(http.StatusBadRequest, err)
}

func NotFound(err error) error {
	return NewHttpError(http.StatusNotFound, err)
}

// JsonHandler sets up a JSON response and reports handler errors with their
// status code. Errors without a status are answered with 500.
func JsonHandler(fn func(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		err := fn(w, r, jsoncompat.NewEncoder(w))
		if err == nil {
			return
		}
		status := http.StatusInternalServerError
		var httpErr *HttpError
		if errors.As(err, &httpErr) {
			status = httpErr.Status
		}
		log.Printf("Error handling request %s %s: %v", r.Method, r.URL.Path, err)
		w.WriteHeader(status)
		_ = jsoncompat.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
	}
	w.WriteHeader(http.StatusNoContent)
}
