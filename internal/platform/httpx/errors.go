package httpx

import (
	"errors"
	"net/http"
)

// Sentinels the domain packages wrap so handlers can fall back to RespondError.
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate entry")
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("service unavailable")
)

// RespondError maps the package sentinels to RFC7807 responses. Unavailable
// errors never leak their detail; anything unrecognised is a bare 500.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "the request could not be completed, please retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsKnown reports whether err maps to a response other than 500.
func IsKnown(err error) bool {
	for _, target := range []error{ErrNotFound, ErrDuplicate, ErrValidation, ErrConflict, ErrUnavailable} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
