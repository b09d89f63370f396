package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/playersync/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidName       = "INVALID_NAME"
	CodeUnknownStat       = "UNKNOWN_STAT"
	CodeNoSkillPoints     = "NO_SKILL_POINTS"
	CodeNotSignedIn       = "NOT_SIGNED_IN"
	CodeNotLoaded         = "PROGRESSION_NOT_LOADED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotInitialized    = "NOT_INITIALIZED"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrInvalidName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidName, "Name must be 1-50 characters without spaces"}}
	case errors.Is(err, model.ErrUnknownStat):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownStat, "Stat must be strength, defense or agility"}}
	case errors.Is(err, model.ErrNotLoaded):
		return &httpError{http.StatusConflict, APIError{CodeNotLoaded, "Progression has not been loaded"}}
	case errors.Is(err, model.ErrInvalidTransition):
		return &httpError{http.StatusConflict, APIError{CodeInvalidTransition, "Operation not valid in the current session state"}}
	case errors.Is(err, model.ErrNotInitialized):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeNotInitialized, "Identity provider not initialized"}}
	case errors.Is(err, model.ErrConnectivity):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeUnavailable, "Storage unavailable"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewNotSignedInError is returned for routes that need a signed-in session
func NewNotSignedInError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeNotSignedIn, "No player is signed in"}}
}

// NewNoSkillPointsError reports a skill point spend with none available
func NewNoSkillPointsError() error {
	return &httpError{http.StatusConflict, APIError{CodeNoSkillPoints, "No skill points available"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
