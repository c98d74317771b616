package handler

import (
	"errors"
	"net/http"
)

var ErrForbidden = errors.New("forbidden: drivers may only act on their own account")

// ErrorResponse writes {"error": message}. The middleware chain shares it so
// every rejection has the same shape.
func ErrorResponse(w http.ResponseWriter, status int, message any) {
	if err := writeJSON(w, status, envelope{"error": message}, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
// The request was well-formed but its values can not be processed; repeating
// it without modification will fail the same way.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	ErrorResponse(w, http.StatusUnprocessableEntity, errors)
}

// badRequestResponse returns 400 BadRequest status
func badRequestResponse(w http.ResponseWriter, message any) {
	ErrorResponse(w, http.StatusBadRequest, message)
}

func serviceErrorResponse(w http.ResponseWriter, err error) {
	ErrorResponse(w, GetCode(err), errorMessage(err))
}

// internalErrorResponse returns 500 InternalServerError status
func internalErrorResponse(w http.ResponseWriter, message any) {
	ErrorResponse(w, http.StatusInternalServerError, message)
}
