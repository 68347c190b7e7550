// Package http provides the JSON API server and its handlers.
//
// This file maps service errors to status codes and writes JSON bodies.
// Every error leaves the API as {"message": "..."}.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finpilot/internal/auth"
	"finpilot/internal/core"
	"finpilot/internal/log"
	"finpilot/internal/services"
	"finpilot/internal/store"
)

const genericServerError = "Something went wrong, please try again later"

// errMalformedBody marks a request body that could not be decoded.
var errMalformedBody = errors.New("malformed request body")

var badRequestErrors = []error{
	errMalformedBody,
	core.ErrInvalidType,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrMissingDate,
	core.ErrInvalidDate,
	core.ErrMissingUser,
	core.ErrInvalidYear,
	core.ErrEmptyName,
	core.ErrEmptyUPIID,
	core.ErrEmptyPhone,
	core.ErrWeakPassword,
	core.ErrCategoryTooLong,
	core.ErrNoteTooLong,
	core.ErrTitleTooLong,
	core.ErrInvalidGranularity,
	core.ErrUnknownPreset,
	services.ErrInvalidSource,
	services.ErrMissingLogin,
	errInvalidLimit,
	errUnknownBucket,
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

// StatusFor picks the HTTP status for an error returned by a service.
func StatusFor(err error) int {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUserExists), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Message: msg})
}

// writeError answers with the status StatusFor picks. Server errors are
// logged with the request-scoped logger and reach the client as a generic
// message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		ctx := r.Context()
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err,
			log.ComponentHTTP, op, log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()))
		writeMessage(w, status, genericServerError)
		return
	}
	writeMessage(w, status, err.Error())
}
