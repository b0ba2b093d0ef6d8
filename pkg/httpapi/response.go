package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/notifykit/notifyd/pkg/binder"
	"github.com/notifykit/notifyd/pkg/broker"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// response renders itself once the handler is done.
type response interface {
	render(w http.ResponseWriter, r *http.Request) error
}

type jsonResponse struct {
	status int
	body   Envelope
}

func (j jsonResponse) render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

func ok(v any) response       { return jsonResponse{status: http.StatusOK, body: Envelope{Data: v}} }
func accepted(v any) response { return jsonResponse{status: http.StatusAccepted, body: Envelope{Data: v}} }

func fail(err error) response {
	status, code := classify(err)
	return jsonResponse{status: status, body: Envelope{Error: &ErrorDetail{Code: code, Message: err.Error()}}}
}

// classify maps an error onto a status code and a stable error code.
// Everything the broker does not report as a caller mistake is a 503 or
// a 500.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParseQuery),
		errors.Is(err, binder.ErrFailedToParsePath),
		errors.Is(err, ErrMissingSnooze),
		errors.Is(err, broker.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, broker.ErrUnauthorized), errors.Is(err, broker.ErrNotAssistant):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, broker.ErrUnknownListener):
		return http.StatusNotFound, "unknown_listener"
	case errors.Is(err, ErrListenerExists):
		return http.StatusConflict, "listener_exists"
	case errors.Is(err, broker.ErrStopped):
		return http.StatusServiceUnavailable, "stopped"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
