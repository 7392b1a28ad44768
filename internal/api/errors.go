// Package api is the HTTP transport: routing, request decoding, error
// mapping and the JSON response envelope.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/telegate/telegate/internal/domain"
)

// errorBody is the uniform error envelope. Error is a stable machine-readable
// kind; Message is human-readable detail.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusKind maps a service error onto an HTTP status and error kind.
func statusKind(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrIncorrectCredentials):
		return http.StatusBadRequest, "incorrect_credentials"
	case errors.Is(err, domain.ErrInvalidAuthState):
		return http.StatusConflict, "invalid_auth_state"
	case errors.Is(err, domain.ErrAlreadyAuthenticating):
		return http.StatusConflict, "already_authenticating"
	case errors.Is(err, domain.ErrChannelNotAccessible):
		return http.StatusNotFound, "channel_not_accessible"
	case errors.Is(err, domain.ErrMessageNotFound):
		return http.StatusNotFound, "message_not_found"
	case errors.Is(err, domain.ErrMediaUnavailable):
		return http.StatusNotFound, "media_unavailable"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusKind(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
