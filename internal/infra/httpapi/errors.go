package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"strengths_manager/internal/app"
	"strengths_manager/internal/domain/campaign"
	idb "strengths_manager/internal/infra/database"

	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrInvalidStrengths),
		errors.Is(err, app.ErrInvalidMember),
		errors.Is(err, app.ErrInvalidChat),
		errors.Is(err, app.ErrNoTeam),
		errors.Is(err, app.ErrMemberStrengthsNotFound),
		errors.Is(err, campaign.ErrNoStrengths):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, idb.ErrUserNotFound),
		errors.Is(err, idb.ErrTeamMemberNotFound),
		errors.Is(err, campaign.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes a JSON error. Details of internal errors are not exposed.
func writeError(w http.ResponseWriter, logger *logrus.Entry, err error) {
	status := statusFor(err)
	resp := errorResponse{Message: http.StatusText(status)}
	if status < http.StatusInternalServerError {
		resp.Error = err.Error()
		logger.WithError(err).Warn("Request rejected")
	} else {
		logger.WithError(err).Error("Request failed")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
