package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/dmitrijs2005/credkeeper/internal/logging"
)

type apiError struct {
	Status  string         `json:"status"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string]any) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
		Details: details,
	})
}

// statusForKind maps a failure kind to its HTTP status.
func statusForKind(kind string) int {
	switch kind {
	case common.KindValidation,
		common.KindDuplicateEmail,
		common.KindUnknownEmail,
		common.KindInvalidCredentials,
		common.KindNotActivated,
		common.KindInvalidActivationLink,
		common.KindNoPendingReset,
		common.KindInvalidOrExpiredToken:
		return http.StatusBadRequest
	case common.KindUnauthenticated, common.KindInvalidToken, common.KindExpiredToken:
		return http.StatusUnauthorized
	case common.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError translates err into the error envelope. Internal errors
// are logged and their message is never shown to the client.
func (h *Handler) writeDomainError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	kind := common.KindOf(err)
	status := statusForKind(kind)

	if status >= http.StatusInternalServerError {
		logging.LogError(ctx, h.logger.With("request_id", requestIDFromContext(ctx)), operation+" failed", err)
		writeError(w, status, common.KindInternal, "internal server error", nil)
		return
	}

	var details map[string]any
	if kind == common.KindValidation {
		details = common.Details(err)
	}
	h.logger.Debug(ctx, operation+" rejected", "code", kind, "request_id", requestIDFromContext(ctx))
	writeError(w, status, kind, err.Error(), details)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}
