package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bia-service/internal/bia"
	"github.com/sells-group/bia-service/internal/fusion"
	"github.com/sells-group/bia-service/internal/store"
	"github.com/sells-group/bia-service/internal/workflow"
)

// errBadRequest marks malformed query strings and bodies.
var errBadRequest = eris.New("api: bad request")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, bia.ErrValidation),
		errors.Is(err, workflow.ErrActorRequired),
		errors.Is(err, workflow.ErrInvalidDirection):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, fusion.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrPushFailed), errors.Is(err, workflow.ErrSyncFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return eris.Wrapf(errBadRequest, "invalid request body: %s", err.Error())
}
