package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roach88/certledger/internal/engine"
	"github.com/roach88/certledger/internal/registry"
)

// Response is the envelope of every call reply.
type Response struct {
	Status string     `json:"status"`
	Data   any        `json:"data,omitempty"`
	TxID   string     `json:"tx_id,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed call. Code is a registry error code, or
// BAD_REQUEST, UNKNOWN_CALL, INTERNAL for failures outside the registry.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// Transport error codes.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeUnknownCall = "UNKNOWN_CALL"
	CodeInternal    = "INTERNAL"
	CodeUnavailable = "UNAVAILABLE"
)

var codeStatus = map[registry.ErrorCode]int{
	registry.CodeNotFound:              http.StatusNotFound,
	registry.CodeTransferNotFound:      http.StatusNotFound,
	registry.CodeUnauthorized:          http.StatusForbidden,
	registry.CodeTransferNotAuthorized: http.StatusForbidden,
	registry.CodeUnauthenticated:       http.StatusUnauthorized,
	registry.CodeAlreadyExists:         http.StatusConflict,
	registry.CodeAlreadyRevoked:        http.StatusConflict,
	registry.CodeTransferNotPending:    http.StatusConflict,
	registry.CodeInvalidTransferStatus: http.StatusConflict,
	registry.CodeInvalidData:           http.StatusBadRequest,
	registry.CodeInsufficientBalance:   http.StatusPaymentRequired,
}

// StatusFor maps an error to its HTTP status and error body.
func StatusFor(err error) (int, ErrorBody) {
	var re *registry.Error
	switch {
	case errors.As(err, &re):
		status, ok := codeStatus[re.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, ErrorBody{Code: string(re.Code), Message: re.Error(), Fatal: re.Fatal}
	case engine.IsUnknownCall(err):
		return http.StatusNotFound, ErrorBody{Code: CodeUnknownCall, Message: err.Error()}
	case engine.IsRequestError(err):
		return http.StatusBadRequest, ErrorBody{Code: CodeBadRequest, Message: err.Error()}
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable, ErrorBody{Code: CodeUnavailable, Message: err.Error()}
	default:
		// Storage failures can carry paths and driver detail.
		return http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, txID string, err error) {
	status, body := StatusFor(err)
	writeJSON(w, status, Response{Status: "error", TxID: txID, Error: &body})
}
