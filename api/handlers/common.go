// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/types"
)

// Response is the unified API envelope.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorInfo is the serialised error structure.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError writes an error envelope, mapping the engine error code to an
// HTTP status when the error carries none.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var engineErr *types.Error
	if !errors.As(err, &engineErr) {
		engineErr = types.NewError(types.ErrInternalError, err.Error())
	}

	status := engineErr.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(engineErr.Code)
	}

	if logger != nil {
		logger.Error("API error",
			zap.String("code", string(engineErr.Code)),
			zap.String("message", engineErr.Message),
			zap.Int("status", status),
			zap.Error(engineErr.Cause),
		)
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      string(engineErr.Code),
			Message:   engineErr.Message,
			Retryable: engineErr.Retryable,
		},
		Timestamp: time.Now(),
	})
}

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRequest, types.ErrInvalidCase, types.ErrInvalidOpinion, types.ErrInvalidDecision:
		return http.StatusBadRequest
	case types.ErrSessionNotFound:
		return http.StatusNotFound
	case types.ErrSessionTerminated, types.ErrRoundLimitReached, types.ErrNoOpenRound:
		return http.StatusConflict
	case types.ErrPanelSizeMismatch:
		return http.StatusUnprocessableEntity
	case types.ErrGenerationTimeout:
		return http.StatusGatewayTimeout
	case types.ErrGenerationFailed, types.ErrGenerationEmpty, types.ErrGenerationTruncated:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSONBody decodes a JSON request body in strict mode and writes the
// error response itself on failure.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) error {
	if r.Body == nil {
		err := types.NewError(types.ErrInvalidRequest, "request body is empty")
		WriteError(w, err, logger)
		return err
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		apiErr := types.NewError(types.ErrInvalidRequest, "invalid JSON body").
			WithCause(err).
			WithHTTPStatus(http.StatusBadRequest)
		WriteError(w, apiErr, logger)
		return apiErr
	}
	return nil
}
