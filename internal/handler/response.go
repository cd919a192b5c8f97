package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	case errors.Is(err, model.ErrInvalidRequest):
		status = http.StatusBadRequest
		body.Code = "INVALID_REQUEST"
		body.Message = "Invalid request"
	case errors.Is(err, model.ErrDuplicateAccount):
		status = http.StatusBadRequest
		body.Code = "DUPLICATE_ACCOUNT"
		body.Message = "Email or username already exists"
	case errors.Is(err, model.ErrAccountNotFound):
		status = http.StatusBadRequest
		body.Code = "ACCOUNT_NOT_FOUND"
		body.Message = "Email or username is not found"
	case errors.Is(err, model.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		body.Code = "INVALID_CREDENTIALS"
		body.Message = "Invalid credentials"
	case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrVersionConflict):
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid or expired token"
	case errors.Is(err, model.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		body.Code = "STORE_UNAVAILABLE"
		body.Message = "Account store unavailable"
		slog.Error("store failure", "error", err.Error())
	default:
		// Log unclassified errors so they are visible in server logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	// Token failures stay opaque: one code, one message, no details.
	if status == http.StatusUnauthorized && body.Code == "UNAUTHORIZED" {
		body.Details = ""
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
