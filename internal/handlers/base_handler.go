package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/middleware"
	"github.com/tracked/backend/internal/models"
	"go.uber.org/zap"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	logger *zap.Logger
}

// ValidationErrorResponse is returned when a payload fails field validation
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// respondJSON sends a JSON response
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error JSON response
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps an error returned by a service to an HTTP status.
// Store failures and unknown errors are logged and hidden behind a generic message.
func (h *BaseHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.respondError(w, http.StatusBadRequest, apperrors.Reason(err))
	case errors.Is(err, apperrors.ErrUnauthenticated):
		h.respondError(w, http.StatusUnauthorized, apperrors.Reason(err))
	case errors.Is(err, apperrors.ErrUnauthorized):
		h.respondError(w, http.StatusForbidden, apperrors.Reason(err))
	case errors.Is(err, apperrors.ErrNotFound):
		h.respondError(w, http.StatusNotFound, apperrors.Reason(err))
	default:
		h.logger.Error("failed to "+action,
			zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads the request body into dst, answering 400 on malformed input
// and 413 when the body runs past the request size limit
func (h *BaseHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	h.respondError(w, http.StatusBadRequest, "invalid request body")
	return false
}

// pathID parses a positive integer URL parameter
func (h *BaseHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}

// session returns the caller's session, answering 401 when the request is anonymous
func (h *BaseHandler) session(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return models.Session{}, false
	}
	return session, true
}
