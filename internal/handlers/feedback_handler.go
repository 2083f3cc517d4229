package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tracked/backend/internal/models"
	"go.uber.org/zap"
)

// groupByCategory is the only supported value of the "group" query parameter
const groupByCategory = "category"

// FeedbackService is the interface that wraps methods for feedback business logic.
//
// Every method receives the caller's session and applies the authorization policy itself.
type FeedbackService interface {
	// Method List retrieves the feedback visible to the session.
	//
	// "query" parameter holds the optional category and status filters; they can only narrow the caller's scope.
	//
	// If the session's role cannot read feedback, an apperrors.ErrUnauthorized error will be returned.
	// If a filter value is unknown, an apperrors.ErrInvalidInput error will be returned.
	List(ctx context.Context, session models.Session, query models.FeedbackQuery) ([]models.Feedback, error)
	// Method ListGrouped works like List but buckets the result by category.
	ListGrouped(ctx context.Context, session models.Session, query models.FeedbackQuery) ([]models.FeedbackGroup, error)
	// Method Get retrieves one feedback entry together with the caller's permissions on it.
	//
	// If the entry is absent or outside the session's scope, an apperrors.ErrNotFound error will be returned.
	Get(ctx context.Context, session models.Session, id int) (*models.FeedbackDetail, error)
	// Method Create stores a new feedback entry owned by the session's user.
	Create(ctx context.Context, session models.Session, req *models.CreateFeedbackRequest) (*models.Feedback, error)
	// Method UpdateContent edits the title, content, rating and category of an entry owned by the session's user.
	UpdateContent(ctx context.Context, session models.Session, id int, req *models.UpdateFeedbackRequest) (*models.Feedback, error)
	// Method Delete removes an entry owned by the session's user.
	Delete(ctx context.Context, session models.Session, id int) error
	// Method UpdateStatus changes the status of an entry and notifies live subscribers.
	//
	// If the session may not triage the entry, an apperrors.ErrUnauthorized error will be returned.
	UpdateStatus(ctx context.Context, session models.Session, id int, req *models.UpdateStatusRequest) (*models.StatusUpdate, error)
}

// FeedbackHandler handles HTTP requests for feedback
type FeedbackHandler struct {
	BaseHandler
	service FeedbackService
	stream  http.Handler
}

// NewFeedbackHandler creates a new feedback handler.
// "stream" serves the live status updates endpoint.
func NewFeedbackHandler(svc FeedbackService, stream http.Handler, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		BaseHandler: BaseHandler{logger: logger},
		service:     svc,
		stream:      stream,
	}
}

// RegisterRoutes registers all feedback handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *FeedbackHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/feedback", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Method(http.MethodGet, "/status-updates", h.stream)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/{id}/status", h.UpdateStatus)
	})
}

// List handles GET /feedback
// @Summary List feedback
// @Description List the feedback visible to the caller. Super admins and admins see everything, category admins see their category, users see their own entries.
// @Tags feedback
// @Produce json
// @Security ApiKeyAuth
// @Param category query string false "Category name, or Uncategorized"
// @Param status query string false "IN_PROGRESS or COMPLETED"
// @Param group query string false "Set to 'category' to receive category buckets"
// @Success 200 {array} models.Feedback
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /feedback [get]
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	params := r.URL.Query()
	query := models.FeedbackQuery{
		Category: params.Get("category"),
		Status:   params.Get("status"),
	}

	switch params.Get("group") {
	case "":
		items, err := h.service.List(r.Context(), session, query)
		if err != nil {
			h.respondServiceError(w, r, err, "list feedback")
			return
		}
		h.respondJSON(w, http.StatusOK, items)
	case groupByCategory:
		groups, err := h.service.ListGrouped(r.Context(), session, query)
		if err != nil {
			h.respondServiceError(w, r, err, "list feedback")
			return
		}
		h.respondJSON(w, http.StatusOK, groups)
	default:
		h.respondError(w, http.StatusBadRequest, "invalid group parameter")
	}
}

// Create handles POST /feedback
// @Summary Submit feedback
// @Description Submit a new feedback entry. Only USER accounts can submit; new entries start IN_PROGRESS.
// @Tags feedback
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.CreateFeedbackRequest true "Feedback"
// @Success 201 {object} models.Feedback
// @Failure 400 {object} ValidationErrorResponse
// @Failure 403 {object} map[string]string
// @Router /feedback [post]
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.CreateFeedbackRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	f, err := h.service.Create(r.Context(), session, &req)
	if err != nil {
		h.respondServiceError(w, r, err, "create feedback")
		return
	}

	h.respondJSON(w, http.StatusCreated, f)
}

// Get handles GET /feedback/{id}
// @Summary Get feedback
// @Description Get one feedback entry with its author and the caller's permissions on it
// @Tags feedback
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Feedback ID"
// @Success 200 {object} models.FeedbackDetail
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /feedback/{id} [get]
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), session, id)
	if err != nil {
		h.respondServiceError(w, r, err, "get feedback")
		return
	}

	h.respondJSON(w, http.StatusOK, detail)
}

// Update handles PUT /feedback/{id}
// @Summary Edit feedback
// @Description Edit an own feedback entry that is not completed yet
// @Tags feedback
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Feedback ID"
// @Param request body models.UpdateFeedbackRequest true "Feedback"
// @Success 200 {object} models.Feedback
// @Failure 400 {object} ValidationErrorResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /feedback/{id} [put]
func (h *FeedbackHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateFeedbackRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	f, err := h.service.UpdateContent(r.Context(), session, id, &req)
	if err != nil {
		h.respondServiceError(w, r, err, "update feedback")
		return
	}

	h.respondJSON(w, http.StatusOK, f)
}

// Delete handles DELETE /feedback/{id}
// @Summary Delete feedback
// @Description Delete an own feedback entry that is not completed yet
// @Tags feedback
// @Security ApiKeyAuth
// @Param id path int true "Feedback ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /feedback/{id} [delete]
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), session, id); err != nil {
		h.respondServiceError(w, r, err, "delete feedback")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /feedback/{id}/status
// @Summary Update feedback status
// @Description Move a feedback entry between IN_PROGRESS and COMPLETED. Connected live-update clients receive a status_update event.
// @Tags feedback
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Feedback ID"
// @Param request body models.UpdateStatusRequest true "Target status"
// @Success 200 {object} models.StatusUpdate
// @Failure 400 {object} ValidationErrorResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /feedback/{id}/status [patch]
func (h *FeedbackHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	update, err := h.service.UpdateStatus(r.Context(), session, id, &req)
	if err != nil {
		h.respondServiceError(w, r, err, "update feedback status")
		return
	}

	h.respondJSON(w, http.StatusOK, update)
}
