package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tracked/backend/internal/models"
	"go.uber.org/zap"
)

// UserService is the interface that wraps methods for account management.
type UserService interface {
	// Method List retrieves every account.
	//
	// If the session is not a super admin, an apperrors.ErrUnauthorized error will be returned together with "nil" value.
	List(ctx context.Context, session models.Session) ([]models.User, error)
	// Method Create adds an account with any role.
	//
	// "req" parameter contains email, password, role and the optional name and learner reference number.
	//
	// If the payload is invalid or the email is taken, an apperrors.ErrInvalidInput error will be returned together with "nil" value.
	Create(ctx context.Context, session models.Session, req *models.CreateUserRequest) (*models.User, error)
	// Method Delete removes an account and its feedback.
	//
	// A super admin cannot delete their own account.
	Delete(ctx context.Context, session models.Session, id int) error
}

// UserHandler handles super admin account management requests
type UserHandler struct {
	BaseHandler
	userService UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: BaseHandler{logger: logger},
		userService: userService,
	}
}

// RegisterRoutes registers all user handler routes.
// The router is expected to carry the auth and super admin role middleware.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /users
// @Summary List users
// @Description List every account. Super admin only.
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} models.User
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	users, err := h.userService.List(r.Context(), session)
	if err != nil {
		h.respondServiceError(w, r, err, "list users")
		return
	}

	h.respondJSON(w, http.StatusOK, users)
}

// Create handles POST /users
// @Summary Create user
// @Description Create an account with any role. Super admin only.
// @Tags users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.CreateUserRequest true "Account"
// @Success 201 {object} models.User
// @Failure 400 {object} ValidationErrorResponse
// @Failure 403 {object} map[string]string
// @Router /users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.CreateUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), session, &req)
	if err != nil {
		h.respondServiceError(w, r, err, "create user")
		return
	}

	h.respondJSON(w, http.StatusCreated, user)
}

// Delete handles DELETE /users/{id}
// @Summary Delete user
// @Description Delete an account together with its feedback. Super admin only; a super admin cannot delete themselves.
// @Tags users
// @Security ApiKeyAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), session, id); err != nil {
		h.respondServiceError(w, r, err, "delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
