package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
	"github.com/tracked/backend/internal/policy"
	"github.com/tracked/backend/internal/validation"
	"go.uber.org/zap"
)

// userService implements account management for super admins
type userService struct {
	userRepo UserRepository
	logger   *zap.Logger
	hashCost int
}

// NewUserService creates a new user service
func NewUserService(userRepo UserRepository, logger *zap.Logger) *userService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
		hashCost: PasswordHashCost,
	}
}

// List returns every account
func (s *userService) List(ctx context.Context, session models.Session) ([]models.User, error) {
	if !policy.CanManageUsers(session) {
		return nil, fmt.Errorf("%w: only super admins can manage users", apperrors.ErrUnauthorized)
	}
	return s.userRepo.List(ctx)
}

// Create adds an account with any role
func (s *userService) Create(ctx context.Context, session models.Session, req *models.CreateUserRequest) (*models.User, error) {
	if !policy.CanManageUsers(session) {
		return nil, fmt.Errorf("%w: only super admins can manage users", apperrors.ErrUnauthorized)
	}
	user, err := s.CreateAccount(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		zap.Int("user_id", user.ID),
		zap.String("role", user.Role.String()),
		zap.Int("created_by", session.UserID),
	)
	return user, nil
}

// CreateAccount validates and stores a new account without a session check.
// It backs Create and the admin CLI.
func (s *userService) CreateAccount(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, apperrors.NewValidationError(map[string]string{"role": err.Error()})
	}
	lrnID := strings.TrimSpace(req.LRNID)
	if lrnID != "" && role != models.RoleUser {
		return nil, apperrors.NewValidationError(map[string]string{"lrnId": "only USER accounts have a learner reference number"})
	}

	email := normalizeEmail(req.Email)
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: user already exists", apperrors.ErrInvalidInput)
	}

	passwordHash, err := hashPassword(req.Password, s.hashCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: passwordHash,
		Role:         role,
		LRNID:        lrnID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account and its feedback. A super admin cannot delete themselves.
func (s *userService) Delete(ctx context.Context, session models.Session, id int) error {
	if !policy.CanManageUsers(session) {
		return fmt.Errorf("%w: only super admins can manage users", apperrors.ErrUnauthorized)
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", apperrors.ErrInvalidInput)
	}
	if id == session.UserID {
		return fmt.Errorf("%w: you cannot delete your own account", apperrors.ErrInvalidInput)
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int("user_id", id), zap.Int("deleted_by", session.UserID))
	return nil
}
