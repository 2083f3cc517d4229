package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
	"github.com/tracked/backend/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost used for stored credentials
const PasswordHashCost = 12

// UserRepository is the interface that wraps methods for User table data access
type UserRepository interface {
	// Method Create inserts a new user into the database.
	//
	// "user" parameter is used to create a new user; its ID and timestamps are filled in on success.
	//
	// If the email is already taken, an apperrors.ErrInvalidInput error is returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByEmail retrieves a user by email.
	//
	// "email" parameter is the normalized (lower-case) email.
	//
	// If user with such email does not exist, an apperrors.ErrNotFound error will be returned together with "nil" value.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method GetByID retrieves a user by ID.
	//
	// "id" parameter is used to retrieve a user by ID.
	//
	// If user with such ID does not exist, an apperrors.ErrNotFound error will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// "email" parameter is the normalized (lower-case) email.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method List retrieves every user, newest first.
	//
	// If some error occurs during data retrieval, the error will be returned together with "nil" value.
	List(ctx context.Context) ([]models.User, error)
	// Method Delete removes a user together with their feedback.
	//
	// "id" parameter is the user to delete.
	//
	// If user with such ID does not exist, an apperrors.ErrNotFound error will be returned.
	Delete(ctx context.Context, id int) error
}

// SessionTokens issues session tokens and reads them back
type SessionTokens interface {
	GenerateToken(userID int, role models.Role) (string, time.Time, error)
	ValidateToken(token string) (models.Session, error)
}

// authService implements the identity provider: credentials in, session token out
type authService struct {
	userRepo UserRepository
	tokens   SessionTokens
	logger   *zap.Logger
	hashCost int
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo UserRepository, tokens SessionTokens, logger *zap.Logger) *authService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
		hashCost: PasswordHashCost,
	}
}

// Register creates a USER account and signs it in
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
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
		Role:         models.RoleUser,
		LRNID:        strings.TrimSpace(req.LRNID),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int("user_id", user.ID))
	return s.issue(user)
}

// Login checks the credentials and returns a session token.
// Unknown email and wrong password yield the same apperrors.ErrUnauthenticated error.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthenticated)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthenticated)
	}

	return s.issue(user)
}

// Me returns the account behind the session
func (s *authService) Me(ctx context.Context, session models.Session) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", apperrors.ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}

// Authenticate resolves a session token to the session of an existing account.
// The role is taken from the stored account, not from the token claims.
func (s *authService) Authenticate(ctx context.Context, token string) (models.Session, error) {
	claimed, err := s.tokens.ValidateToken(token)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: invalid or expired session", apperrors.ErrUnauthenticated)
	}

	user, err := s.userRepo.GetByID(ctx, claimed.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.Session{}, fmt.Errorf("%w: account no longer exists", apperrors.ErrUnauthenticated)
		}
		return models.Session{}, err
	}

	return models.Session{UserID: user.ID, Role: user.Role}, nil
}

func (s *authService) issue(user *models.User) (*models.LoginResponse, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to generate session token", zap.Error(err), zap.Int("user_id", user.ID))
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// hashPassword hashes a password with bcrypt. Passwords bcrypt cannot take are reported as invalid input.
func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperrors.NewValidationError(map[string]string{"password": "password must not exceed 72 bytes"})
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
