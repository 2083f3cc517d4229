package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
)

// memoryAccounts creates accounts in memory and reports duplicates the way the user service does
type memoryAccounts struct {
	users  map[string]*models.User
	nextID int
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{users: make(map[string]*models.User), nextID: 1}
}

func (m *memoryAccounts) CreateAccount(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if _, ok := m.users[req.Email]; ok {
		return nil, fmt.Errorf("%w: user already exists", apperrors.ErrInvalidInput)
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, apperrors.NewValidationError(map[string]string{"role": err.Error()})
	}
	u := &models.User{ID: m.nextID, Email: req.Email, Role: role, PasswordHash: "hash:" + req.Password}
	m.nextID++
	m.users[req.Email] = u
	return u, nil
}

func (m *memoryAccounts) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: user not found", apperrors.ErrNotFound)
}

type recordingFeedback struct {
	sessions []models.Session
	requests []models.CreateFeedbackRequest
	err      error
}

func (r *recordingFeedback) Create(ctx context.Context, session models.Session, req *models.CreateFeedbackRequest) (*models.Feedback, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sessions = append(r.sessions, session)
	r.requests = append(r.requests, *req)
	return &models.Feedback{ID: len(r.requests), Title: req.Title, UserID: session.UserID}, nil
}

func TestSeeder_Run(t *testing.T) {
	accounts := newMemoryAccounts()
	feedback := &recordingFeedback{}
	var out bytes.Buffer
	s := &seeder{accounts: accounts, users: accounts, feedback: feedback, out: &out}

	require.NoError(t, s.run(context.Background(), "password123"))

	assert.Len(t, accounts.users, len(demoAccounts))
	assert.Equal(t, models.CategoryAdmin(models.CategoryFacilities), accounts.users["facilities@example.com"].Role)
	assert.Equal(t, "hash:password123", accounts.users["admin@example.com"].PasswordHash)

	require.Len(t, feedback.requests, len(demoFeedback))
	student := accounts.users["user@example.com"]
	for _, session := range feedback.sessions {
		assert.Equal(t, models.Session{UserID: student.ID, Role: models.RoleUser}, session)
	}
	assert.Contains(t, out.String(), "created admin@example.com (SUPER_ADMIN)")

	// A second run keeps the existing data
	out.Reset()
	require.NoError(t, s.run(context.Background(), "password123"))
	assert.Len(t, accounts.users, len(demoAccounts))
	assert.Len(t, feedback.requests, len(demoFeedback))
	assert.Contains(t, out.String(), "skipped user@example.com: already exists")
}

func TestSeeder_Run_FeedbackError(t *testing.T) {
	accounts := newMemoryAccounts()
	s := &seeder{
		accounts: accounts,
		users:    accounts,
		feedback: &recordingFeedback{err: fmt.Errorf("%w: connection refused", apperrors.ErrStore)},
		out:      &bytes.Buffer{},
	}

	err := s.run(context.Background(), "password123")
	assert.ErrorIs(t, err, apperrors.ErrStore)
}

func TestSeeder_EnsureAccount_ValidationErrorIsReturned(t *testing.T) {
	accounts := newMemoryAccounts()
	s := &seeder{accounts: accounts, users: accounts, feedback: &recordingFeedback{}, out: &bytes.Buffer{}}

	_, _, err := s.ensureAccount(context.Background(), &models.CreateUserRequest{Email: "x@example.com", Role: "ROOT"})

	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}
