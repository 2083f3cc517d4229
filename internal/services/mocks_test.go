package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/broadcast"
	"github.com/tracked/backend/internal/models"
)

var testNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// mockUserRepository is an in-memory implementation of UserRepository
type mockUserRepository struct {
	users  map[int]*models.User
	nextID int
	err    error
}

func newMockUserRepository(users ...*models.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[int]*models.User), nextID: 1}
	for _, u := range users {
		m.users[u.ID] = u
		if u.ID >= m.nextID {
			m.nextID = u.ID + 1
		}
	}
	return m
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.err != nil {
		return m.err
	}
	user.ID = m.nextID
	user.CreatedAt = testNow
	user.UpdatedAt = testNow
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user not found", apperrors.ErrNotFound)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: user not found", apperrors.ErrNotFound)
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	users := make([]models.User, 0, len(m.users))
	for id := 1; id < m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id int) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("%w: user not found", apperrors.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

// mockFeedbackRepository is an in-memory implementation of FeedbackRepository that honors FeedbackFilter
type mockFeedbackRepository struct {
	rows          []*models.Feedback
	nextID        int
	err           error
	lastFilter    *models.FeedbackFilter
	statusUpdates int
	contentWrites int
	deletes       int
	// beforeStatusUpdate runs once at the start of the next UpdateStatus call
	beforeStatusUpdate func(m *mockFeedbackRepository)
}

func newMockFeedbackRepository(rows ...*models.Feedback) *mockFeedbackRepository {
	m := &mockFeedbackRepository{nextID: 1}
	for _, f := range rows {
		m.rows = append(m.rows, f)
		if f.ID >= m.nextID {
			m.nextID = f.ID + 1
		}
	}
	return m
}

func (m *mockFeedbackRepository) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	m.lastFilter = &filter
	if m.err != nil {
		return nil, m.err
	}
	result := make([]models.Feedback, 0)
	if filter.MatchNone {
		return result, nil
	}
	for _, f := range m.rows {
		if filter.UserID > 0 && f.UserID != filter.UserID {
			continue
		}
		if filter.Uncategorized && !f.Category.IsZero() {
			continue
		}
		if !filter.Category.IsZero() && f.Category != filter.Category {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		result = append(result, *f)
	}
	return result, nil
}

func (m *mockFeedbackRepository) GetByID(ctx context.Context, id int) (*models.Feedback, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, f := range m.rows {
		if f.ID == id {
			copied := *f
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: feedback not found", apperrors.ErrNotFound)
}

func (m *mockFeedbackRepository) Create(ctx context.Context, f *models.Feedback) error {
	if m.err != nil {
		return m.err
	}
	f.ID = m.nextID
	f.CreatedAt = testNow
	f.UpdatedAt = testNow
	m.nextID++
	stored := *f
	m.rows = append(m.rows, &stored)
	return nil
}

func (m *mockFeedbackRepository) UpdateContent(ctx context.Context, id int, content models.FeedbackContent) (time.Time, error) {
	if m.err != nil {
		return time.Time{}, m.err
	}
	m.contentWrites++
	for _, f := range m.rows {
		if f.ID == id {
			f.Title, f.Content, f.Rating, f.Category = content.Title, content.Content, content.Rating, content.Category
			f.UpdatedAt = testNow.Add(time.Minute)
			return f.UpdatedAt, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: feedback not found", apperrors.ErrNotFound)
}

func (m *mockFeedbackRepository) UpdateStatus(ctx context.Context, id int, expected models.StatusGuard, status models.Status) (*models.StatusUpdate, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.beforeStatusUpdate != nil {
		edit := m.beforeStatusUpdate
		m.beforeStatusUpdate = nil
		edit(m)
	}
	m.statusUpdates++
	for _, f := range m.rows {
		if f.ID == id {
			if f.Category != expected.Category || f.Status != expected.Status {
				break
			}
			f.Status = status
			f.UpdatedAt = testNow.Add(time.Hour)
			return &models.StatusUpdate{ID: id, Status: status, UpdatedAt: f.UpdatedAt}, nil
		}
	}
	return nil, fmt.Errorf("%w: feedback not found", apperrors.ErrNotFound)
}

func (m *mockFeedbackRepository) Delete(ctx context.Context, id int) error {
	if m.err != nil {
		return m.err
	}
	m.deletes++
	for i, f := range m.rows {
		if f.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: feedback not found", apperrors.ErrNotFound)
}

// mockPublisher records published events
type mockPublisher struct {
	events []broadcast.Event
}

func (m *mockPublisher) Publish(event broadcast.Event) int {
	m.events = append(m.events, event)
	return 1
}

// mockSessionTokens encodes the user id and role as "token-<id>-<role>"
type mockSessionTokens struct {
	err error
}

func (m *mockSessionTokens) ValidateToken(token string) (models.Session, error) {
	var (
		id   int
		name string
	)
	if _, err := fmt.Sscanf(token, "token-%d-%s", &id, &name); err != nil {
		return models.Session{}, fmt.Errorf("malformed token: %w", err)
	}
	role, err := models.ParseRole(name)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{UserID: id, Role: role}, nil
}

func (m *mockSessionTokens) GenerateToken(userID int, role models.Role) (string, time.Time, error) {
	if m.err != nil {
		return "", time.Time{}, m.err
	}
	return fmt.Sprintf("token-%d-%s", userID, role), testNow.Add(time.Hour), nil
}

var errDatabase = fmt.Errorf("%w: %w", apperrors.ErrStore, errors.New("database error"))
