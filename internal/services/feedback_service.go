package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/broadcast"
	"github.com/tracked/backend/internal/metrics"
	"github.com/tracked/backend/internal/models"
	"github.com/tracked/backend/internal/policy"
	"github.com/tracked/backend/internal/validation"
	"go.uber.org/zap"
)

// maxStatusAttempts bounds how often a status change is re-read and re-authorized
// when the row is edited concurrently
const maxStatusAttempts = 2

// FeedbackRepository is the interface that wraps methods for Feedback table data access
type FeedbackRepository interface {
	// Method List retrieves feedback rows matching the filter, joined with their authors.
	//
	// "filter" parameter is produced by policy.Resolve and is never widened here.
	//
	// If some error occurs during data retrieval, the error will be returned together with "nil" value.
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error)
	// Method GetByID retrieves a feedback entry by ID.
	//
	// If feedback with such ID does not exist, an apperrors.ErrNotFound error will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Feedback, error)
	// Method Create inserts a new feedback entry; ID and timestamps are filled in on success.
	Create(ctx context.Context, feedback *models.Feedback) error
	// Method UpdateContent overwrites title, content, rating and category and returns the new update time.
	UpdateContent(ctx context.Context, id int, content models.FeedbackContent) (time.Time, error)
	// Method UpdateStatus sets the status and returns the persisted id, status and update time.
	//
	// "expected" parameter is the category and status the change was authorized against.
	//
	// If the row is gone or no longer matches "expected", an apperrors.ErrNotFound error is returned.
	UpdateStatus(ctx context.Context, id int, expected models.StatusGuard, status models.Status) (*models.StatusUpdate, error)
	// Method Delete removes a feedback entry.
	Delete(ctx context.Context, id int) error
}

// StatusPublisher fans status changes out to live-update subscribers
type StatusPublisher interface {
	Publish(event broadcast.Event) int
}

// feedbackService implements feedback reads and mutations behind the authorization policy
type feedbackService struct {
	repo      FeedbackRepository
	publisher StatusPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(repo FeedbackRepository, publisher StatusPublisher, m *metrics.Metrics, logger *zap.Logger) *feedbackService {
	return &feedbackService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// List returns the feedback visible to the session, narrowed by the optional query
func (s *feedbackService) List(ctx context.Context, session models.Session, query models.FeedbackQuery) ([]models.Feedback, error) {
	filter, err := policy.Resolve(session, query)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter)
}

// ListGrouped returns the visible feedback bucketed by category.
// Buckets follow models.Categories order with "Uncategorized" last; empty buckets are omitted.
func (s *feedbackService) ListGrouped(ctx context.Context, session models.Session, query models.FeedbackQuery) ([]models.FeedbackGroup, error) {
	items, err := s.List(ctx, session, query)
	if err != nil {
		return nil, err
	}

	buckets := make(map[models.Category][]models.Feedback)
	for _, f := range items {
		buckets[f.Category] = append(buckets[f.Category], f)
	}

	order := append(append([]models.Category{}, models.Categories...), "")
	groups := make([]models.FeedbackGroup, 0, len(buckets))
	for _, c := range order {
		if bucket, ok := buckets[c]; ok {
			groups = append(groups, models.FeedbackGroup{Category: c.Label(), Items: bucket})
		}
	}
	return groups, nil
}

// Get returns one feedback entry with the session's permissions on it.
// Rows outside the session's read scope are reported as not found.
func (s *feedbackService) Get(ctx context.Context, session models.Session, id int) (*models.FeedbackDetail, error) {
	f, err := s.getReadable(ctx, session, id)
	if err != nil {
		return nil, err
	}
	return &models.FeedbackDetail{
		Feedback:    f,
		Permissions: policy.CapabilitiesFor(session, f),
	}, nil
}

// Create stores a new feedback entry owned by the session's user, always IN_PROGRESS
func (s *feedbackService) Create(ctx context.Context, session models.Session, req *models.CreateFeedbackRequest) (*models.Feedback, error) {
	if !policy.CanCreateFeedback(session) {
		return nil, fmt.Errorf("%w: only users can submit feedback", apperrors.ErrUnauthorized)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	category, err := parseCategoryField(req.Category)
	if err != nil {
		return nil, err
	}

	f := &models.Feedback{
		Title:    strings.TrimSpace(req.Title),
		Content:  strings.TrimSpace(req.Content),
		Rating:   req.Rating,
		Category: category,
		Status:   models.StatusInProgress,
		UserID:   session.UserID,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("feedback created",
		zap.Int("feedback_id", f.ID),
		zap.Int("user_id", f.UserID),
		zap.String("category", f.Category.Label()),
	)
	return f, nil
}

// UpdateContent lets the author edit a feedback entry that is not completed yet
func (s *feedbackService) UpdateContent(ctx context.Context, session models.Session, id int, req *models.UpdateFeedbackRequest) (*models.Feedback, error) {
	f, err := s.getReadable(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeContentChange(session, f); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	category, err := parseCategoryField(req.Category)
	if err != nil {
		return nil, err
	}

	content := models.FeedbackContent{
		Title:    strings.TrimSpace(req.Title),
		Content:  strings.TrimSpace(req.Content),
		Rating:   req.Rating,
		Category: category,
	}
	updatedAt, err := s.repo.UpdateContent(ctx, id, content)
	if err != nil {
		return nil, err
	}

	f.Title = content.Title
	f.Content = content.Content
	f.Rating = content.Rating
	f.Category = content.Category
	f.UpdatedAt = updatedAt
	return f, nil
}

// Delete lets the author remove a feedback entry that is not completed yet
func (s *feedbackService) Delete(ctx context.Context, session models.Session, id int) error {
	f, err := s.getReadable(ctx, session, id)
	if err != nil {
		return err
	}
	if err := policy.AuthorizeDelete(session, f); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("feedback deleted", zap.Int("feedback_id", id), zap.Int("user_id", session.UserID))
	return nil
}

// UpdateStatus moves a feedback entry to the requested status and notifies live subscribers.
//
// Checks run before any write: the role must be admin-capable, the target must be a
// known status, the row must exist and the session must be allowed to triage it.
// The write only applies while the row keeps the category and status those checks saw.
// Requesting the current status changes nothing and publishes nothing.
func (s *feedbackService) UpdateStatus(ctx context.Context, session models.Session, id int, req *models.UpdateStatusRequest) (*models.StatusUpdate, error) {
	if !session.Role.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can update feedback status", apperrors.ErrUnauthorized)
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid feedback id", apperrors.ErrInvalidInput)
	}
	target, err := models.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return nil, apperrors.NewValidationError(map[string]string{"status": err.Error()})
	}

	var update *models.StatusUpdate
	for attempt := 1; ; attempt++ {
		f, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := policy.AuthorizeStatusChange(session, f); err != nil {
			return nil, err
		}

		if f.Status == target {
			return &models.StatusUpdate{ID: f.ID, Status: f.Status, UpdatedAt: f.UpdatedAt}, nil
		}
		if !f.Status.CanTransition(target) {
			return nil, fmt.Errorf("%w: cannot move feedback from %s to %s", apperrors.ErrInvalidInput, f.Status, target)
		}

		expected := models.StatusGuard{Category: f.Category, Status: f.Status}
		update, err = s.repo.UpdateStatus(ctx, id, expected, target)
		if errors.Is(err, apperrors.ErrNotFound) && attempt < maxStatusAttempts {
			// The row was edited after it was read; check it again
			s.logger.Debug("feedback changed during status update", zap.Int("feedback_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	s.metrics.FeedbackStatusTotal.WithLabelValues(string(update.Status)).Inc()

	delivered := s.publisher.Publish(broadcast.StatusUpdateEvent(update))
	s.logger.Info("feedback status updated",
		zap.Int("feedback_id", update.ID),
		zap.String("status", string(update.Status)),
		zap.Int("updated_by", session.UserID),
		zap.Int("subscribers_notified", delivered),
	)
	return update, nil
}

// getReadable loads a row and hides it when it falls outside the session's read scope
func (s *feedbackService) getReadable(ctx context.Context, session models.Session, id int) (*models.Feedback, error) {
	if policy.ReadScopeFor(session).Kind == policy.ScopeNone {
		return nil, fmt.Errorf("%w: role %q cannot read feedback", apperrors.ErrUnauthorized, session.Role.String())
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid feedback id", apperrors.ErrInvalidInput)
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(session, f) {
		return nil, fmt.Errorf("%w: feedback not found", apperrors.ErrNotFound)
	}
	return f, nil
}

func parseCategoryField(raw string) (models.Category, error) {
	category, err := models.ParseCategory(strings.TrimSpace(raw))
	if err != nil {
		return "", apperrors.NewValidationError(map[string]string{"category": err.Error()})
	}
	return category, nil
}
