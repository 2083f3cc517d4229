package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
	"go.uber.org/zap"
)

const feedbackSelect = `
	SELECT f.id, f.title, f.content, f.rating, f.category, f.status, f.user_id,
		f.created_at, f.updated_at, u.name, u.email
	FROM feedback f
	JOIN users u ON u.id = f.user_id
`

// feedbackRepository implements services.FeedbackRepository
type feedbackRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *sql.DB, logger *zap.Logger) *feedbackRepository {
	return &feedbackRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// List retrieves feedback matching the filter.
// status is an ENUM column, so DESC puts COMPLETED rows before IN_PROGRESS ones.
func (r *feedbackRepository) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	result := make([]models.Feedback, 0)
	if filter.MatchNone {
		return result, nil
	}

	var (
		conditions []string
		args       []any
	)
	if filter.UserID > 0 {
		conditions = append(conditions, "f.user_id = ?")
		args = append(args, filter.UserID)
	}
	switch {
	case filter.Uncategorized:
		conditions = append(conditions, "f.category IS NULL")
	case !filter.Category.IsZero():
		conditions = append(conditions, "f.category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Status != "" {
		conditions = append(conditions, "f.status = ?")
		args = append(args, string(filter.Status))
	}

	query := feedbackSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY f.status DESC, f.category ASC, f.created_at DESC, f.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query feedback", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to query feedback: %w", apperrors.ErrStore, err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			r.logger.Error("failed to scan feedback", zap.Error(err))
			return nil, fmt.Errorf("%w: failed to scan feedback: %w", apperrors.ErrStore, err)
		}
		result = append(result, *f)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating feedback", zap.Error(err))
		return nil, fmt.Errorf("%w: error iterating feedback: %w", apperrors.ErrStore, err)
	}

	return result, nil
}

// GetByID retrieves a feedback entry with its author
func (r *feedbackRepository) GetByID(ctx context.Context, id int) (*models.Feedback, error) {
	query := feedbackSelect + " WHERE f.id = ?"

	f, err := scanFeedback(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: feedback not found", apperrors.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get feedback by id", zap.Error(err), zap.Int("id", id))
		return nil, fmt.Errorf("%w: failed to get feedback by id: %w", apperrors.ErrStore, err)
	}

	return f, nil
}

// Create inserts a new feedback entry and fills in its ID and timestamps
func (r *feedbackRepository) Create(ctx context.Context, f *models.Feedback) error {
	query := `
		INSERT INTO feedback (title, content, rating, category, status, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := r.now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx, query,
		f.Title,
		f.Content,
		f.Rating,
		f.Category,
		string(f.Status),
		f.UserID,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("failed to create feedback", zap.Error(err))
		return fmt.Errorf("%w: failed to create feedback: %w", apperrors.ErrStore, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("%w: failed to get last insert id: %w", apperrors.ErrStore, err)
	}

	f.ID = int(id)
	f.CreatedAt = now
	f.UpdatedAt = now
	return nil
}

// UpdateContent overwrites the user editable fields of a feedback entry
func (r *feedbackRepository) UpdateContent(ctx context.Context, id int, content models.FeedbackContent) (time.Time, error) {
	query := `
		UPDATE feedback
		SET title = ?, content = ?, rating = ?, category = ?, updated_at = ?
		WHERE id = ?
	`

	now := r.now().UTC().Truncate(time.Second)
	if err := r.execOne(ctx, "update feedback content", query,
		content.Title, content.Content, content.Rating, content.Category, now, id,
	); err != nil {
		return time.Time{}, err
	}

	return now, nil
}

// UpdateStatus sets the status of a feedback entry, provided the row still has the
// category and status the caller authorized against. A row that changed in between
// is reported as apperrors.ErrNotFound.
func (r *feedbackRepository) UpdateStatus(ctx context.Context, id int, expected models.StatusGuard, status models.Status) (*models.StatusUpdate, error) {
	query := `
		UPDATE feedback
		SET status = ?, updated_at = ?
		WHERE id = ? AND category <=> ? AND status = ?
	`

	now := r.now().UTC().Truncate(time.Second)
	if err := r.execOne(ctx, "update feedback status", query,
		string(status), now, id, expected.Category, string(expected.Status),
	); err != nil {
		return nil, err
	}

	return &models.StatusUpdate{ID: id, Status: status, UpdatedAt: now}, nil
}

// Delete removes a feedback entry
func (r *feedbackRepository) Delete(ctx context.Context, id int) error {
	return r.execOne(ctx, "delete feedback", `DELETE FROM feedback WHERE id = ?`, id)
}

// execOne runs a statement that must touch exactly one feedback row
func (r *feedbackRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to "+op, zap.Error(err))
		return fmt.Errorf("%w: failed to %s: %w", apperrors.ErrStore, op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("failed to get rows affected", zap.Error(err))
		return fmt.Errorf("%w: failed to get rows affected: %w", apperrors.ErrStore, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: feedback not found", apperrors.ErrNotFound)
	}

	return nil
}

func scanFeedback(row rowScanner) (*models.Feedback, error) {
	var (
		f      models.Feedback
		status string
		author models.FeedbackAuthor
	)
	err := row.Scan(
		&f.ID,
		&f.Title,
		&f.Content,
		&f.Rating,
		&f.Category,
		&status,
		&f.UserID,
		&f.CreatedAt,
		&f.UpdatedAt,
		&author.Name,
		&author.Email,
	)
	if err != nil {
		return nil, err
	}
	f.Status = models.Status(status)
	f.Author = &author
	return &f, nil
}
