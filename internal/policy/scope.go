package policy

import (
	"fmt"
	"strings"

	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
)

// Resolve turns the session's read scope and the caller's optional filters
// into a repository filter. The scope always wins: a requested filter can only
// narrow the result further, never widen it.
func Resolve(s models.Session, q models.FeedbackQuery) (models.FeedbackFilter, error) {
	scope := ReadScopeFor(s)
	if scope.Kind == ScopeNone {
		return models.FeedbackFilter{}, fmt.Errorf("%w: role %q cannot read feedback", apperrors.ErrUnauthorized, s.Role.String())
	}

	var filter models.FeedbackFilter

	if q.Status != "" {
		status, err := models.ParseStatus(q.Status)
		if err != nil {
			return models.FeedbackFilter{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		filter.Status = status
	}

	var (
		wantCategory      models.Category
		wantUncategorized bool
	)
	if raw := strings.TrimSpace(q.Category); raw != "" {
		if strings.EqualFold(raw, models.UncategorizedLabel) {
			wantUncategorized = true
		} else {
			c, err := models.ParseCategory(raw)
			if err != nil {
				return models.FeedbackFilter{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
			}
			wantCategory = c
		}
	}

	switch scope.Kind {
	case ScopeAll:
		filter.Category = wantCategory
		filter.Uncategorized = wantUncategorized
	case ScopeByCategory:
		filter.Category = scope.Category
		if wantUncategorized || (!wantCategory.IsZero() && wantCategory != scope.Category) {
			filter.MatchNone = true
		}
	case ScopeOwn:
		filter.UserID = scope.UserID
		filter.Category = wantCategory
		filter.Uncategorized = wantUncategorized
	}

	return filter, nil
}
