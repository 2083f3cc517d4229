package models

import "time"

// Feedback represents a feedback entry submitted by a user
type Feedback struct {
	ID        int             `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Rating    int             `json:"rating"`
	Category  Category        `json:"category"`
	Status    Status          `json:"status"`
	UserID    int             `json:"userId"`
	Author    *FeedbackAuthor `json:"user,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// FeedbackAuthor holds the public details of the user who submitted a feedback entry
type FeedbackAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// IsCompleted reports whether the feedback has been resolved
func (f *Feedback) IsCompleted() bool {
	return f.Status == StatusCompleted
}

// FeedbackFilter narrows a feedback listing.
// Zero fields do not restrict the result.
type FeedbackFilter struct {
	UserID        int
	Category      Category
	Uncategorized bool
	Status        Status
	// MatchNone is set when the caller's scope and requested filters cannot overlap
	MatchNone bool
}

// FeedbackQuery holds the optional filters a caller asks for when listing feedback
type FeedbackQuery struct {
	Category string
	Status   string
}

// FeedbackContent holds the user editable fields of a feedback entry
type FeedbackContent struct {
	Title    string
	Content  string
	Rating   int
	Category Category
}

// CreateFeedbackRequest represents a new feedback submission
type CreateFeedbackRequest struct {
	Title    string `json:"title" validate:"required,notblank,max=255"`
	Content  string `json:"content" validate:"required,notblank,max=10000"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Category string `json:"category" validate:"omitempty,category"`
}

// UpdateFeedbackRequest represents an edit of a feedback entry by its owner
type UpdateFeedbackRequest struct {
	Title    string `json:"title" validate:"required,notblank,max=255"`
	Content  string `json:"content" validate:"required,notblank,max=10000"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Category string `json:"category" validate:"omitempty,category"`
}

// UpdateStatusRequest carries the target status of a feedback entry
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// StatusUpdate is the result of a status mutation
type StatusUpdate struct {
	ID        int       `json:"id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusGuard is the row state a status change was authorized against
type StatusGuard struct {
	Category Category
	Status   Status
}

// Permissions tells the presentation layer which mutations the caller may perform on a row
type Permissions struct {
	CanEditContent  bool `json:"canEditContent"`
	CanDelete       bool `json:"canDelete"`
	CanChangeStatus bool `json:"canChangeStatus"`
}

// FeedbackDetail is a feedback entry together with the caller's permissions on it
type FeedbackDetail struct {
	Feedback    *Feedback   `json:"feedback"`
	Permissions Permissions `json:"permissions"`
}

// FeedbackGroup is one category bucket of a grouped listing
type FeedbackGroup struct {
	Category string     `json:"category"`
	Items    []Feedback `json:"items"`
}
