package models

import "fmt"

// Status is the processing state of a feedback entry
type Status string

// Status constants
const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// ParseStatus converts a raw string into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusInProgress, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid status value: %q, must be either 'IN_PROGRESS' or 'COMPLETED'", s)
	}
}

// CanTransition reports whether a feedback entry may move from s to target.
// Both directions between IN_PROGRESS and COMPLETED are allowed; completed
// feedback can be reopened by an admin.
func (s Status) CanTransition(target Status) bool {
	switch s {
	case StatusInProgress:
		return target == StatusCompleted
	case StatusCompleted:
		return target == StatusInProgress
	default:
		return false
	}
}
