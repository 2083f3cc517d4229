// Package policy decides what a session may read and change.
//
// Every read path narrows its query through Resolve, and every mutation
// path asks the matching Authorize function before touching the store.
// Unknown roles are denied everything.
package policy

import (
	"fmt"

	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
)

// ScopeKind enumerates the read scopes a role can have
type ScopeKind int

// ScopeKind constants
const (
	ScopeNone ScopeKind = iota
	ScopeAll
	ScopeByCategory
	ScopeOwn
)

// ReadScope describes which feedback rows a session may read
type ReadScope struct {
	Kind     ScopeKind
	Category models.Category // set for ScopeByCategory
	UserID   int             // set for ScopeOwn
}

// ReadScopeFor maps a session to its read scope
func ReadScopeFor(s models.Session) ReadScope {
	switch s.Role.Kind {
	case models.RoleKindSuperAdmin, models.RoleKindAdmin:
		return ReadScope{Kind: ScopeAll}
	case models.RoleKindCategoryAdmin:
		if !s.Role.Valid() {
			return ReadScope{Kind: ScopeNone}
		}
		return ReadScope{Kind: ScopeByCategory, Category: s.Role.Category}
	case models.RoleKindUser:
		if s.UserID <= 0 {
			return ReadScope{Kind: ScopeNone}
		}
		return ReadScope{Kind: ScopeOwn, UserID: s.UserID}
	default:
		return ReadScope{Kind: ScopeNone}
	}
}

// Allows reports whether a single row falls inside the scope
func (rs ReadScope) Allows(f *models.Feedback) bool {
	switch rs.Kind {
	case ScopeAll:
		return true
	case ScopeByCategory:
		return f.Category == rs.Category
	case ScopeOwn:
		return f.UserID == rs.UserID
	default:
		return false
	}
}

// CanRead reports whether the session may read the feedback row
func CanRead(s models.Session, f *models.Feedback) bool {
	return ReadScopeFor(s).Allows(f)
}

// CapabilitiesFor returns the mutations the session may perform on the row
func CapabilitiesFor(s models.Session, f *models.Feedback) models.Permissions {
	var p models.Permissions
	switch s.Role.Kind {
	case models.RoleKindSuperAdmin, models.RoleKindAdmin:
		p.CanChangeStatus = true
	case models.RoleKindCategoryAdmin:
		p.CanChangeStatus = s.Role.Valid() && f.Category == s.Role.Category
	case models.RoleKindUser:
		owns := s.UserID > 0 && f.UserID == s.UserID
		p.CanEditContent = owns && !f.IsCompleted()
		p.CanDelete = owns && !f.IsCompleted()
	}
	return p
}

// AuthorizeStatusChange returns ErrUnauthorized unless the session may change the row's status
func AuthorizeStatusChange(s models.Session, f *models.Feedback) error {
	if !s.Role.IsAdmin() {
		return fmt.Errorf("%w: only admins can update feedback status", apperrors.ErrUnauthorized)
	}
	if !CapabilitiesFor(s, f).CanChangeStatus {
		return fmt.Errorf("%w: feedback is outside your category", apperrors.ErrUnauthorized)
	}
	return nil
}

// AuthorizeContentChange returns ErrUnauthorized unless the session may edit the row
func AuthorizeContentChange(s models.Session, f *models.Feedback) error {
	if CapabilitiesFor(s, f).CanEditContent {
		return nil
	}
	return ownerDenial(s, f, "edit")
}

// AuthorizeDelete returns ErrUnauthorized unless the session may delete the row
func AuthorizeDelete(s models.Session, f *models.Feedback) error {
	if CapabilitiesFor(s, f).CanDelete {
		return nil
	}
	return ownerDenial(s, f, "delete")
}

func ownerDenial(s models.Session, f *models.Feedback, action string) error {
	if s.Role.Kind == models.RoleKindUser && f.UserID == s.UserID && f.IsCompleted() {
		return fmt.Errorf("%w: completed feedback can no longer be changed", apperrors.ErrUnauthorized)
	}
	return fmt.Errorf("%w: only the author can %s this feedback", apperrors.ErrUnauthorized, action)
}

// CanCreateFeedback reports whether the session may submit feedback
func CanCreateFeedback(s models.Session) bool {
	return s.Role.Kind == models.RoleKindUser && s.UserID > 0
}

// CanManageUsers reports whether the session may list, create and delete accounts
func CanManageUsers(s models.Session) bool {
	return s.Role.Kind == models.RoleKindSuperAdmin
}
