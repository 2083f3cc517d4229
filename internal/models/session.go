package models

// Session identifies the authenticated caller of a request.
// It is derived from the session token and never persisted.
type Session struct {
	UserID int
	Role   Role
}
