package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RoleKind distinguishes the variants of Role
type RoleKind int

// RoleKind constants. RoleKindUnknown is the zero value and never grants anything.
const (
	RoleKindUnknown RoleKind = iota
	RoleKindSuperAdmin
	RoleKindAdmin
	RoleKindCategoryAdmin
	RoleKindUser
)

// Role is a tagged value: SuperAdmin | Admin | CategoryAdmin(Category) | User.
// Category is only set for RoleKindCategoryAdmin.
type Role struct {
	Kind     RoleKind
	Category Category
}

// Wire names of the non-category roles
const (
	roleNameSuperAdmin = "SUPER_ADMIN"
	roleNameAdmin      = "ADMIN"
	roleNameUser       = "USER"
)

// Predefined roles
var (
	RoleSuperAdmin = Role{Kind: RoleKindSuperAdmin}
	RoleAdmin      = Role{Kind: RoleKindAdmin}
	RoleUser       = Role{Kind: RoleKindUser}
)

// categoryAdminNames is the fixed role → category table.
// Every category except Others has exactly one admin role.
var categoryAdminNames = map[Category]string{
	CategoryStaff:           "ADMIN_STAFF",
	CategoryFacilities:      "ADMIN_FACILITIES",
	CategoryExtracurricular: "ADMIN_EXTRACURRICULAR",
	CategoryResources:       "ADMIN_RESOURCES",
	CategoryCurriculum:      "ADMIN_CURRICULUM",
	CategoryPolicies:        "ADMIN_POLICIES",
}

// CategoryAdmin returns the admin role scoped to category c.
// It returns an unknown role when c has no admin (Others or invalid).
func CategoryAdmin(c Category) Role {
	if _, ok := categoryAdminNames[c]; !ok {
		return Role{}
	}
	return Role{Kind: RoleKindCategoryAdmin, Category: c}
}

// AllRoles lists every valid role
func AllRoles() []Role {
	roles := []Role{RoleSuperAdmin, RoleAdmin}
	for _, c := range Categories {
		if r := CategoryAdmin(c); r.Valid() {
			roles = append(roles, r)
		}
	}
	return append(roles, RoleUser)
}

// ParseRole converts the wire name of a role ("SUPER_ADMIN", "ADMIN_STAFF", ...) into a Role
func ParseRole(s string) (Role, error) {
	switch s {
	case roleNameSuperAdmin:
		return RoleSuperAdmin, nil
	case roleNameAdmin:
		return RoleAdmin, nil
	case roleNameUser:
		return RoleUser, nil
	}
	for c, name := range categoryAdminNames {
		if name == s {
			return Role{Kind: RoleKindCategoryAdmin, Category: c}, nil
		}
	}
	return Role{}, fmt.Errorf("invalid role: %q", s)
}

// String returns the wire name of the role, or "" for an unknown role
func (r Role) String() string {
	switch r.Kind {
	case RoleKindSuperAdmin:
		return roleNameSuperAdmin
	case RoleKindAdmin:
		return roleNameAdmin
	case RoleKindUser:
		return roleNameUser
	case RoleKindCategoryAdmin:
		return categoryAdminNames[r.Category]
	default:
		return ""
	}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r.String() != ""
}

// IsAdmin reports whether r may triage feedback (any admin flavour)
func (r Role) IsAdmin() bool {
	return r.Kind == RoleKindSuperAdmin || r.Kind == RoleKindAdmin || (r.Kind == RoleKindCategoryAdmin && r.Valid())
}

// MarshalJSON encodes the role by its wire name
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role from its wire name
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scan implements sql.Scanner
func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot store unknown role")
	}
	return r.String(), nil
}
