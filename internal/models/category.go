package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the subject area a feedback entry belongs to.
// The zero value means the feedback has no category ("Uncategorized").
type Category string

// Category constants
const (
	CategoryStaff           Category = "Staff"
	CategoryFacilities      Category = "Facilities"
	CategoryExtracurricular Category = "Extracurricular"
	CategoryResources       Category = "Resources"
	CategoryCurriculum      Category = "Curriculum"
	CategoryPolicies        Category = "Policies"
	CategoryOthers          Category = "Others"
)

// UncategorizedLabel is the name used for feedback without a category
// in grouped listings and in list filters.
const UncategorizedLabel = "Uncategorized"

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryStaff,
	CategoryFacilities,
	CategoryExtracurricular,
	CategoryResources,
	CategoryCurriculum,
	CategoryPolicies,
	CategoryOthers,
}

// ParseCategory converts a raw string into a Category, ignoring case.
// An empty string yields the zero Category with no error.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return "", nil
	}
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("invalid category: %s", s)
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsZero reports whether the feedback is uncategorized.
func (c Category) IsZero() bool {
	return c == ""
}

// Label returns the display name, "Uncategorized" for the zero value.
func (c Category) Label() string {
	if c.IsZero() {
		return UncategorizedLabel
	}
	return string(c)
}

// MarshalJSON encodes an absent category as null.
func (c Category) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts null, "" or a valid category name.
func (c *Category) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan implements sql.Scanner; NULL maps to the zero Category.
func (c *Category) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = ""
	case string:
		*c = Category(v)
	case []byte:
		*c = Category(v)
	default:
		return fmt.Errorf("cannot scan %T into Category", src)
	}
	return nil
}

// Value implements driver.Valuer; the zero Category is stored as NULL.
func (c Category) Value() (driver.Value, error) {
	if c.IsZero() {
		return nil, nil
	}
	return string(c), nil
}
