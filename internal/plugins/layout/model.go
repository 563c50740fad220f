// Package layout manages the three editable pieces of the storefront: the
// hero banner, the FAQ and the category list. Each exists at most once.
package layout

import (
	"strings"
	"time"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
)

// Type names one of the layout sections.
type Type string

const (
	TypeBanner     Type = "Banner"
	TypeFAQ        Type = "FAQ"
	TypeCategories Type = "Categories"
)

// ParseType accepts the section names case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "banner":
		return TypeBanner, nil
	case "faq":
		return TypeFAQ, nil
	case "categories":
		return TypeCategories, nil
	default:
		return "", apperror.NewValidation("type must be one of: Banner, FAQ, Categories")
	}
}

// Banner is the storefront hero section.
type Banner struct {
	Image    media.Asset `json:"image"`
	Title    string      `json:"title"`
	SubTitle string      `json:"sub_title"`
}

// FAQItem is one question on the FAQ page. Answer may contain light HTML.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Category is one course category shown in the storefront filter.
type Category struct {
	Title string `json:"title"`
}

// Content is the type-specific part of a layout, stored as one JSON
// document. Only the field matching the layout's type is set.
type Content struct {
	Banner     *Banner    `json:"banner,omitempty"`
	FAQ        []FAQItem  `json:"faq,omitempty"`
	Categories []Category `json:"categories,omitempty"`
}

// Layout is one stored section.
type Layout struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`
	Content
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LayoutRequest is the body of POST /createLayout and PUT /editLayout.
// Which fields matter depends on Type.
type LayoutRequest struct {
	Type       string     `json:"type" validate:"required"`
	Image      string     `json:"image"`
	Title      string     `json:"title" validate:"max=255"`
	SubTitle   string     `json:"subTitle" validate:"max=512"`
	FAQ        []FAQItem  `json:"faq" validate:"dive"`
	Categories []Category `json:"categories" validate:"dive"`
}
