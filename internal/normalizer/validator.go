package normalizer

import (
	"errors"
	"strings"

	"oski/pkg/utils"
)

// Validation errors.
var (
	ErrMissingTitle = errors.New("item missing title")
	ErrMissingLink  = errors.New("item missing link")
	ErrInvalidLink  = errors.New("item link is not an absolute http(s) URL")
	ErrEmptyTitle   = errors.New("item title is empty after sanitizing")
)

// Validator handles raw item validation.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that an item carries the fields an Article needs.
func (v *Validator) Validate(item RawItem) error {
	if strings.TrimSpace(item.Title) == "" {
		return ErrMissingTitle
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		return ErrMissingLink
	}

	if !utils.IsValidURL(link) {
		return ErrInvalidLink
	}

	return nil
}
