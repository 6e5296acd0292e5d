package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxPostTextLength    = 10000
	MaxCommentTextLength = 2000
)

var groupSlugRegex = regexp.MustCompile(`^[a-z0-9_-]{1,50}$`)

// Slugs that would shadow a top-level route.
var reservedGroupSlugs = map[string]struct{}{
	"admin":   {},
	"auth":    {},
	"create":  {},
	"follow":  {},
	"group":   {},
	"health":  {},
	"media":   {},
	"metrics": {},
	"posts":   {},
	"profile": {},
	"swagger": {},
}

// ValidatePostText requires non-blank text of at most MaxPostTextLength characters.
func ValidatePostText(text string) error {
	return validateText(text, MaxPostTextLength)
}

// ValidateCommentText requires non-blank text of at most MaxCommentTextLength characters.
func ValidateCommentText(text string) error {
	return validateText(text, MaxCommentTextLength)
}

func validateText(text string, limit int) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("this field is required")
	}
	if utf8.RuneCountInString(text) > limit {
		return fmt.Errorf("text must not exceed %d characters", limit)
	}
	return nil
}

// ValidateGroupSlug validates group slug format and reserved names.
func ValidateGroupSlug(slug string) error {
	if !groupSlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 1-50 characters of lowercase letters, numbers, underscores or hyphens")
	}

	if _, exists := reservedGroupSlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

// ValidateGroupTitle requires a non-blank title of at most 200 characters.
func ValidateGroupTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return fmt.Errorf("title must not exceed 200 characters")
	}
	return nil
}
