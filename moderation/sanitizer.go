package moderation

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips every HTML element from user text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *Sanitizer) Filter(text string) string {
	return s.policy.Sanitize(text)
}
