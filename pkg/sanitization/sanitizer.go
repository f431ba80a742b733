package sanitization

import (
	"fmt"
	"regexp"
)

type (
	// Sanitizer normalizes resource names against a service's character rules
	// and tracks the service's name length budget.
	Sanitizer struct {
		rules     []Rule
		maxLength int
	}

	Rule struct {
		Pattern     *regexp.Regexp
		Replacement string
	}
)

func NewSanitizer(rules []Rule, maxLength int) *Sanitizer {
	return &Sanitizer{rules: rules, maxLength: maxLength}
}

// Apply runs every rule against the input in order. It never truncates:
// length handling is the caller's concern (see DeriveName and Validate).
func (s *Sanitizer) Apply(input string) string {
	output := input
	for _, rule := range s.rules {
		output = rule.Pattern.ReplaceAllString(output, rule.Replacement)
	}
	return output
}

func (s *Sanitizer) MaxLength() int {
	return s.maxLength
}

// Validate rejects caller-supplied names that the rules would have to alter.
// A name we would silently rewrite is a name the caller did not ask for.
func (s *Sanitizer) Validate(input string) error {
	if input == "" {
		return fmt.Errorf("name must not be empty")
	}
	if sanitized := s.Apply(input); sanitized != input {
		return fmt.Errorf("invalid name %q: permitted form is %q", input, sanitized)
	}
	if s.maxLength > 0 && len(input) > s.maxLength {
		return fmt.Errorf("name %q exceeds the %d character limit", input, s.maxLength)
	}
	return nil
}

// DeriveName builds a companion resource name of the form "<base>-<suffix>".
// When the result would exceed the length budget it reports ok=false and the
// caller must leave the name unset so the provisioning layer generates one.
// Derived names are never truncated.
func (s *Sanitizer) DeriveName(base string, suffix string) (string, bool) {
	name := s.Apply(fmt.Sprintf("%s-%s", base, suffix))
	if s.maxLength > 0 && len(name) > s.maxLength {
		return "", false
	}
	return name, true
}
