package errors

import (
	"regexp"
	"slices"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateDeclarationName checks that name can appear as an identifier in the
// engine configuration source. Anything else could never match a declaration
// and would make every candidate fail with PATCH_PATTERN_MISMATCH.
func ValidateDeclarationName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "declaration name cannot be empty")
	}
	if !identRe.MatchString(name) {
		return New(ErrCodeInvalidConfig, "declaration name %q is not an identifier", name)
	}
	return nil
}

// ValidateDeclarationNames validates every name and rejects duplicates.
func ValidateDeclarationNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if err := ValidateDeclarationName(n); err != nil {
			return err
		}
		if seen[n] {
			return New(ErrCodeInvalidConfig, "declaration name %q is used twice", n)
		}
		seen[n] = true
	}
	return nil
}

// ValidateOutputFormat validates a report output format.
func ValidateOutputFormat(format string, allowed []string) error {
	if slices.Contains(allowed, format) {
		return nil
	}
	return New(ErrCodeInvalidFormat, "invalid output format %q (expected one of: %s)",
		format, strings.Join(allowed, ", "))
}

// ValidateFormatToken validates the output-format token passed to the
// rendering executable. It is a single positional argument, so whitespace
// and control characters are rejected.
func ValidateFormatToken(token string) error {
	if token == "" {
		return New(ErrCodeInvalidConfig, "render format token cannot be empty")
	}
	for _, r := range token {
		if r <= ' ' || r == 0x7f {
			return New(ErrCodeInvalidConfig, "render format token %q contains whitespace or control characters", token)
		}
	}
	return nil
}
