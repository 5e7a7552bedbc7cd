package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// packageNameRegex matches valid Python package names (PEP 508).
var packageNameRegex = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// ValidatePackageName validates a Python package name per PEP 508. Seed
// packages are passed to pip as arguments, so anything else is rejected
// before a process is started.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "package name too long (max 256 characters)")
	}
	if !packageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid Python package name: %q", name)
	}
	return nil
}

// ValidatePrompt validates a virtual environment prompt. The prompt is
// written as a single pyvenv.cfg line and into the activation scripts.
func ValidatePrompt(prompt string) error {
	for _, r := range prompt {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "prompt contains invalid control characters: %q", prompt)
		}
	}
	return nil
}

// ValidateEnvironmentName validates the project environment directory name.
//
// Validation rules:
//   - Name cannot be empty
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidateEnvironmentName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "project environment name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "project environment name contains invalid characters")
		}
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return New(ErrCodeInvalidInput, "project environment name cannot contain path traversal sequences (..)")
		}
	}
	return nil
}
