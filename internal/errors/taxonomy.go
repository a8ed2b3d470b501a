package errors

import (
	"fmt"
	"strings"
)

// ParseError reports a content file that could not be turned into a unit.
type ParseError struct {
	Path  string
	Field string // optional; set when a single field is at fault
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse %s: field %q: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error           { return e.Err }
func (e *ParseError) Classify() ErrorCategory { return CategoryContent }

// DuplicateSlugError reports two units of one engine sharing a slug.
type DuplicateSlugError struct {
	Engine string
	Slug   string
	First  string
	Second string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("engine %s: duplicate slug %q: %s and %s", e.Engine, e.Slug, e.First, e.Second)
}

func (e *DuplicateSlugError) Classify() ErrorCategory { return CategoryContent }

// MissingFieldError reports a pagination pattern keyed on a field that some,
// but not all, units define.
type MissingFieldError struct {
	Engine  string
	Pattern string
	Field   string
	Path    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("engine %s: pagination %q: field %q missing in %s", e.Engine, e.Pattern, e.Field, e.Path)
}

func (e *MissingFieldError) Classify() ErrorCategory { return CategoryContent }

// UnresolvedPlaceholderError reports a permalink placeholder with no value.
type UnresolvedPlaceholderError struct {
	Pattern string
	Field   string
	Owner   string
}

func (e *UnresolvedPlaceholderError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("permalink %q: unresolved placeholder %q", e.Pattern, e.Field)
	}
	return fmt.Sprintf("permalink %q: unresolved placeholder %q for %s", e.Pattern, e.Field, e.Owner)
}

func (e *UnresolvedPlaceholderError) Classify() ErrorCategory { return CategoryContent }

// PermalinkCollisionError reports two outputs resolving to the same path.
type PermalinkCollisionError struct {
	Path   string
	Owners []string
}

func (e *PermalinkCollisionError) Error() string {
	return fmt.Sprintf("permalink collision at %s: %s", e.Path, strings.Join(e.Owners, ", "))
}

func (e *PermalinkCollisionError) Classify() ErrorCategory { return CategoryBuild }

// GenerationError wraps the error that aborted a generation pass together
// with the stage it happened in.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed in %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Classify reports the category of the underlying error, falling back to build.
func (e *GenerationError) Classify() ErrorCategory {
	if c := GetCategory(e.Err); c != CategoryInternal {
		return c
	}
	return CategoryBuild
}
