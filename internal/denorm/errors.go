package denorm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes denormalization errors.
type ErrorCode string

const (
	// ErrCodeSchemaMismatch indicates a union value that does not name a
	// usable item schema.
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"
)

// SchemaMismatchError is returned when a union value lacks its
// discriminator or names a tag the union does not declare.
type SchemaMismatchError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Attribute is the discriminator field the union reads.
	Attribute string

	// Tag is the discriminator value found, empty when missing.
	Tag string

	// Tags lists the tags the union declares.
	Tags []string
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s: %s (%s=%q, expected one of %s)", e.Code, e.Message, e.Attribute, e.Tag, strings.Join(e.Tags, ", "))
	}
	return fmt.Sprintf("%s: %s (attribute=%s)", e.Code, e.Message, e.Attribute)
}

// IsSchemaMismatch returns true if err is or wraps a *SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var se *SchemaMismatchError
	return errors.As(err, &se)
}

func newMissingDiscriminatorError(attr string, tags []string) *SchemaMismatchError {
	return &SchemaMismatchError{
		Code:      ErrCodeSchemaMismatch,
		Message:   "union value has no discriminator",
		Attribute: attr,
		Tags:      tags,
	}
}

func newUnknownTagError(attr, tag string, tags []string) *SchemaMismatchError {
	return &SchemaMismatchError{
		Code:      ErrCodeSchemaMismatch,
		Message:   "union value names an undeclared schema",
		Attribute: attr,
		Tag:       tag,
		Tags:      tags,
	}
}
