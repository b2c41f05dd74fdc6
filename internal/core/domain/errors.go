package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes surfaced to the caller alongside a field path.
const (
	CodeAttributeCannotBeAssigned = "ATTRIBUTE_CANNOT_BE_ASSIGNED"
	CodeRequired                  = "REQUIRED"
	CodeInvalid                   = "INVALID"
	CodeDuplicatedInputItem       = "DUPLICATED_INPUT_ITEM"
	CodeUnique                    = "UNIQUE"
	CodeNotFound                  = "NOT_FOUND"
)

// A FieldError is one field-scoped validation failure.
// Attributes lists the offending attribute ids when relevant.
type FieldError struct {
	Field      string
	Code       string
	Message    string
	Attributes []string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s [%s]", e.Field, e.Message, e.Code)
}

// A ValidationError aggregates the field errors of one validation pass.
// The clean phase batches per-attribute errors; other checks carry one.
type ValidationError struct {
	Errors []FieldError
}

func NewValidationError(errs ...FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// HasCode reports whether any field error carries the given code.
func (e *ValidationError) HasCode(code string) bool {
	for _, fe := range e.Errors {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// AsValidation unwraps err into a ValidationError if one is present.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ErrNotFound marks lookups of nonexistent referenced entities.
var ErrNotFound = errors.New("not found")
