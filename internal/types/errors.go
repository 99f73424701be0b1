package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the roster, the storage backends and the HTTP
// layer. Everything except ErrStorageUnavailable is an expected outcome
// that is shown to the user as an actionable message.
var (
	ErrValidationFailed    = errors.New("validation failed")
	ErrDuplicateRollNumber = errors.New("roll number already exists")
	ErrNotFound            = errors.New("student not found")
	ErrInvalidPattern      = errors.New("invalid skill pattern")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// ViolationKind names the field rule a candidate record broke.
type ViolationKind string

const (
	InvalidRollNumber ViolationKind = "InvalidRollNumber"
	InvalidName       ViolationKind = "InvalidName"
	InvalidPhone      ViolationKind = "InvalidPhone"
	InvalidSkills     ViolationKind = "InvalidSkills"
)

// Violation is a single field-level rule failure.
type Violation struct {
	Field   string        `json:"field"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

// Violations is the full result of validating one record. An empty list
// means the record is valid.
type Violations []Violation

// Has reports whether any violation is of the given kind.
func (v Violations) Has(kind ViolationKind) bool {
	for _, x := range v {
		if x.Kind == kind {
			return true
		}
	}
	return false
}

// Messages returns the human-readable message of every violation.
func (v Violations) Messages() []string {
	out := make([]string, len(v))
	for i, x := range v {
		out[i] = x.Message
	}
	return out
}

// ValidationError carries every violation found for one request.
// errors.Is(err, ErrValidationFailed) holds for it.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error() + ": " + strings.Join(e.Violations.Messages(), ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// PatternError explains why a skill search pattern was rejected.
// errors.Is(err, ErrInvalidPattern) holds for it.
type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidPattern, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidPattern, e.Pattern, e.Reason)
}

func (e *PatternError) Unwrap() error { return ErrInvalidPattern }
