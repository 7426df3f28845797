package translation

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNoTranslation is returned when a translated attribute is read on an
	// entity that has no active translation attached.
	ErrNoTranslation = errors.New("translation: no translation is active")

	// ErrNotFound is returned when a shared or translation row is missing.
	ErrNotFound = errors.New("translation: record not found")

	// ErrNotRegistered is returned when an entity type was never registered
	// with Register.
	ErrNotRegistered = errors.New("translation: entity type is not registered")

	// ErrDuplicate is returned by ValidateUnique when a partitioned unique
	// constraint would be violated.
	ErrDuplicate = errors.New("translation: unique constraint violated")

	// ErrUnknownField is returned when an accessor is requested for a field
	// that belongs to neither schema.
	ErrUnknownField = errors.New("translation: unknown field")
)

// ConfigError reports an invalid translatable declaration. It is detected at
// registration time and is fatal: a schema carrying one must not be used.
type ConfigError struct {
	Entity string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("translation: improperly configured %s: %s", e.Entity, e.Reason)
}

func configErr(entity, format string, args ...any) error {
	return &ConfigError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// CheckError is a single finding from Schema.Check. Findings are collected
// and reported as a batch, never raised, so all problems on a schema can be
// fixed in one pass.
type CheckError struct {
	ID      string // stable identifier, e.g. "translation.E001"
	Object  string // entity name the finding applies to
	Field   string // offending field, when one exists
	Message string
}

func (e CheckError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s (field %q)", e.ID, e.Object, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s: %s", e.ID, e.Object, e.Message)
}

// NotFoundError signals that the entity, or the translation row serving it,
// does not exist. It matches both ErrNotFound and gorm.ErrRecordNotFound via
// errors.Is, so callers can catch a single error type regardless of which of
// the two rows was missing.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("translation: %s matching query does not exist", e.Entity)
}

func (e *NotFoundError) Unwrap() []error {
	return []error{ErrNotFound, gorm.ErrRecordNotFound}
}
