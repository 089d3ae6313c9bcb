package models

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidUUID is returned when a UUID is invalid
	ErrInvalidUUID = errors.New("invalid UUID")

	// ErrUnknownFieldKind is returned when a site context payload kind is not recognized
	ErrUnknownFieldKind = errors.New("unknown site context field kind")

	// ErrUnknownSectionType is returned when a section type is not in the canonical order table
	ErrUnknownSectionType = errors.New("unknown section type")
)

// ValidationError reports a refused write with the precise items that
// blocked it. MissingRequired is populated by the assembler when required
// section types are absent; MissingRecommended is informational.
type ValidationError struct {
	Reason             string
	MissingRequired    []SectionType
	MissingRecommended []SectionType
}

func (e *ValidationError) Error() string {
	if len(e.MissingRequired) > 0 {
		return fmt.Sprintf("validation failed: missing required sections [%s]", joinSectionTypes(e.MissingRequired))
	}
	return "validation failed: " + e.Reason
}

// StateConflictError is returned when a lifecycle transition is requested
// from a state that does not match its precondition.
type StateConflictError struct {
	Current   ItemStatus
	Requested ItemStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: item is %q, cannot transition to %q", e.Current, e.Requested)
}

// OwnershipError is returned when a publish target domain is not owned by
// the acting principal or is not verified.
type OwnershipError struct {
	Reason string
}

func (e *OwnershipError) Error() string {
	return "ownership check failed: " + e.Reason
}

// ConflictError is returned when another published item already occupies
// the requested (domain, path, slug) address.
type ConflictError struct {
	Slug   string
	Path   string
	Domain string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slug %q already exists at %s", e.Slug, e.Path)
}

func joinSectionTypes(types []SectionType) string {
	parts := make([]string, 0, len(types))
	for _, st := range types {
		parts = append(parts, string(st))
	}
	return strings.Join(parts, ", ")
}
