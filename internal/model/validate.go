package model

import (
	"fmt"
	"unicode/utf8"

	"github.com/flowmesh/controlplane/internal/apierr"
)

const maxNameLen = 100

// validateName enforces the "non-empty, <=100 chars" rule shared by every
// named entity (spec.md 4.1).
func validateName(resource, name string) error {
	if name == "" {
		return apierr.Validationf(resource, "name", "name must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return apierr.Validationf(resource, "name", "name %q exceeds %d characters", name, maxNameLen)
	}
	return nil
}

func validateOptionalTeamID(resource string, teamID *TeamID) error {
	if teamID == nil {
		return nil
	}
	if !ValidUUID(string(*teamID)) {
		return apierr.Validationf(resource, "team_id", "invalid team_id %q", *teamID)
	}
	return nil
}

func requirePositive(resource, field string, v int) error {
	if v <= 0 {
		return apierr.Validationf(resource, field, "%s must be > 0, got %d", field, v)
	}
	return nil
}

// Validator is implemented by every persistable entity.
type Validator interface {
	Validate() error
}

// ValidateAll runs Validate on each entity and returns the first error,
// wrapping it with an index so the caller can identify which element of
// a bulk-import payload failed.
func ValidateAll[T Validator](items []T) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}
