package model

import (
	"strings"
	"testing"
)

// validSettings returns Settings that pass all validation rules.
func validSettings() Settings {
	return Settings{
		CheckInterval:   DefaultCheckInterval,
		BatchSize:       DefaultBatchSize,
		PublicGroup:     1,
		RegisteredGroup: 2,
	}
}

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidate_Valid(t *testing.T) {
	if err := validSettings().Validate(); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
}

func TestValidate_MissingPublicGroup(t *testing.T) {
	s := validSettings()
	s.PublicGroup = 0
	errs := fieldErrors(t, s.Validate())
	if len(errs) != 1 || !hasFieldError(errs, KeyPublicGroup) {
		t.Fatalf("expected a single public_group error, got %+v", errs)
	}
}

func TestValidate_MissingBothGroupsReportedTogether(t *testing.T) {
	s := validSettings()
	s.PublicGroup = 0
	s.RegisteredGroup = 0
	errs := fieldErrors(t, s.Validate())
	if !hasFieldError(errs, KeyPublicGroup) || !hasFieldError(errs, KeyRegisteredGroup) {
		t.Fatalf("expected both group errors, got %+v", errs)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
}

func TestValidate_SameGroups(t *testing.T) {
	s := validSettings()
	s.RegisteredGroup = s.PublicGroup
	errs := fieldErrors(t, s.Validate())
	if !hasFieldError(errs, KeyRegisteredGroup) {
		t.Fatalf("expected registered_group error, got %+v", errs)
	}
}

func TestValidationError_Format(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: KeyPublicGroup, Message: "is required"},
		{Field: KeyRegisteredGroup, Message: "is required"},
	}}
	msg := ve.Error()
	if !strings.HasPrefix(msg, "validation failed: ") {
		t.Fatalf("unexpected prefix: %q", msg)
	}
	if !strings.Contains(msg, "public_group: is required; registered_group: is required") {
		t.Fatalf("unexpected message: %q", msg)
	}
	if got := strings.Join(ve.Fields(), ","); got != "public_group,registered_group" {
		t.Fatalf("Fields() = %q", got)
	}
}
