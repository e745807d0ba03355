package services_test

import (
	"errors"
	"strings"
	"testing"

	"picname/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrInference, "vision", "describe", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"vision", "describe", "request failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrEmptyDescription, "", "", "", nil)
	if !errors.Is(err, services.ErrEmptyDescription) {
		t.Fatalf("expected marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	fatal := services.Wrap(services.ErrDirectoryNotFound, "scan", "open", "/nope", nil)
	if !services.IsFatal(fatal) {
		t.Fatal("expected directory not found to be fatal")
	}
	for _, marker := range []error{
		services.ErrInference,
		services.ErrEmptyDescription,
		services.ErrCollisionLimit,
		services.ErrApplyIO,
	} {
		if services.IsFatal(services.Wrap(marker, "renamer", "file", "x", nil)) {
			t.Fatalf("expected %v to be non-fatal", marker)
		}
	}
	if services.IsFatal(nil) {
		t.Fatal("expected nil to be non-fatal")
	}
}

func TestReasonMapping(t *testing.T) {
	cases := map[string]error{
		"inference":         services.Wrap(services.ErrInference, "a", "b", "c", nil),
		"empty_description": services.Wrap(services.ErrEmptyDescription, "a", "b", "c", nil),
		"collision_limit":   services.Wrap(services.ErrCollisionLimit, "a", "b", "c", nil),
		"apply_io":          services.Wrap(services.ErrApplyIO, "a", "b", "c", nil),
		"name_too_long":     services.Wrap(services.ErrNameTooLong, "a", "b", "c", nil),
		"unexpected":        errors.New("something else"),
	}
	for want, err := range cases {
		if got := services.Reason(err); got != want {
			t.Fatalf("Reason(%v) = %q, want %q", err, got, want)
		}
	}
	if got := services.Reason(nil); got != "" {
		t.Fatalf("expected empty reason for nil, got %q", got)
	}
}
