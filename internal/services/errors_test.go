package services_test

import (
	"errors"
	"strings"
	"testing"

	"boardwatch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrUpstream, "articles", "summarize", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"articles", "summarize", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "", "", "", nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestDegradable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", services.Wrap(services.ErrNotFound, "store", "read", "", nil), true},
		{"corrupt", services.Wrap(services.ErrCorruptData, "store", "read", "", errors.New("eof")), true},
		{"malformed", services.Wrap(services.ErrMalformedOutput, "articles", "classify", "", nil), true},
		{"io", services.Wrap(services.ErrIO, "store", "write", "", errors.New("disk full")), false},
		{"upstream", services.Wrap(services.ErrUpstream, "llm", "post", "", nil), false},
	}
	for _, tc := range cases {
		if got := services.Degradable(tc.err); got != tc.want {
			t.Fatalf("%s: Degradable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
