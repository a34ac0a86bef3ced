package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrapRoundTrip(t *testing.T) {
	base := stderrors.New("exit status 1")
	err := Wrap(base, KindExtractionFailed, "ditto failed for %s", "app.zip")
	if err == nil {
		t.Fatal("expected wrapped error")
	}
	if KindOf(err) != KindExtractionFailed {
		t.Fatalf("unexpected kind: %s", KindOf(err))
	}
	if !stderrors.Is(err, base) {
		t.Fatal("expected wrapped error to preserve cause")
	}
	if err.Error() != "ditto failed for app.zip: exit status 1" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestKindSurvivesFmtWrapping(t *testing.T) {
	err := fmt.Errorf("processing first input: %w", New(KindVersionMismatch, "1.0 != 1.1"))
	if !Is(err, KindVersionMismatch) {
		t.Fatalf("expected VersionMismatch, got %q", KindOf(err))
	}
	if Describe(err) != "[VersionMismatch] processing first input: 1.0 != 1.1" {
		t.Fatalf("unexpected description: %q", Describe(err))
	}
}

func TestUnclassifiedDefaults(t *testing.T) {
	err := stderrors.New("plain")
	if KindOf(err) != "" {
		t.Fatalf("unexpected kind: %s", KindOf(err))
	}
	if Is(nil, KindMissingInput) {
		t.Fatal("nil error must not match a kind")
	}
	if Describe(err) != "plain" {
		t.Fatalf("unexpected description: %q", Describe(err))
	}
}

func TestWrapNilCauseReturnsNil(t *testing.T) {
	if got := Wrap(nil, KindDownloadFailed, "fetch"); got != nil {
		t.Fatalf("expected nil wrapped error, got=%v", got)
	}
}

func TestNewWithoutMessageUsesKind(t *testing.T) {
	err := New(KindBundleNotFound, "")
	if err.Error() != "BundleNotFound" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
