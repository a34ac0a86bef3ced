// Package errors classifies pipeline failures into the categories reported
// to callers.
package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindMissingInput          Kind = "MissingInput"
	KindInputTypeMismatch     Kind = "InputTypeMismatch"
	KindUnsupportedInputType  Kind = "UnsupportedInputType"
	KindDownloadFailed        Kind = "DownloadFailed"
	KindExtractionFailed      Kind = "ExtractionFailed"
	KindBundleNotFound        Kind = "BundleNotFound"
	KindManifestUnreadable    Kind = "ManifestUnreadable"
	KindArchitectureMismatch  Kind = "ArchitectureMismatch"
	KindVersionMismatch       Kind = "VersionMismatch"
	KindBundleIDMismatch      Kind = "BundleIdMismatch"
	KindInvalidURL            Kind = "InvalidURL"
	KindPackageCreationFailed Kind = "PackageCreationFailed"
	KindVerificationFailed    Kind = "VerificationFailed"
)

type classifiedError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *classifiedError) Error() string {
	switch {
	case e.msg == "" && e.cause == nil:
		return string(e.kind)
	case e.cause == nil:
		return e.msg
	case e.msg == "":
		return e.cause.Error()
	default:
		return e.msg + ": " + e.cause.Error()
	}
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &classifiedError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause. The message may be empty. A nil cause yields nil.
func Wrap(cause error, kind Kind, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the outermost kind found in err's chain, or "".
func KindOf(err error) Kind {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Describe renders err the way the command line reports it.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if kind := KindOf(err); kind != "" {
		return fmt.Sprintf("[%s] %s", kind, err.Error())
	}
	return err.Error()
}
