// Package errors provides structured error handling for the netimage pipeline.
//
// Since this package has the same name as the standard library errors
// package, import it with an alias where both are needed:
//
//	import imgerrors "github.com/go-drift/netimage/pkg/errors"
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindNetwork indicates a fetch failure: connectivity, timeout, or a
	// non-success response.
	KindNetwork
	// KindDecode indicates bytes that did not decode to a valid image,
	// including a failed thumbnail downsample.
	KindDecode
	// KindCanceled indicates a load abandoned because its context was
	// canceled or its deadline passed.
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error represents a structured error in the netimage pipeline.
type Error struct {
	// Op is the operation that failed (e.g., "fetch.HTTPGetter.Get").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// URL is the remote resource location, if applicable.
	URL string
	// Err is the underlying error.
	Err error
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s [%s] url=%s: %v", e.Op, e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == kind
}

// ErrorHandler receives errors reported by the netimage pipeline.
type ErrorHandler interface {
	// HandleError is called when a pipeline stage fails.
	HandleError(err *Error)
}
