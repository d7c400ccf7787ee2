package netimage

import (
	"fmt"
	"image"
)

// PhaseState enumerates the observable states of an asynchronous image
// load.
type PhaseState int

const (
	// PhaseEmpty means no resource is set. This is the zero value.
	PhaseEmpty PhaseState = iota
	// PhaseLoading means the pipeline is running for the current identity.
	PhaseLoading
	// PhaseSuccess means the bitmap is available.
	PhaseSuccess
	// PhaseFailure means the pipeline failed for the current identity.
	PhaseFailure
)

func (s PhaseState) String() string {
	switch s {
	case PhaseEmpty:
		return "empty"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	default:
		return fmt.Sprintf("PhaseState(%d)", int(s))
	}
}

// Phase is a snapshot of an asynchronous image load. Image is non-nil
// only in PhaseSuccess, Err only in PhaseFailure. The bitmap is shared
// with the cache and must be treated as read-only.
type Phase struct {
	State PhaseState
	Image image.Image
	Err   error
}
