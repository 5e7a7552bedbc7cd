package python

import (
	"fmt"

	"github.com/matzehuels/pyseek/pkg/errors"
)

// RequestError reports a version-shaped request that cannot be used. It is
// raised while parsing, before any source is enumerated.
type RequestError struct {
	Request     string
	Reason      string
	Unsupported bool
}

func (e *RequestError) Error() string {
	return "Invalid version request: " + e.Reason
}

// Code implements errors.Coder.
func (e *RequestError) Code() errors.Code {
	if e.Unsupported {
		return errors.ErrCodeUnsupportedVersion
	}
	return errors.ErrCodeRequestParse
}

// NotFoundError reports that no candidate satisfied the request.
type NotFoundError struct {
	Request Request

	// Sources describes the sources that were searched, e.g. "virtual
	// environments, managed installations, or search path".
	Sources string

	// DownloadAvailable is set when a managed download would satisfy the
	// request but downloads are disabled.
	DownloadAvailable bool
}

func (e *NotFoundError) Error() string {
	switch e.Request.Kind {
	case RequestFile:
		return fmt.Sprintf("No interpreter found at path `%s`", e.Request.Path)
	case RequestDirectory:
		return fmt.Sprintf("No interpreter found in directory `%s`", e.Request.Path)
	case RequestAny, RequestDefault:
		return "No interpreter found in " + e.Sources
	}
	return fmt.Sprintf("No interpreter found for %s in %s", e.Request.Description(), e.Sources)
}

// Code implements errors.Coder.
func (e *NotFoundError) Code() errors.Code { return errors.ErrCodeNotFound }

// ProbeErrorKind classifies probe failures.
type ProbeErrorKind int

const (
	ProbeNotFound ProbeErrorKind = iota
	ProbePermissionDenied
	ProbeQuery
	ProbeTimeout
	ProbeParse
)

func (k ProbeErrorKind) String() string {
	switch k {
	case ProbeNotFound:
		return "not found"
	case ProbePermissionDenied:
		return "permission denied"
	case ProbeTimeout:
		return "timeout"
	case ProbeParse:
		return "unparsable output"
	default:
		return "query failed"
	}
}

// ProbeError reports that a candidate executable could not be inspected.
type ProbeError struct {
	Path string
	Kind ProbeErrorKind
	Err  error
}

func (e *ProbeError) Error() string {
	if e.Kind == ProbeNotFound {
		return fmt.Sprintf("Python interpreter not found at `%s`", e.Path)
	}
	if e.Err == nil {
		return fmt.Sprintf("Failed to query Python interpreter at `%s`", e.Path)
	}
	return fmt.Sprintf("Failed to query Python interpreter at `%s`: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Code implements errors.Coder.
func (e *ProbeError) Code() errors.Code { return errors.ErrCodeProbeFailed }
