// Package dplerr defines the error taxonomy shared by every stage and by
// the pipeline controller: Configuration, Protocol, Resource, Transient,
// Stage, and Hard errors (see spec §7).
//
// Transient conditions (ring full/empty) are represented as the sentinel
// errors below and are expected to be handled by the caller without
// logging; everything else is either fatal at init (Configuration,
// Resource), surfaced immediately to the triggering API call
// (Protocol), attached to the result (Stage), or counted and logged by
// the worker, which continues (Hard).
package dplerr

import (
	"errors"
	"fmt"
)

// Sentinel errors returned directly by engine and ring-buffer entry
// points. Callers should use errors.Is against these, not string
// comparison.
var (
	ErrNoSlot            = errors.New("dpl: no free slot")
	ErrNoData            = errors.New("dpl: no data available")
	ErrNotRunning         = errors.New("dpl: pipeline is not running")
	ErrProtocolViolation = errors.New("dpl: ring-buffer protocol violation")
	ErrUnknownCameraModel = errors.New("dpl: unknown camera model")
)

// Kind classifies an error for diagnostics and metrics, independent of
// the Go error chain used for programmatic handling.
type Kind int

const (
	// KindConfiguration covers unknown camera models, unreadable
	// parameter files, and out-of-range values. Fatal at init.
	KindConfiguration Kind = iota
	// KindProtocol covers ring-buffer acquire/commit misuse and submit
	// calls issued after terminate. Surfaced immediately.
	KindProtocol
	// KindResource covers thread/event/semaphore creation failure.
	// Fatal at init.
	KindResource
	// KindTransient covers ring-full / ring-empty conditions. Never
	// logged as an error; returned to the immediate caller only.
	KindTransient
	// KindStage covers a negative return from a stage (invalid
	// geometry, accelerator build failure). Attached to the result;
	// the pipeline continues.
	KindStage
	// KindHard covers an invariant violation observed inside the
	// worker (an impossible ring-state transition). The worker marks
	// the slot invalid and continues; a counter is exposed via
	// diagnostics.
	KindHard
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindProtocol:
		return "protocol"
	case KindResource:
		return "resource"
	case KindTransient:
		return "transient"
	case KindStage:
		return "stage"
	case KindHard:
		return "hard"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind, matching the taxonomy of
// spec §7. Configuration and Resource errors are typically constructed
// at init and returned directly; Stage errors are attached to a
// ResultFrame instead of being returned.
type Error struct {
	Kind  Kind
	Stage string // empty unless Kind == KindStage
	Code  int    // stage-specific negative code, or 0
	Err   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("dpl: %s: %s (code %d): %v", e.Kind, e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("dpl: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Configuration builds a Configuration-kind error.
func Configuration(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

// Resource builds a Resource-kind error.
func Resource(format string, args ...any) error {
	return &Error{Kind: KindResource, Err: fmt.Errorf(format, args...)}
}

// Stage builds a Stage-kind error attached to a result rather than
// returned from an API call.
func Stage(stage string, code int, err error) *Error {
	return &Error{Kind: KindStage, Stage: stage, Code: code, Err: err}
}

// Hard builds a Hard-kind error for an invariant violation observed
// inside the worker loop.
func Hard(format string, args ...any) *Error {
	return &Error{Kind: KindHard, Err: fmt.Errorf(format, args...)}
}
