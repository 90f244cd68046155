// Package errors provides structured error handling for the reconciler.
//
// Failures come in two tiers. Fatal failures are returned as errors from the
// top-level reconciler operations: a panic inside a component hook becomes a
// [LifecycleError], a rendering-target failure becomes a [ReconcileError].
// Misuse that the reconciler tolerates is reported as a [Warning] through the
// configured [ErrorHandler] and execution continues.
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
	// KindHost indicates a rendering target failure.
	KindHost
	// KindLifecycle indicates a failing component hook.
	KindLifecycle
	// KindElement indicates a malformed element description.
	KindElement
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates a configuration error.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindLifecycle:
		return "lifecycle"
	case KindElement:
		return "element"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidElement is returned when an element type is neither a host
	// tag nor a composite class.
	ErrInvalidElement = stderrors.New("invalid element type")
	// ErrCascadeLimit is returned when a flush keeps producing new updates
	// beyond the configured limit.
	ErrCascadeLimit = stderrors.New("maximum update cascade exceeded")
	// ErrNilContainer is returned when a top-level operation gets a nil container.
	ErrNilContainer = stderrors.New("container handle is nil")
)

// ReconcileError represents a structured error raised by the reconciler.
type ReconcileError struct {
	// Op is the operation that failed (e.g., "host.MountHost").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Component names the component being reconciled, if any.
	Component string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *ReconcileError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s [%s] component=%s: %v", e.Op, e.Kind, e.Component, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "core.BatchedUpdates").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// LifecycleError represents a failure inside a component hook.
type LifecycleError struct {
	// Component is the name of the component that failed.
	Component string
	// Hook is the lifecycle hook that failed (e.g., "Render", "WillUnmount").
	Hook string
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the underlying error. When the recovered value is itself an
	// error it is stored here as well so errors.Is can see it.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *LifecycleError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s.%s(): %v", e.Component, e.Hook, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("error in %s.%s(): %v", e.Component, e.Hook, e.Err)
	}
	return fmt.Sprintf("unknown error in %s.%s()", e.Component, e.Hook)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// ErrorHandler receives errors and diagnostics reported by the reconciler.
type ErrorHandler interface {
	// HandleError is called when an error is reported.
	HandleError(err *ReconcileError)
	// HandlePanic is called when a panic is recovered outside a hook.
	HandlePanic(err *PanicError)
	// HandleWarning is called when a tolerated misuse is detected.
	HandleWarning(w *Warning)
}
