// Package errors defines the staged error taxonomy for the npk pipeline.
//
// Every failure is attributed to one of the three pipeline stages: resolving
// a foreign package, assembling a container, or installing a container on a
// target host. Stage errors wrap their underlying cause and remain compatible
// with errors.Is / errors.As.
package errors

import (
	"errors"
	"fmt"
)

var (
	// Resolution errors
	ErrNoUnpacker          = errors.New("no unpacking facility available for archive")
	ErrArchiveUnreadable   = errors.New("foreign archive unreadable")
	ErrNoExecutable        = errors.New("no usable executable found in archive")
	ErrAmbiguousExecutable = errors.New("more than one candidate executable, explicit choice required")

	// Assembly errors
	ErrControlTooLarge  = errors.New("compressed control archive exceeds control block budget")
	ErrPreambleTooLarge = errors.New("preamble length does not fit the reserved length field")
	ErrPayloadMissing   = errors.New("payload missing")

	// Install errors
	ErrCorruptContainer = errors.New("corrupt or truncated container")
	ErrHookFailed       = errors.New("lifecycle hook failed to run")
	ErrCopyFailed       = errors.New("payload copy failed")
	ErrNotInstalled     = errors.New("package is not installed")
)

// ResolutionError is a failure during foreign package resolution.
type ResolutionError struct {
	Op  string // what the resolver was doing, e.g. "split ar archive"
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve: %s: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolution wraps err as a ResolutionError for the given operation.
func Resolution(op string, err error) error {
	return &ResolutionError{Op: op, Err: err}
}

// AssemblyError is a failure during container assembly. Assembly errors are
// raised before any output container exists at the destination path.
type AssemblyError struct {
	Op  string
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble: %s: %v", e.Op, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// Assembly wraps err as an AssemblyError for the given operation.
func Assembly(op string, err error) error {
	return &AssemblyError{Op: op, Err: err}
}

// InstallError is a failure during container installation. Install errors are
// raised before any host registry mutation.
type InstallError struct {
	Op  string
	Err error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install: %s: %v", e.Op, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Install wraps err as an InstallError for the given operation.
func Install(op string, err error) error {
	return &InstallError{Op: op, Err: err}
}

// ExitCode maps an error onto the process exit code of the npk tools:
// 3 resolution, 4 assembly, 5 install, 1 for anything unattributed.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var resErr *ResolutionError
	var asmErr *AssemblyError
	var instErr *InstallError
	switch {
	case errors.As(err, &resErr):
		return 3
	case errors.As(err, &asmErr):
		return 4
	case errors.As(err, &instErr):
		return 5
	}
	return 1
}
