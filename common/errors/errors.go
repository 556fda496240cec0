// Package errors pairs errors with the exit code a binary should terminate with.
package errors

type ExitCodeError struct {
	code ExitCode
	error
}

// NewError tags err with exitCode, returning nil if err is nil.
func NewError(err error, exitCode ExitCode) *ExitCodeError {
	if err == nil {
		return nil
	}
	return &ExitCodeError{exitCode, err}
}

func (e *ExitCodeError) GetExitCode() ExitCode {
	if e == nil {
		return 0
	}
	return e.code
}

// Cause lets pkg/errors.Cause see through the exit code.
func (e *ExitCodeError) Cause() error {
	return e.error
}

// ExitCodeOf returns the code of the first ExitCodeError in err's chain,
// 0 for nil and 1 for errors that carry no code.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return 0
	}
	for err != nil {
		if e, ok := err.(*ExitCodeError); ok {
			return e.code
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = c.Cause()
	}
	return 1
}

