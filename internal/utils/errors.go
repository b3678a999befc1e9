package utils

import (
	"errors"
	"fmt"
)

// Op names the pipeline stage that raised an AppError.
type Op string

const (
	OpAttachEvents Op = "attach events"
	OpDetect       Op = "detect anomalies"
	OpExport       Op = "export artifacts"
	OpLoadRules    Op = "load rules"
	OpReadSnapshot Op = "read snapshot"
)

// AppError wraps the failing stage, a short message, and the cause. Sentinel
// checks with errors.Is see through it.
type AppError struct {
	Op  Op
	Msg string
	Err error
}

func (e *AppError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op Op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// OpOf reports the stage of the outermost AppError in err's chain.
func OpOf(err error) (Op, bool) {
	var app *AppError
	if errors.As(err, &app) {
		return app.Op, true
	}
	return "", false
}
