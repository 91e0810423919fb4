package scheduler

import (
	"errors"
	"fmt"
)

// Input data errors detected before search starts.
var (
	ErrNoWeeks    = errors.New("semester has no weeks")
	ErrNoTeachers = errors.New("no active teachers")
	ErrNoRooms    = errors.New("no active rooms")
	ErrNoGroups   = errors.New("no active groups")
	// ErrUnknownReference is returned when a load points at a group or lesson
	// type that is not part of the reference data.
	ErrUnknownReference = errors.New("unknown reference")
)

// ErrEngineUsed is returned by a second call to Engine.Generate.
var ErrEngineUsed = errors.New("engine already generated a schedule")

// InputError reports reference data that makes a run pointless.
type InputError struct {
	Err    error
	Detail string
}

func (e *InputError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid scheduling input: %v", e.Err)
	}
	return fmt.Sprintf("invalid scheduling input: %v: %s", e.Err, e.Detail)
}

func (e *InputError) Unwrap() error { return e.Err }

func inputError(err error, format string, args ...interface{}) error {
	return &InputError{Err: err, Detail: fmt.Sprintf(format, args...)}
}
