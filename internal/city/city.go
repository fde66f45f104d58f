// Package city holds the portal's domain: residents and their smart homes,
// the phone-keyed user directory, the observer fan-out and the controller
// coordinating them.
package city

import "errors"

// Observer receives broadcast announcements. Implementations must tolerate
// any message text; a panicking observer is swallowed by the fan-out.
type Observer interface {
	Update(message string)
}

// Command is a one-shot unit of work held in the controller's command slot.
type Command interface {
	Execute() (bool, string)
}

var (
	ErrUserNotFound        = errors.New("city: user not found")
	ErrDuplicatePhone      = errors.New("city: phone already registered")
	ErrDuplicateNationalID = errors.New("city: national id already registered")
	ErrInvalidName         = errors.New("city: name or surname is invalid")
	ErrTracerDetected      = errors.New("city: tracer detected, controller refused")
)
