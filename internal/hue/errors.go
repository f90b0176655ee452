package hue

import (
	"errors"
	"fmt"
)

var (
	// ErrLinkRejected is returned when pairing gave up without the link
	// button being pressed.
	ErrLinkRejected = errors.New("link rejected")
	// ErrPartialOperationFailed matches any *OperationError.
	ErrPartialOperationFailed = errors.New("bridge operation failed")
	// ErrNoReply is returned when the bridge answered with an empty result list.
	ErrNoReply = errors.New("bridge did not have a reply")
	// ErrTimeout is returned when a request exceeded its deadline.
	ErrTimeout = errors.New("bridge request timed out")
)

// Bridge error types.
const (
	ErrorTypeUnauthorized         = 1
	ErrorTypeResourceNotAvailable = 3
	ErrorTypeLinkButtonNotPressed = 101
	ErrorTypeDeviceIsOff          = 201
	ErrorTypeInternalError        = 901
)

// APIError is the error element of a bridge result list.
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// OperationError reports the first failed element of a bridge result list.
type OperationError struct {
	Index int
	APIError
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("bridge error %d at %s: %s", e.Type, e.Address, e.Description)
}

func (e *OperationError) Is(target error) bool {
	return target == ErrPartialOperationFailed
}

// IsLinkButtonNotPressed reports whether err is the bridge asking for the
// link button.
func IsLinkButtonNotPressed(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Type == ErrorTypeLinkButtonNotPressed
}
