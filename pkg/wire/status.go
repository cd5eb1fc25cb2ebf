package wire

import (
	"errors"
	"fmt"
)

// Status is the AVRCP status byte carried in REJECT responses.
type Status uint8

const (
	// StatusBadCommand indicates an unknown or unsupported PDU.
	StatusBadCommand Status = 0x00

	// StatusBadParameter indicates an out-of-range parameter.
	StatusBadParameter Status = 0x01

	// StatusNotFound indicates the requested item was not found.
	StatusNotFound Status = 0x02

	// StatusInternalError indicates a malformed PDU or internal failure.
	StatusInternalError Status = 0x03

	// StatusNoError indicates success.
	StatusNoError Status = 0x04

	// StatusUIDChanged indicates the UID counter moved on.
	StatusUIDChanged Status = 0x05

	StatusInvalidDirection Status = 0x07
	StatusNotDirectory     Status = 0x08
	StatusNotExist         Status = 0x09
	StatusInvalidScope     Status = 0x0A
	StatusOutOfRange       Status = 0x0B
	StatusUIDIsDirectory   Status = 0x0C
	StatusMediaInUse       Status = 0x0D
	StatusNowPlayingFull   Status = 0x0E

	// StatusSearchNotSupported rejects the Search PDU.
	StatusSearchNotSupported Status = 0x0F

	StatusSearchInProgress   Status = 0x10
	StatusInvalidPlayerID    Status = 0x11
	StatusPlayerNotBrowsable Status = 0x12
	StatusPlayerNotAddressed Status = 0x13
	StatusNoValidResults     Status = 0x14
	StatusNoAvailablePlayers Status = 0x15
	StatusAddrPlayerChanged  Status = 0x16
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusBadCommand:
		return "BAD_COMMAND"
	case StatusBadParameter:
		return "BAD_PARAMETER"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusInternalError:
		return "INTERNAL_ERROR"
	case StatusNoError:
		return "NO_ERROR"
	case StatusUIDChanged:
		return "UID_CHANGED"
	case StatusInvalidDirection:
		return "INVALID_DIRECTION"
	case StatusNotDirectory:
		return "NOT_DIRECTORY"
	case StatusNotExist:
		return "NOT_EXIST"
	case StatusInvalidScope:
		return "INVALID_SCOPE"
	case StatusOutOfRange:
		return "OUT_OF_RANGE"
	case StatusUIDIsDirectory:
		return "UID_IS_DIRECTORY"
	case StatusMediaInUse:
		return "MEDIA_IN_USE"
	case StatusNowPlayingFull:
		return "NOW_PLAYING_FULL"
	case StatusSearchNotSupported:
		return "SEARCH_NOT_SUPPORTED"
	case StatusSearchInProgress:
		return "SEARCH_IN_PROGRESS"
	case StatusInvalidPlayerID:
		return "INVALID_PLAYER_ID"
	case StatusPlayerNotBrowsable:
		return "PLAYER_NOT_BROWSABLE"
	case StatusPlayerNotAddressed:
		return "PLAYER_NOT_ADDRESSED"
	case StatusNoValidResults:
		return "NO_VALID_RESULTS"
	case StatusNoAvailablePlayers:
		return "NO_AVAILABLE_PLAYERS"
	case StatusAddrPlayerChanged:
		return "ADDRESSED_PLAYER_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusNoError
}

// Error is a codec failure carrying the status to reject with.
type Error struct {
	Status Status
	PDU    PduID
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.PDU, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.PDU, e.Status, e.Reason)
}

// Is matches any *Error with the same status, so callers can write
// errors.Is(err, wire.ErrBadParameter).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Status == e.Status
}

// Status sentinels for errors.Is comparisons.
var (
	ErrBadCommand         = &Error{Status: StatusBadCommand}
	ErrBadParameter       = &Error{Status: StatusBadParameter}
	ErrInternalError      = &Error{Status: StatusInternalError}
	ErrSearchNotSupported = &Error{Status: StatusSearchNotSupported}
)

func newError(pdu PduID, status Status, format string, args ...any) *Error {
	return &Error{Status: status, PDU: pdu, Reason: fmt.Sprintf(format, args...)}
}

// StatusOf returns the reject status for err. Errors that did not come
// from the codec map to StatusInternalError.
func StatusOf(err error) Status {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusInternalError
}
