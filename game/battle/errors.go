package battle

import (
	"errors"
	"fmt"
)

// Code classifies a rejected action. Codes travel to clients verbatim.
type Code string

const (
	CodeNotYourTurn     Code = "NotYourTurn"
	CodeInvalidMove     Code = "InvalidMove"
	CodeInvalidSlot     Code = "InvalidSlot"
	CodeSessionNotFound Code = "SessionNotFound"
	CodeNotConnected    Code = "NotConnected"
	CodeBattleFinished  Code = "BattleFinished"
	CodeBadRequest      Code = "BadRequest"
)

// Error is a validation failure. It never leaves a session half-mutated.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Is matches any *Error with the same code, so errors.Is(err, ErrInvalidMove)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotYourTurn     = &Error{Code: CodeNotYourTurn}
	ErrInvalidMove     = &Error{Code: CodeInvalidMove}
	ErrInvalidSlot     = &Error{Code: CodeInvalidSlot}
	ErrSessionNotFound = &Error{Code: CodeSessionNotFound}
	ErrNotConnected    = &Error{Code: CodeNotConnected}
	ErrBattleFinished  = &Error{Code: CodeBattleFinished}
	ErrBadRequest      = &Error{Code: CodeBadRequest}
)

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code of err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
