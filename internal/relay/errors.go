package relay

import "errors"

// Code identifies a request failure. Codes are rendered verbatim to the
// client that issued the failing request.
type Code string

// Failure codes.
const (
	CodeMalformedRequest   Code = "MalformedRequest"
	CodeUnknownCommand     Code = "UnknownCommand"
	CodeAlreadyLoggedIn    Code = "AlreadyLoggedIn"
	CodeInvalidCredentials Code = "InvalidCredentials"
	CodeNotLoggedIn        Code = "NotLoggedIn"
	CodeUsernameTaken      Code = "UsernameTaken"
	CodeAlreadyQueued      Code = "AlreadyQueued"
	CodeAlreadyInRoom      Code = "AlreadyInRoom"
	CodeRoomExists         Code = "RoomExists"
	CodeRoomNotFound       Code = "RoomNotFound"
	CodeRoomFull           Code = "RoomFull"
	CodeRoomNotReady       Code = "RoomNotReady"
	CodeNotInRoom          Code = "NotInRoom"
	CodeNotYourTurn        Code = "NotYourTurn"
	CodeStoreError         Code = "StoreError"
)

// Error is a request-scoped failure. None of them are fatal to the server.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return string(e.Code)
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrMalformedRequest   = &Error{Code: CodeMalformedRequest}
	ErrUnknownCommand     = &Error{Code: CodeUnknownCommand}
	ErrAlreadyLoggedIn    = &Error{Code: CodeAlreadyLoggedIn}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials}
	ErrNotLoggedIn        = &Error{Code: CodeNotLoggedIn}
	ErrUsernameTaken      = &Error{Code: CodeUsernameTaken}
	ErrAlreadyQueued      = &Error{Code: CodeAlreadyQueued}
	ErrAlreadyInRoom      = &Error{Code: CodeAlreadyInRoom}
	ErrRoomExists         = &Error{Code: CodeRoomExists}
	ErrRoomNotFound       = &Error{Code: CodeRoomNotFound}
	ErrRoomFull           = &Error{Code: CodeRoomFull}
	ErrRoomNotReady       = &Error{Code: CodeRoomNotReady}
	ErrNotInRoom          = &Error{Code: CodeNotInRoom}
	ErrNotYourTurn        = &Error{Code: CodeNotYourTurn}
	ErrStoreError         = &Error{Code: CodeStoreError}
)

// CodeOf returns the failure code carried by err. Errors outside the
// taxonomy are reported as StoreError.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStoreError
}
