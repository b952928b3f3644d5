package protocol

import "fmt"

// Response prefixes. Clients treat the prefix as the only structured part of a
// line; the remainder is human-readable text.
const (
	PrefixSuccess = "SUCCESS:"
	PrefixError   = "ERROR:"
	PrefixWaiting = "WAITING:"
)

// Bare tags used for relayed and lifecycle lines.
const (
	TagMove         = "MOVE"
	TagChat         = "CHAT"
	TagGameOver     = "GAMEOVER"
	TagJoinRoom     = "JOIN_ROOM:"
	TagExitRoom     = "EXIT_ROOM"
	TagExitWaiting  = "EXIT_WAITING"
	TagOpponentLeft = "OPPONENT_LEFT"
)

// Success formats a SUCCESS line.
func Success(format string, args ...any) string {
	return PrefixSuccess + " " + fmt.Sprintf(format, args...)
}

// Waiting formats a WAITING line.
func Waiting(format string, args ...any) string {
	return PrefixWaiting + " " + fmt.Sprintf(format, args...)
}

// Error formats an ERROR line carrying an error code.
func Error(code string) string {
	return PrefixError + " " + code
}

// Move formats a relayed move.
func Move(from, to string) string {
	return TagMove + " " + from + " " + to
}

// Chat formats a relayed chat message.
func Chat(message string) string {
	return TagChat + " " + message
}
