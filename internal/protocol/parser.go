package protocol

import (
	"strings"
	"unicode"
)

// Request is one inbound line split into a command word and its arguments.
type Request struct {
	// Command is the first token of the line, upper-cased.
	Command string
	// Args are the whitespace-separated tokens after the command.
	Args []string
	// Rest is the text after the first whitespace run following the command,
	// kept verbatim (internal spacing preserved). Used for CHAT payloads.
	Rest string
}

// Parse splits a line into a Request.
//
// Postcondition: If line is blank, Command is empty. Otherwise Command is the
// upper-cased first token and Rest holds everything after the first whitespace run.
func Parse(line string) Request {
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}
	}

	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx < 0 {
		return Request{Command: strings.ToUpper(line)}
	}

	rest := strings.TrimLeftFunc(line[idx:], unicode.IsSpace)
	return Request{
		Command: strings.ToUpper(line[:idx]),
		Args:    strings.Fields(rest),
		Rest:    rest,
	}
}
