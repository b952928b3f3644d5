// Package protocol defines the relay's line protocol: the command table,
// the line parser and the response line formats.
package protocol

import "fmt"

// Command names accepted by the relay.
const (
	CmdRegister    = "REGISTER"
	CmdLogin       = "LOGIN"
	CmdLogout      = "LOGOUT"
	CmdFindMatch   = "FIND_MATCH"
	CmdExitWaiting = "EXIT_WAITING"
	CmdCreateRoom  = "CREATE_ROOM"
	CmdJoinRoom    = "JOIN_ROOM"
	CmdMove        = "MOVE"
	CmdChat        = "CHAT"
	CmdRestart     = "RESTART"
	CmdExitRoom    = "EXIT_ROOM"
	CmdGameOver    = "GAMEOVER"
)

// Command describes one protocol command.
type Command struct {
	// Name is the canonical upper-case command word.
	Name string
	// MinArgs is the minimum number of argument tokens after the command word.
	MinArgs int
	// Usage is the argument synopsis, empty for commands without arguments.
	Usage string
	// Public commands may be issued by connections without a session even
	// when login is required.
	Public bool
}

// Synopsis returns the command word followed by its argument synopsis.
func (c Command) Synopsis() string {
	if c.Usage == "" {
		return c.Name
	}
	return c.Name + " " + c.Usage
}

// BuiltinCommands returns every command the relay understands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: CmdRegister, MinArgs: 2, Usage: "<username> <password>", Public: true},
		{Name: CmdLogin, MinArgs: 2, Usage: "<username> <password>", Public: true},
		{Name: CmdLogout},
		{Name: CmdFindMatch},
		{Name: CmdExitWaiting},
		{Name: CmdCreateRoom, MinArgs: 1, Usage: "<room-id>"},
		{Name: CmdJoinRoom, MinArgs: 1, Usage: "<room-id>"},
		{Name: CmdMove, MinArgs: 2, Usage: "<from> <to>"},
		{Name: CmdChat, MinArgs: 1, Usage: "<message...>"},
		{Name: CmdRestart},
		{Name: CmdExitRoom},
		{Name: CmdGameOver, Public: true},
	}
}

// Table maps command names to Command definitions.
type Table struct {
	commands map[string]*Command
}

// NewTable builds a Table from cmds.
//
// Precondition: No two commands may share a name.
// Postcondition: Returns a Table or an error on duplicate names.
func NewTable(cmds []Command) (*Table, error) {
	t := &Table{commands: make(map[string]*Command, len(cmds))}
	for i := range cmds {
		cmd := &cmds[i]
		if _, exists := t.commands[cmd.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", cmd.Name)
		}
		t.commands[cmd.Name] = cmd
	}
	return t, nil
}

// DefaultTable returns a Table holding BuiltinCommands.
func DefaultTable() *Table {
	t, err := NewTable(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default command table: %v", err))
	}
	return t
}

// Lookup returns the command registered under name.
func (t *Table) Lookup(name string) (*Command, bool) {
	cmd, ok := t.commands[name]
	return cmd, ok
}

// Len returns the number of registered commands.
func (t *Table) Len() int {
	return len(t.commands)
}
