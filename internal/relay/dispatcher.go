package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/chessrelay/internal/protocol"
)

type handlerFunc func(ctx context.Context, ep Endpoint, req protocol.Request) string

// Dispatcher turns inbound lines into Hub operations and renders the single
// reply line for each.
type Dispatcher struct {
	hub          *Hub
	commands     *protocol.Table
	handlers     map[string]handlerFunc
	requireLogin bool
	logger       *zap.Logger
}

// NewDispatcher creates a Dispatcher over hub. When requireLogin is set, only
// public commands are accepted from connections without a session.
//
// Precondition: hub and logger must be non-nil.
func NewDispatcher(hub *Hub, requireLogin bool, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		hub:          hub,
		commands:     protocol.DefaultTable(),
		requireLogin: requireLogin,
		logger:       logger,
	}
	d.handlers = map[string]handlerFunc{
		protocol.CmdRegister:    d.register,
		protocol.CmdLogin:       d.login,
		protocol.CmdLogout:      d.logout,
		protocol.CmdFindMatch:   d.findMatch,
		protocol.CmdExitWaiting: d.exitWaiting,
		protocol.CmdCreateRoom:  d.createRoom,
		protocol.CmdJoinRoom:    d.joinRoom,
		protocol.CmdMove:        d.move,
		protocol.CmdChat:        d.chat,
		protocol.CmdRestart:     d.restart,
		protocol.CmdExitRoom:    d.exitRoom,
		protocol.CmdGameOver:    d.gameOver,
	}
	return d
}

// Handle processes one inbound line from ep.
//
// Postcondition: Returns the reply line and true, or false for a blank line
// which gets no reply. Malformed and unknown commands never touch state.
func (d *Dispatcher) Handle(ctx context.Context, ep Endpoint, line string) (string, bool) {
	req := protocol.Parse(line)
	if req.Command == "" {
		return "", false
	}

	cmd, ok := d.commands.Lookup(req.Command)
	if !ok {
		return failure(ErrUnknownCommand), true
	}
	if len(req.Args) < cmd.MinArgs {
		return failure(ErrMalformedRequest), true
	}
	if d.requireLogin && !cmd.Public && !d.hub.Authenticated(ep) {
		return failure(ErrNotLoggedIn), true
	}

	start := time.Now()
	reply := d.handlers[cmd.Name](ctx, ep, req)
	d.logger.Debug("command handled",
		zap.String("conn_id", ep.ID()),
		zap.String("command", cmd.Name),
		zap.String("reply", reply),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reply, true
}

// Disconnect runs the implicit LOGOUT, EXIT_ROOM and queue removal for a
// connection that has gone away.
func (d *Dispatcher) Disconnect(ep Endpoint) {
	d.hub.Disconnect(ep)
}

func failure(err error) string {
	return protocol.Error(string(CodeOf(err)))
}

func (d *Dispatcher) register(ctx context.Context, _ Endpoint, req protocol.Request) string {
	if err := d.hub.Register(ctx, req.Args[0], req.Args[1]); err != nil {
		return failure(err)
	}
	return protocol.Success("Registered")
}

func (d *Dispatcher) login(ctx context.Context, ep Endpoint, req protocol.Request) string {
	if err := d.hub.Login(ctx, req.Args[0], req.Args[1], ep); err != nil {
		return failure(err)
	}
	return protocol.Success("logged in")
}

func (d *Dispatcher) logout(_ context.Context, ep Endpoint, _ protocol.Request) string {
	if _, err := d.hub.Logout(ep); err != nil {
		return failure(err)
	}
	return protocol.Success("Logged out.")
}

func (d *Dispatcher) findMatch(_ context.Context, ep Endpoint, _ protocol.Request) string {
	matched, err := d.hub.Enqueue(ep)
	if err != nil {
		return failure(err)
	}
	if matched {
		return protocol.Success("Match started")
	}
	return protocol.Waiting("Finding match...")
}

func (d *Dispatcher) exitWaiting(_ context.Context, ep Endpoint, _ protocol.Request) string {
	d.hub.LeaveQueue(ep)
	return protocol.TagExitWaiting
}

func (d *Dispatcher) createRoom(_ context.Context, ep Endpoint, req protocol.Request) string {
	code := req.Args[0]
	if err := d.hub.CreateRoom(code, ep); err != nil {
		return failure(err)
	}
	return protocol.Success("Room %s created. Waiting for opponent.", code)
}

func (d *Dispatcher) joinRoom(_ context.Context, ep Endpoint, req protocol.Request) string {
	code := req.Args[0]
	slot, err := d.hub.JoinRoom(code, ep)
	if err != nil {
		return failure(err)
	}
	return protocol.Success("You have joined room %s as %s", code, slot.Color())
}

func (d *Dispatcher) move(_ context.Context, ep Endpoint, req protocol.Request) string {
	if err := d.hub.Move(ep, req.Args[0], req.Args[1]); err != nil {
		return failure(err)
	}
	return protocol.Success("Move sent")
}

func (d *Dispatcher) chat(_ context.Context, ep Endpoint, req protocol.Request) string {
	if err := d.hub.Chat(ep, req.Rest); err != nil {
		return failure(err)
	}
	return protocol.Success("Message sent")
}

func (d *Dispatcher) restart(_ context.Context, ep Endpoint, _ protocol.Request) string {
	agreed, err := d.hub.Restart(ep)
	if err != nil {
		return failure(err)
	}
	if agreed {
		return protocol.Success("Game restarted successfully.")
	}
	return protocol.Waiting("Waiting for the other player to agree.")
}

func (d *Dispatcher) exitRoom(_ context.Context, ep Endpoint, _ protocol.Request) string {
	if err := d.hub.LeaveRoom(ep); err != nil {
		return failure(err)
	}
	return protocol.TagExitRoom
}

func (d *Dispatcher) gameOver(context.Context, Endpoint, protocol.Request) string {
	return protocol.TagGameOver
}
