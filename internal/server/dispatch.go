package server

import (
	"context"
	"log"

	"tichu-server/internal/protocol"
)

// Command is one decoded client message together with the connection it
// arrived on. Read loops enqueue commands; a single dispatcher applies
// them in FIFO order, which totally orders mutations per session.
type Command struct {
	ConnID string
	Msg    protocol.ClientMessage
}

type Dispatcher struct {
	queue  chan Command
	server *Server
}

func NewDispatcher(server *Server, depth int) *Dispatcher {
	return &Dispatcher{
		queue:  make(chan Command, depth),
		server: server,
	}
}

// Enqueue hands a command to the dispatcher. A full queue sheds the
// command rather than blocking the read loop.
func (d *Dispatcher) Enqueue(cmd Command) bool {
	select {
	case d.queue <- cmd:
		return true
	default:
		log.Printf("Dispatch queue full, dropping %s from %s", cmd.Msg.Type, cmd.ConnID)
		return false
	}
}

// Run pops commands until the context is cancelled. A panic during
// dispatch is logged and never takes the loop down with it.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-d.queue:
			d.dispatch(cmd)
		}
	}
}

func (d *Dispatcher) dispatch(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic dispatching %s from %s: %v", cmd.Msg.Type, cmd.ConnID, r)
		}
	}()
	d.server.handleCommand(cmd)
}
