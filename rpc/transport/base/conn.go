package base

import (
	"bytes"
	"context"
	"net"

	"github.com/looplab/fsm"
)

// Connection states
const (
	stateAwaiting   = "awaiting"
	stateProcessing = "processing"
	stateClosed     = "closed"
)

// Connection events
const (
	eventReceive = "receive"
	eventRespond = "respond"
	eventClose   = "close"
)

// serverConn is the server side of one accepted connection.
// Everything except conn and id is owned by the event loop goroutine.
type serverConn struct {
	id    uint64
	conn  net.Conn
	buf   bytes.Buffer // accumulated bytes not yet consumed as frames
	state *fsm.FSM
}

// newServerConn wraps an accepted connection. Entering the closed state closes the stream.
func newServerConn(id uint64, conn net.Conn) *serverConn {
	c := &serverConn{id: id, conn: conn}
	c.state = fsm.NewFSM(
		stateAwaiting,
		fsm.Events{
			{Name: eventReceive, Src: []string{stateAwaiting}, Dst: stateProcessing},
			{Name: eventRespond, Src: []string{stateProcessing}, Dst: stateAwaiting},
			{Name: eventClose, Src: []string{stateAwaiting, stateProcessing}, Dst: stateClosed},
		},
		fsm.Callbacks{
			"enter_" + stateClosed: func(_ context.Context, e *fsm.Event) {
				if err := c.conn.Close(); err != nil {
					Logger.Debugf("Closing connection %d after %s: %v", c.id, e.Src, err)
				}
			},
		},
	)
	return c
}

// transition fires a state machine event
func (c *serverConn) transition(event string) error {
	return c.state.Event(context.Background(), event)
}

// close moves the connection to the closed state.
// Returns false if it was closed before.
func (c *serverConn) close() bool {
	if !c.state.Can(eventClose) {
		return false
	}
	return c.transition(eventClose) == nil
}

func (c *serverConn) closed() bool {
	return c.state.Is(stateClosed)
}
