package logsink

import (
	"fmt"

	"github.com/ASHISH26940/hashdelivery/internal/protocol"
	"github.com/hashicorp/go-hclog"
)

// Event is an immutable snapshot of something that happened on the
// server. The set of events is closed; see the types in this file.
type Event interface {
	write(l hclog.Logger)
}

// NewConnection is emitted when a connection is accepted.
type NewConnection struct {
	Peer      string
	ConnID    string
	StoreSize int
}

func (e NewConnection) write(l hclog.Logger) {
	l.Info("Connection established.", "peer", e.Peer, "conn", e.ConnID, "storage_size", e.StoreSize)
}

// RequestReceived is emitted for every successfully decoded request.
// StoreSize is sampled when the event is created.
type RequestReceived struct {
	Peer      string
	ConnID    string
	Request   protocol.Request
	StoreSize int
}

func (e RequestReceived) write(l hclog.Logger) {
	var msg string
	switch e.Request.Type {
	case protocol.TypeStore:
		msg = fmt.Sprintf("Received request to write new value %s by key %s.", e.Request.Hash, e.Request.Key)
	default:
		msg = fmt.Sprintf("Received request to get value by key %s.", e.Request.Key)
	}
	l.Info(msg, "peer", e.Peer, "conn", e.ConnID, "request", e.Request.String(), "storage_size", e.StoreSize)
}

// ErrorKind is the category of a ConnectionError.
type ErrorKind int

const (
	KindBadReading ErrorKind = iota
	KindMalformed
	KindSend
	KindIdleTimeout
	KindAccept
)

var kindNames = [...]string{
	KindBadReading:  "bad reading",
	KindMalformed:   "malformed request",
	KindSend:        "send failure",
	KindIdleTimeout: "idle timeout",
	KindAccept:      "accept failure",
}

var kindMessages = [...]string{
	KindBadReading:  "Can't read request from client",
	KindMalformed:   "Client sent bad json request",
	KindSend:        "Can't write response to client",
	KindIdleTimeout: "Client idle timeout",
	KindAccept:      "Can't accept connection",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
	return kindNames[k]
}

// ConnectionError is emitted before a handler terminates because of an
// error, and by the dispatcher when an accept fails (Peer is empty then).
type ConnectionError struct {
	Peer   string
	ConnID string
	Kind   ErrorKind
	Err    error
}

func (e ConnectionError) write(l hclog.Logger) {
	msg := e.Kind.String()
	if e.Kind >= 0 && int(e.Kind) < len(kindMessages) {
		msg = kindMessages[e.Kind]
	}
	args := []interface{}{"peer", e.Peer, "conn", e.ConnID, "kind", e.Kind.String()}
	if e.Err != nil {
		args = append(args, "error", e.Err)
	}
	if e.Kind == KindBadReading {
		l.Info(msg, args...)
		return
	}
	l.Warn(msg, args...)
}
