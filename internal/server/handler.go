package server

import (
	"errors"
	"net"

	"github.com/ASHISH26940/hashdelivery/internal/logsink"
	"github.com/ASHISH26940/hashdelivery/internal/protocol"
	"github.com/google/uuid"
)

// handler serves a single client connection. It owns conn until serve
// returns.
type handler struct {
	srv  *Server
	conn net.Conn
	dec  *protocol.Decoder
	peer string
	id   string
}

func newHandler(s *Server, conn net.Conn) *handler {
	return &handler{
		srv:  s,
		conn: conn,
		dec:  protocol.NewDecoder(conn),
		peer: conn.RemoteAddr().String(),
		id:   uuid.NewString(),
	}
}

// serve sends the greeting and then answers requests in arrival order
// until the peer goes away, sends something undecodable, or the server
// shuts down.
func (h *handler) serve() {
	defer h.srv.untrack(h.conn)

	if _, err := h.conn.Write(h.srv.greeting); err != nil {
		h.fail(logsink.KindSend, err)
		return
	}

	for {
		if !h.srv.armReadDeadline(h.conn) {
			return
		}

		req, err := h.dec.Decode()
		if err != nil {
			if h.srv.isClosing() {
				return
			}
			// Best effort: the peer may already be gone.
			h.conn.Write(protocol.EncodeResponse(protocol.Malformed()))
			h.fail(classify(err), err)
			return
		}

		h.srv.sink.Emit(logsink.RequestReceived{
			Peer:      h.peer,
			ConnID:    h.id,
			Request:   req,
			StoreSize: h.srv.store.Size(),
		})

		resp := h.srv.apply(req)
		h.srv.metrics.Requests.WithLabelValues(string(req.Type), resp.Status.String()).Inc()

		if _, err := h.conn.Write(protocol.EncodeResponse(resp)); err != nil {
			h.fail(logsink.KindSend, err)
			return
		}
	}
}

func (h *handler) fail(kind logsink.ErrorKind, err error) {
	h.srv.metrics.ConnectionErrors.WithLabelValues(kind.String()).Inc()
	h.srv.sink.Emit(logsink.ConnectionError{Peer: h.peer, ConnID: h.id, Kind: kind, Err: err})
}

// classify maps a Decode error to its log category.
func classify(err error) logsink.ErrorKind {
	var merr *protocol.MalformedError
	if errors.As(err, &merr) {
		return logsink.KindMalformed
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return logsink.KindIdleTimeout
	}
	return logsink.KindBadReading
}
