package broker

import (
	"encoding/binary"
	"log"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Server accepts client connections on a net.Listener and feeds each request
// into a Coordinator, replacing the original zmq frontend socket: one
// connection per client, one length-prefixed request/response pair per
// Submit round trip, sequential ConnIDs standing in for the opaque client
// address bytes the Worker echoes back on Ping.
type Server struct {
	Coordinator *Coordinator
	listener    net.Listener
	nextConnID  uint64
}

// Listen opens addr for frontend connections.
func Listen(coord *Coordinator, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", addr)
	}
	return &Server{Coordinator: coord, listener: ln}, nil
}

// Addr returns the address the Server is actually listening on, useful when
// Listen was called with a ":0" port.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		connID := atomic.AddUint64(&s.nextConnID, 1)
		go s.handleConn(conn, connID)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error { return s.listener.Close() }

func (s *Server) handleConn(conn net.Conn, connID uint64) {
	defer conn.Close()

	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, connID)

	for {
		reqBytes, err := ReadFrame(conn)
		if err != nil {
			return // client disconnected or sent a malformed frame.
		}

		resp := s.Coordinator.Submit(idBytes, string(reqBytes))
		if err := WriteFrame(conn, []byte(resp)); err != nil {
			log.Printf("writing response to conn %d: %v", connID, err)
			return
		}
	}
}
