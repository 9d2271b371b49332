// Package fakesim is an in-process stand-in for the simulator side of the
// protocol. Tests script it with a Handler that maps each request body to a
// response body.
package fakesim

import (
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/frame"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// Request is one decoded incoming command.
type Request struct {
	ID      uint8
	Payload *codec.Buffer
	Raw     []byte
}

// Handler answers one request with a full response message body. Returning
// nil closes the connection.
type Handler func(req Request) []byte

// Server accepts a single client and answers with its handler.
type Server struct {
	ln      net.Listener
	handler Handler

	mu       sync.Mutex
	requests []Request
	done     chan struct{}
}

// Start listens on a loopback port and serves the first connection.
func Start(t testing.TB, handler Handler) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fakesim listen: %v", err)
	}
	s := &Server{ln: ln, handler: handler, done: make(chan struct{})}
	go s.acceptOne()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Pipe serves handler on one end of an in-memory connection and returns the
// client end.
func Pipe(t testing.TB, handler Handler) (net.Conn, *Server) {
	t.Helper()
	client, server := net.Pipe()
	s := &Server{handler: handler, done: make(chan struct{})}
	go s.serve(server)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, s
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Done is closed once the served connection ends.
func (s *Server) Done() <-chan struct{} { return s.done }

func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) acceptOne() {
	conn, err := s.ln.Accept()
	if err != nil {
		close(s.done)
		return
	}
	s.serve(conn)
}

func (s *Server) serve(conn net.Conn) {
	defer close(s.done)
	defer conn.Close()
	for {
		body, err := frame.ReadMessage(conn, frame.DefaultLimits())
		if err != nil {
			return
		}
		req := decodeRequest(body)
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		resp := s.handler(req)
		if resp == nil {
			return
		}
		if err := frame.WriteMessage(conn, resp, frame.DefaultLimits()); err != nil {
			return
		}
	}
}

func decodeRequest(body []byte) Request {
	b := codec.FromBytes(body)
	h := frame.ReadHeader(b)
	payload := codec.FromBytes(b.ReadBytes(h.End() - b.Offset()))
	return Request{ID: h.ID, Payload: payload, Raw: body}
}

// Status frames a bare status response for cmd.
func Status(cmd uint8, status protocol.Status, description string) []byte {
	b := codec.NewBuffer()
	b.WriteUint8(uint8(status))
	b.WriteString(description)
	return frame.EncodeCommand(cmd, b.Bytes())
}

// OK frames a success status for cmd with an empty description.
func OK(cmd uint8) []byte { return Status(cmd, protocol.StatusOK, "") }

// Concat joins framed commands into one message body.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// GetResponse answers a getter on group with a typed value.
func GetResponse(group, variable uint8, objectID string, v codec.Value) []byte {
	b := codec.NewBuffer()
	b.WriteUint8(variable)
	b.WriteString(objectID)
	b.WriteValue(v)
	return Concat(OK(group), frame.EncodeCommand(schema.ResponseFor(group), b.Bytes()))
}

// Version answers GETVERSION.
func Version(api int32, server string) []byte {
	b := codec.NewBuffer()
	b.WriteInt32(api)
	b.WriteString(server)
	return Concat(OK(schema.CmdGetVersion), frame.EncodeCommand(schema.CmdGetVersion, b.Bytes()))
}

// Var is one variable of a subscription result.
type Var struct {
	ID     uint8
	Status protocol.Status
	Value  codec.Value
}

// Result frames one subscription result.
func Result(response uint8, objectID string, vars ...Var) []byte {
	b := codec.NewBuffer()
	b.WriteString(objectID)
	b.WriteUint8(uint8(len(vars)))
	for _, v := range vars {
		b.WriteUint8(v.ID)
		b.WriteUint8(uint8(v.Status))
		b.WriteValue(v.Value)
	}
	return frame.EncodeCommand(response, b.Bytes())
}

// Step answers a step command with the given subscription results.
func Step(results ...[]byte) []byte {
	b := codec.NewBuffer()
	b.WriteInt32(int32(len(results)))
	for _, r := range results {
		b.WriteBytes(r)
	}
	return Concat(OK(schema.CmdSimStep), b.Bytes())
}

// Subscribed answers a subscribe command with its immediate result.
func Subscribed(cmd uint8, result []byte) []byte {
	return Concat(OK(cmd), result)
}
