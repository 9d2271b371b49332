package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// Transport owns exactly one live socket to the simulator. SendMessage and
// ReceiveMessage are the only raw I/O points of a session.
//
// Transport is not safe for concurrent use; the protocol has no request ids
// so exchanges must never overlap.
type Transport struct {
	conn net.Conn
	cfg  Config
	dead error
}

// Dial connects to addr, retrying while the freshly spawned simulator opens
// its listening socket. Exhausting the attempts is a *protocol.TransportError.
func Dial(ctx context.Context, addr string, cfg Config) (*Transport, error) {
	cfg = cfg.WithDefaults()
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}

	var lastErr error
	for attempt := 1; attempt <= cfg.Backoff.MaxAttempts; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.SetNoDelay(true)
			}
			log.Info().Str("addr", addr).Int("attempt", attempt).Msg("session.Dial connected")
			return NewTransport(conn, cfg), nil
		}
		lastErr = err
		log.Warn().Str("addr", addr).Int("attempt", attempt).Err(err).Msg("session.Dial attempt failed")
		if attempt == cfg.Backoff.MaxAttempts {
			break
		}
		if err := sleepContext(ctx, NextBackoffDelay(cfg.Backoff, attempt)); err != nil {
			return nil, &protocol.TransportError{Op: "connect", Err: err}
		}
	}
	return nil, &protocol.TransportError{
		Op:  "connect",
		Err: fmt.Errorf("%w: %s after %d attempts: %v", protocol.ErrConnectExhausted, addr, cfg.Backoff.MaxAttempts, lastErr),
	}
}

// NewTransport wraps an established connection.
func NewTransport(conn net.Conn, cfg Config) *Transport {
	return &Transport{conn: conn, cfg: cfg.WithDefaults()}
}

func (t *Transport) RemoteAddr() string {
	if t.conn == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}

// Alive reports whether the transport can still carry messages.
func (t *Transport) Alive() bool { return t.dead == nil }

// SendMessage writes msg behind its u32 total-length prefix.
func (t *Transport) SendMessage(msg []byte) error {
	if t.dead != nil {
		return t.dead
	}
	if t.cfg.WriteTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if err := frame.WriteMessage(t.conn, msg, t.cfg.Limits); err != nil {
		return t.fail("send", err)
	}
	return nil
}

// ReceiveMessage reads one complete message body. A closed socket, timeout or
// malformed length prefix terminates the session; partial bodies are never
// returned.
func (t *Transport) ReceiveMessage() ([]byte, error) {
	if t.dead != nil {
		return nil, t.dead
	}
	if t.cfg.ReadTimeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	msg, err := frame.ReadMessage(t.conn, t.cfg.Limits)
	if err != nil {
		return nil, t.fail("receive", err)
	}
	return msg, nil
}

// Close releases the socket. Later sends and receives fail with ErrSessionDead.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	if t.dead == nil {
		t.dead = &protocol.TransportError{Op: "use", Err: protocol.ErrSessionDead}
	}
	err := t.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (t *Transport) fail(op string, cause error) error {
	err := &protocol.TransportError{
		Op:  op,
		Err: fmt.Errorf("%w: %v", protocol.ErrConnectionClosed, cause),
	}
	log.Error().Str("op", op).Str("remote", t.RemoteAddr()).Err(cause).Msg("session.Transport terminated")
	t.dead = err
	_ = t.conn.Close()
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
