package traci

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/tracilink/internal/observability"
	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/frame"
	"github.com/danmuck/tracilink/internal/protocol/schema"
	"github.com/danmuck/tracilink/internal/protocol/session"
	"github.com/danmuck/tracilink/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Conn is the raw message transport a Client drives. *session.Transport is
// the production implementation.
type Conn interface {
	SendMessage(msg []byte) error
	ReceiveMessage() ([]byte, error)
	Close() error
}

// ExchangeRecorder receives every request/response pair. *trace.Recorder
// satisfies it.
type ExchangeRecorder interface {
	Record(ex trace.Exchange) error
}

type Option func(*Client)

// WithRecorder attaches an exchange recorder.
func WithRecorder(r ExchangeRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithCapabilities presets the capability table, skipping the need for a
// handshake. Used by tests and by callers that already know the server.
func WithCapabilities(caps schema.Capabilities) Option {
	return func(c *Client) { c.caps = caps }
}

// Client is one session's command dispatcher.
type Client struct {
	conn     Conn
	caps     schema.Capabilities
	recorder ExchangeRecorder
	log      zerolog.Logger
	failed   error
	closed   bool
}

// New wraps an established connection. Call Handshake before using
// version dependent accessors.
func New(conn Conn, opts ...Option) *Client {
	c := &Client{
		conn: conn,
		log:  log.Logger.With().Str("component", "traci").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials addr with the bounded retry schedule and performs the version
// handshake.
func Connect(ctx context.Context, addr string, cfg session.Config, opts ...Option) (*Client, error) {
	tr, err := session.Dial(ctx, addr, cfg)
	if err != nil {
		return nil, err
	}
	c := New(tr, opts...)
	if _, err := c.Handshake(); err != nil {
		_ = tr.Close()
		return nil, err
	}
	return c, nil
}

// Capabilities returns the table resolved by Handshake.
func (c *Client) Capabilities() schema.Capabilities { return c.caps }

// Err returns the sticky failure that ended the session, if any.
func (c *Client) Err() error { return c.failed }

// Handshake sends GETVERSION and resolves the capability table. Unsupported
// API versions are rejected.
func (c *Client) Handshake() (caps schema.Capabilities, err error) {
	defer c.recoverDesync(schema.CmdGetVersion, &err)
	b, err := c.Query(schema.CmdGetVersion, nil)
	if err != nil {
		return schema.Capabilities{}, err
	}
	h := frame.ReadHeader(b)
	if h.ID != schema.CmdGetVersion {
		panic(protocol.Desync(schema.CmdGetVersion, protocol.ErrEchoMismatch, "version response id 0x%02x", h.ID))
	}
	api := b.ReadInt32()
	server := b.ReadString()
	frame.ExpectEnd(b, h)
	expectExhausted(schema.CmdGetVersion, b)

	caps, err = schema.Resolve(api, server)
	if err != nil {
		c.log.Error().Int32("api", api).Str("server", server).Err(err).Msg("traci.Handshake rejected server")
		return schema.Capabilities{}, err
	}
	c.caps = caps
	c.log.Info().
		Int32("api", api).
		Str("server", server).
		Interface("features", caps.Features()).
		Msg("traci.Handshake complete")
	return caps, nil
}

// SendConfigFile hands the server its run configuration. Used once at session
// start against a launcher daemon.
func (c *Client) SendConfigFile(name, contents string) error {
	if name == "" {
		return &protocol.ConfigError{Field: "config_file", Reason: "name is empty"}
	}
	payload := newPayload()
	payload.WriteString(name)
	payload.WriteString(contents)
	return c.expectBareOK(schema.CmdSendFile, payload.Bytes())
}

// Close asks the server to end the run and releases the connection. It is
// safe to call more than once.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	var closeErr error
	if c.failed == nil {
		closeErr = c.expectBareOK(schema.CmdClose, nil)
	}
	c.closed = true
	if err := c.conn.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if closeErr != nil {
		c.log.Warn().Err(closeErr).Msg("traci.Close")
		return fmt.Errorf("traci close: %w", closeErr)
	}
	c.log.Info().Msg("traci.Close done")
	return nil
}

func (c *Client) expectBareOK(cmd uint8, payload []byte) (err error) {
	defer c.recoverDesync(cmd, &err)
	b, err := c.Query(cmd, payload)
	if err != nil {
		return err
	}
	expectExhausted(cmd, b)
	return nil
}

// fail records a session ending error so later calls fail fast.
func (c *Client) fail(err error) error {
	if c.failed != nil {
		return err
	}
	observability.RecordFailure(errorClass(err))
	if protocol.IsSessionLost(err) {
		c.failed = err
	}
	return err
}

func errorClass(err error) string {
	var te *protocol.TransportError
	var pe *protocol.ProtocolError
	var de *protocol.DesyncError
	var ce *protocol.ConfigError
	switch {
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &pe):
		return "protocol"
	case errors.As(err, &de):
		return "desync"
	case errors.As(err, &ce):
		return "config"
	default:
		return "other"
	}
}
