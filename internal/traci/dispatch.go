package traci

import (
	"errors"
	"time"

	"github.com/danmuck/tracilink/internal/observability"
	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/frame"
	"github.com/danmuck/tracilink/internal/protocol/schema"
	"github.com/danmuck/tracilink/internal/trace"
)

// Query sends one framed command and parses the shared status envelope. The
// returned buffer is positioned after the envelope. A status other than OK is
// a *protocol.ProtocolError and no payload byte is consumed.
func (c *Client) Query(group uint8, payload []byte) (b *codec.Buffer, err error) {
	if c.failed != nil {
		return nil, c.failed
	}
	if c.closed {
		return nil, &protocol.TransportError{Op: "query", Err: protocol.ErrSessionDead}
	}

	name := schema.CommandName(group)
	req := frame.EncodeCommand(group, payload)
	start := time.Now()
	var resp []byte
	defer func() {
		elapsed := time.Since(start)
		observability.RecordCommand(name, statusLabel(err), elapsed)
		c.record(group, name, req, resp, elapsed, err)
	}()
	defer c.recoverDesync(group, &err)

	if err := c.conn.SendMessage(req); err != nil {
		return nil, c.fail(err)
	}
	resp, err = c.conn.ReceiveMessage()
	if err != nil {
		return nil, c.fail(err)
	}

	b = codec.FromBytes(resp)
	h := frame.ReadHeader(b)
	if h.ID != group {
		panic(protocol.Desync(group, protocol.ErrEchoMismatch, "envelope echoed 0x%02x", h.ID))
	}
	status := protocol.Status(b.ReadUint8())
	description := b.ReadString()
	frame.ExpectEnd(b, h)

	if status != protocol.StatusOK {
		perr := &protocol.ProtocolError{Command: group, Status: status, Description: description}
		c.log.Warn().Str("cmd", name).Stringer("status", status).Str("description", description).Msg("traci.Query rejected")
		return nil, c.fail(perr)
	}
	c.log.Trace().Str("cmd", name).Int("request_bytes", len(req)).Int("response_bytes", len(resp)).Msg("traci.Query")
	return b, nil
}

// Get is the generic getter: variable and object id, optional request
// parameters, then a response command group+0x10 echoing both and carrying
// one value tagged tag.
func (c *Client) Get(group uint8, objectID string, variable uint8, tag codec.Tag, params ...codec.Value) (v codec.Value, err error) {
	defer c.recoverDesync(group, &err)

	p := newPayload()
	p.WriteUint8(variable)
	p.WriteString(objectID)
	for _, param := range params {
		p.WriteValue(param)
	}
	b, err := c.Query(group, p.Bytes())
	if err != nil {
		return codec.Value{}, err
	}

	h := frame.ReadHeader(b)
	if want := schema.ResponseFor(group); h.ID != want {
		panic(protocol.Desync(group, protocol.ErrEchoMismatch, "response id 0x%02x want 0x%02x", h.ID, want))
	}
	if got := b.ReadUint8(); got != variable {
		panic(protocol.Desync(group, protocol.ErrEchoMismatch, "variable 0x%02x want 0x%02x", got, variable))
	}
	if got := b.ReadString(); got != objectID {
		panic(protocol.Desync(group, protocol.ErrEchoMismatch, "object %q want %q", got, objectID))
	}
	v = b.ReadTyped(tag)
	frame.ExpectEnd(b, h)
	expectExhausted(group, b)
	return v, nil
}

// Set is the generic setter. The response must be a bare OK envelope.
func (c *Client) Set(group uint8, objectID string, variable uint8, value codec.Value) error {
	p := newPayload()
	p.WriteUint8(variable)
	p.WriteString(objectID)
	p.WriteValue(value)
	return c.expectBareOK(group, p.Bytes())
}

func (c *Client) getInt(group uint8, id string, variable uint8) (int32, error) {
	v, err := c.Get(group, id, variable, codec.TagInteger)
	return v.Int, err
}

func (c *Client) getDouble(group uint8, id string, variable uint8) (float64, error) {
	v, err := c.Get(group, id, variable, codec.TagDouble)
	return v.Double, err
}

func (c *Client) getString(group uint8, id string, variable uint8) (string, error) {
	v, err := c.Get(group, id, variable, codec.TagString)
	return v.String, err
}

func (c *Client) getStringList(group uint8, id string, variable uint8) ([]string, error) {
	v, err := c.Get(group, id, variable, codec.TagStringList)
	return v.List, err
}

func (c *Client) getPosition(group uint8, id string, variable uint8) (codec.Position2D, error) {
	v, err := c.Get(group, id, variable, codec.TagPosition2D)
	return v.Pos, err
}

func (c *Client) getColor(group uint8, id string, variable uint8) (codec.Color, error) {
	v, err := c.Get(group, id, variable, codec.TagColor)
	return v.Color, err
}

func (c *Client) getShape(group uint8, id string, variable uint8) ([]codec.Position2D, error) {
	v, err := c.Get(group, id, variable, codec.TagPolygon)
	return v.Shape, err
}

// recoverDesync converts a codec or framing panic into a returned
// *protocol.DesyncError. Any other panic is re-raised.
func (c *Client) recoverDesync(cmd uint8, err *error) {
	r := recover()
	if r == nil {
		return
	}
	de, ok := r.(*protocol.DesyncError)
	if !ok {
		panic(r)
	}
	if de.Command == 0 {
		de.Command = cmd
	}
	c.log.Error().Str("cmd", schema.CommandName(cmd)).Err(de).Msg("traci desync")
	*err = c.fail(de)
}

func (c *Client) record(id uint8, name string, req, resp []byte, d time.Duration, err error) {
	if c.recorder == nil {
		return
	}
	if rerr := c.recorder.Record(trace.NewExchange(id, name, req, resp, d, err)); rerr != nil {
		c.log.Warn().Err(rerr).Msg("traci trace record failed")
	}
}

func expectExhausted(cmd uint8, b *codec.Buffer) {
	if !b.Exhausted() {
		panic(protocol.Desync(cmd, protocol.ErrTrailingBytes, "%d bytes left at offset %d", b.Remaining(), b.Offset()))
	}
}

func newPayload() *codec.Buffer { return codec.NewBuffer() }

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var pe *protocol.ProtocolError
	if errors.As(err, &pe) {
		if pe.Status == protocol.StatusNotImplemented {
			return "not_implemented"
		}
		return "error"
	}
	return errorClass(err)
}
