package traci

import (
	"time"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/frame"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// VariableResult is one variable of a subscription result. When Status is not
// OK, Value holds the server's description string.
type VariableResult struct {
	ID     uint8
	Status protocol.Status
	Value  codec.Value
}

// Err returns the per-variable failure as a *protocol.ProtocolError.
func (v VariableResult) Err(cmd uint8) error {
	if v.Status == protocol.StatusOK {
		return nil
	}
	return &protocol.ProtocolError{Command: cmd, Status: v.Status, Description: v.Value.String}
}

// SubscriptionResult is one object's batch of subscribed variables, in the
// order they were requested.
type SubscriptionResult struct {
	Response  uint8
	ObjectID  string
	Variables []VariableResult
}

// ReadSubscriptionResult decodes one framed result from b. Malformed input
// panics with a *protocol.DesyncError.
func ReadSubscriptionResult(b *codec.Buffer) SubscriptionResult {
	h := frame.ReadHeader(b)
	r := SubscriptionResult{Response: h.ID, ObjectID: b.ReadString()}
	n := int(b.ReadUint8())
	r.Variables = make([]VariableResult, 0, n)
	for i := 0; i < n; i++ {
		v := VariableResult{ID: b.ReadUint8(), Status: protocol.Status(b.ReadUint8())}
		v.Value = b.ReadValue()
		r.Variables = append(r.Variables, v)
	}
	frame.ExpectEnd(b, h)
	return r
}

// Subscribe registers a variable subscription for objectID on the subscribe
// command cmd and returns the immediate result the server sends back. An
// empty vars list unsubscribes and returns a zero result.
func (c *Client) Subscribe(cmd uint8, objectID string, begin, end time.Duration, vars []uint8) (res SubscriptionResult, err error) {
	defer c.recoverDesync(cmd, &err)
	if len(vars) > 255 {
		return SubscriptionResult{}, &protocol.ConfigError{Field: "variables", Reason: "more than 255 subscription variables"}
	}

	p := newPayload()
	c.writeTime(p, begin)
	c.writeTime(p, end)
	p.WriteString(objectID)
	p.WriteUint8(uint8(len(vars)))
	for _, v := range vars {
		p.WriteUint8(v)
	}
	b, err := c.Query(cmd, p.Bytes())
	if err != nil {
		return SubscriptionResult{}, err
	}
	if len(vars) == 0 {
		expectExhausted(cmd, b)
		c.log.Debug().Str("cmd", schema.CommandName(cmd)).Str("object", objectID).Msg("traci.Unsubscribe")
		return SubscriptionResult{}, nil
	}

	res = ReadSubscriptionResult(b)
	if want := schema.ResponseFor(cmd); res.Response != want {
		panic(protocol.Desync(cmd, protocol.ErrEchoMismatch, "subscription response 0x%02x want 0x%02x", res.Response, want))
	}
	if res.ObjectID != objectID {
		panic(protocol.Desync(cmd, protocol.ErrEchoMismatch, "subscription object %q want %q", res.ObjectID, objectID))
	}
	if len(res.Variables) != len(vars) {
		panic(protocol.Desync(cmd, protocol.ErrEchoMismatch, "subscription returned %d variables, requested %d", len(res.Variables), len(vars)))
	}
	expectExhausted(cmd, b)
	c.log.Debug().Str("cmd", schema.CommandName(cmd)).Str("object", objectID).Int("variables", len(vars)).Msg("traci.Subscribe")
	return res, nil
}

// Unsubscribe sends the empty variable list for objectID.
func (c *Client) Unsubscribe(cmd uint8, objectID string) error {
	_, err := c.Subscribe(cmd, objectID, 0, Forever, nil)
	return err
}

// ResultReader walks the subscription results bundled with a step response.
type ResultReader struct {
	c         *Client
	b         *codec.Buffer
	count     int
	remaining int
}

// Step sends the step-advance command for target and returns a reader over
// the bundled results. The caller must drain the reader and call Finish.
func (c *Client) Step(target time.Duration) (r *ResultReader, err error) {
	defer c.recoverDesync(schema.CmdSimStep, &err)
	p := newPayload()
	c.writeTime(p, target)
	b, err := c.Query(schema.CmdSimStep, p.Bytes())
	if err != nil {
		return nil, err
	}
	n := b.ReadInt32()
	if n < 0 {
		panic(protocol.Desync(schema.CmdSimStep, protocol.ErrLengthMismatch, "negative result count %d", n))
	}
	return &ResultReader{c: c, b: b, count: int(n), remaining: int(n)}, nil
}

// Count is the number of results announced by the step response.
func (r *ResultReader) Count() int { return r.count }

// Remaining is the number of results not yet read.
func (r *ResultReader) Remaining() int { return r.remaining }

// Next decodes the next bundled result.
func (r *ResultReader) Next() (res SubscriptionResult, err error) {
	defer r.c.recoverDesync(schema.CmdSimStep, &err)
	if r.remaining == 0 {
		panic(protocol.Desync(schema.CmdSimStep, protocol.ErrBufferOverrun, "read past the %d announced results", r.count))
	}
	r.remaining--
	return ReadSubscriptionResult(r.b), nil
}

// Finish asserts every result was read and nothing trails them.
func (r *ResultReader) Finish() (err error) {
	defer r.c.recoverDesync(schema.CmdSimStep, &err)
	if r.remaining != 0 {
		panic(protocol.Desync(schema.CmdSimStep, protocol.ErrTrailingBytes, "%d of %d results unread", r.remaining, r.count))
	}
	expectExhausted(schema.CmdSimStep, r.b)
	return nil
}
