package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
)

const (
	// SocketHeaderLen is the u32 total-length prefix of every socket message.
	SocketHeaderLen = 4
	// ShortHeaderLen is one length byte plus the command id.
	ShortHeaderLen = 2
	// ExtendedHeaderLen is the 0x00 sentinel, a u32 length and the command id.
	ExtendedHeaderLen = 6
	// MaxShortPayload is the largest payload framed with a one-byte length.
	// Larger payloads use the extended form.
	MaxShortPayload = 252
)

var (
	ErrShortMessage    = errors.New("frame: message shorter than its length header")
	ErrMessageTooLarge = errors.New("frame: message too large")
)

// Limits constrains socket message decode memory use.
type Limits struct {
	MaxMessageBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxMessageBytes: 64 * 1024 * 1024}
}

// Header is one decoded command/response header inside a message.
type Header struct {
	ID       uint8
	Length   int
	Extended bool
	// Start is the buffer offset of the first header byte.
	Start int
}

// End is the buffer offset one past the last byte covered by Length.
func (h Header) End() int { return h.Start + h.Length }

// AppendCommand frames one command onto dst: short length form when the
// payload fits, extended form otherwise.
func AppendCommand(dst []byte, id uint8, payload []byte) []byte {
	if len(payload) <= MaxShortPayload {
		dst = append(dst, uint8(ShortHeaderLen+len(payload)), id)
		return append(dst, payload...)
	}
	dst = append(dst, 0)
	dst = binary.BigEndian.AppendUint32(dst, uint32(ExtendedHeaderLen+len(payload)))
	dst = append(dst, id)
	return append(dst, payload...)
}

// EncodeCommand returns a single framed command.
func EncodeCommand(id uint8, payload []byte) []byte {
	return AppendCommand(make([]byte, 0, ExtendedHeaderLen+len(payload)), id, payload)
}

// ReadHeader consumes a command header from b. Either length form is
// accepted on input; the declared length must cover the header itself and fit
// in the remaining buffer.
func ReadHeader(b *codec.Buffer) Header {
	h := Header{Start: b.Offset()}
	short := b.ReadUint8()
	minLen := ShortHeaderLen
	if short == 0 {
		h.Extended = true
		h.Length = int(b.ReadUint32())
		minLen = ExtendedHeaderLen
	} else {
		h.Length = int(short)
	}
	h.ID = b.ReadUint8()
	if h.Length < minLen || h.End() > b.Len() {
		panic(protocol.Desync(h.ID, protocol.ErrLengthMismatch,
			"declared length %d at offset %d, message has %d bytes", h.Length, h.Start, b.Len()))
	}
	return h
}

// ExpectEnd panics with a desync when b is not positioned at the end of h.
func ExpectEnd(b *codec.Buffer, h Header) {
	if b.Offset() != h.End() {
		panic(protocol.Desync(h.ID, protocol.ErrLengthMismatch,
			"command parsed to offset %d, declared end %d", b.Offset(), h.End()))
	}
}

// WriteMessage writes msg with its u32 total-length prefix, looping until
// every byte is written.
func WriteMessage(w io.Writer, msg []byte, limits Limits) error {
	total := uint64(SocketHeaderLen + len(msg))
	if total > uint64(limits.MaxMessageBytes) {
		return ErrMessageTooLarge
	}
	out := make([]byte, 0, total)
	out = binary.BigEndian.AppendUint32(out, uint32(total))
	out = append(out, msg...)
	for len(out) > 0 {
		n, err := w.Write(out)
		if err != nil {
			return err
		}
		out = out[n:]
	}
	return nil
}

// ReadMessage reads one length-prefixed socket message and returns the body
// without its prefix. A clean EOF before the header surfaces as io.EOF.
func ReadMessage(r io.Reader, limits Limits) ([]byte, error) {
	var head [SocketHeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	total := binary.BigEndian.Uint32(head[:])
	if total < SocketHeaderLen {
		return nil, fmt.Errorf("%w: declared %d", ErrShortMessage, total)
	}
	if total > limits.MaxMessageBytes {
		return nil, fmt.Errorf("%w: declared %d", ErrMessageTooLarge, total)
	}
	body := make([]byte, total-SocketHeaderLen)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}
