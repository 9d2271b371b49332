package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/danmuck/tracilink/internal/protocol"
)

// Buffer is an append/consume byte buffer in network byte order.
//
// Reads past the end panic with a *protocol.DesyncError. A short read is never
// answered with a zero value: once the stream is out of step every following
// field would be garbage.
type Buffer struct {
	buf []byte
	off int
}

func NewBuffer() *Buffer {
	return &Buffer{buf: make([]byte, 0, 64)}
}

// FromBytes wraps b for consumption. b is not copied.
func FromBytes(b []byte) *Buffer {
	return &Buffer{buf: b}
}

// Bytes returns the full buffer contents regardless of the read offset.
func (b *Buffer) Bytes() []byte { return b.buf }

func (b *Buffer) Len() int { return len(b.buf) }

func (b *Buffer) Offset() int { return b.off }

func (b *Buffer) Remaining() int { return len(b.buf) - b.off }

func (b *Buffer) Exhausted() bool { return b.off == len(b.buf) }

func (b *Buffer) take(n int) []byte {
	if n < 0 || b.Remaining() < n {
		b.overrun(uint64(n))
	}
	out := b.buf[b.off : b.off+n]
	b.off += n
	return out
}

func (b *Buffer) WriteUint8(v uint8) { b.buf = append(b.buf, v) }

func (b *Buffer) WriteInt8(v int8) { b.buf = append(b.buf, byte(v)) }

func (b *Buffer) WriteUint32(v uint32) { b.buf = binary.BigEndian.AppendUint32(b.buf, v) }

func (b *Buffer) WriteInt32(v int32) { b.WriteUint32(uint32(v)) }

func (b *Buffer) WriteFloat64(v float64) {
	b.buf = binary.BigEndian.AppendUint64(b.buf, math.Float64bits(v))
}

func (b *Buffer) WriteBytes(p []byte) { b.buf = append(b.buf, p...) }

// WriteString writes a u32 length followed by the raw UTF-8 bytes.
func (b *Buffer) WriteString(s string) {
	b.WriteUint32(uint32(len(s)))
	b.buf = append(b.buf, s...)
}

func (b *Buffer) WriteStringList(list []string) {
	b.WriteUint32(uint32(len(list)))
	for _, s := range list {
		b.WriteString(s)
	}
}

func (b *Buffer) WritePosition(p Position2D) {
	b.WriteFloat64(p.X)
	b.WriteFloat64(p.Y)
}

func (b *Buffer) WriteColor(c Color) {
	b.buf = append(b.buf, c.R, c.G, c.B, c.A)
}

func (b *Buffer) WriteBoundingBox(box BoundingBox) {
	b.WritePosition(box.LowerLeft)
	b.WritePosition(box.UpperRight)
}

func (b *Buffer) ReadUint8() uint8 { return b.take(1)[0] }

func (b *Buffer) ReadInt8() int8 { return int8(b.take(1)[0]) }

func (b *Buffer) ReadUint32() uint32 { return binary.BigEndian.Uint32(b.take(4)) }

func (b *Buffer) ReadInt32() int32 { return int32(b.ReadUint32()) }

func (b *Buffer) ReadFloat64() float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b.take(8)))
}

// ReadBytes consumes n bytes and returns a copy.
func (b *Buffer) ReadBytes(n int) []byte {
	src := b.take(n)
	out := make([]byte, n)
	copy(out, src)
	return out
}

func (b *Buffer) ReadString() string {
	n := b.ReadUint32()
	if uint64(n) > uint64(b.Remaining()) {
		b.overrun(uint64(n))
	}
	return string(b.take(int(n)))
}

func (b *Buffer) ReadStringList() []string {
	n := b.ReadUint32()
	// each element needs at least its 4-byte length
	if uint64(n)*4 > uint64(b.Remaining()) {
		b.overrun(uint64(n) * 4)
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		out = append(out, b.ReadString())
	}
	return out
}

func (b *Buffer) ReadPosition() Position2D {
	x := b.ReadFloat64()
	y := b.ReadFloat64()
	return Position2D{X: x, Y: y}
}

func (b *Buffer) ReadColor() Color {
	p := b.take(4)
	return Color{R: p[0], G: p[1], B: p[2], A: p[3]}
}

func (b *Buffer) ReadBoundingBox() BoundingBox {
	ll := b.ReadPosition()
	ur := b.ReadPosition()
	return BoundingBox{LowerLeft: ll, UpperRight: ur}
}

func (b *Buffer) overrun(want uint64) {
	panic(&protocol.DesyncError{
		Detail: fmt.Sprintf("want %d bytes at offset %d, have %d", want, b.off, b.Remaining()),
		Err:    protocol.ErrBufferOverrun,
	})
}
