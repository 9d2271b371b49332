package codec

import (
	"fmt"

	"github.com/danmuck/tracilink/internal/protocol"
)

// Tag is the one-byte type marker preceding every typed payload value.
type Tag uint8

const (
	TagPosition2D  Tag = 0x01
	TagPosition3D  Tag = 0x03
	TagBoundingBox Tag = 0x05
	TagPolygon     Tag = 0x06
	TagUbyte       Tag = 0x07
	TagByte        Tag = 0x08
	TagInteger     Tag = 0x09
	TagDouble      Tag = 0x0B
	TagString      Tag = 0x0C
	TagStringList  Tag = 0x0E
	TagCompound    Tag = 0x0F
	TagColor       Tag = 0x11
)

func (t Tag) String() string {
	switch t {
	case TagPosition2D:
		return "position2d"
	case TagPosition3D:
		return "position3d"
	case TagBoundingBox:
		return "boundingbox"
	case TagPolygon:
		return "polygon"
	case TagUbyte:
		return "ubyte"
	case TagByte:
		return "byte"
	case TagInteger:
		return "integer"
	case TagDouble:
		return "double"
	case TagString:
		return "string"
	case TagStringList:
		return "stringlist"
	case TagCompound:
		return "compound"
	case TagColor:
		return "color"
	default:
		return fmt.Sprintf("tag(0x%02x)", uint8(t))
	}
}

// Position2D is a point in protocol coordinates.
type Position2D struct {
	X float64
	Y float64
}

// Color is an RGBA quadruple.
type Color struct {
	R, G, B, A uint8
}

// BoundingBox is an axis-aligned rectangle in protocol coordinates.
type BoundingBox struct {
	LowerLeft  Position2D
	UpperRight Position2D
}

// Value is a decoded tagged value. Only the field matching Tag is meaningful.
type Value struct {
	Tag    Tag
	Ubyte  uint8
	Byte   int8
	Int    int32
	Double float64
	String string
	List   []string
	Pos    Position2D
	Pos3Z  float64
	Color  Color
	Box    BoundingBox
	Shape  []Position2D
	Items  []Value
}

func Ubyte(v uint8) Value { return Value{Tag: TagUbyte, Ubyte: v} }

func Byte(v int8) Value { return Value{Tag: TagByte, Byte: v} }

func Int(v int32) Value { return Value{Tag: TagInteger, Int: v} }

func Double(v float64) Value { return Value{Tag: TagDouble, Double: v} }

func String(v string) Value { return Value{Tag: TagString, String: v} }

func StringList(v []string) Value { return Value{Tag: TagStringList, List: v} }

func Position(p Position2D) Value { return Value{Tag: TagPosition2D, Pos: p} }

func RGBA(c Color) Value { return Value{Tag: TagColor, Color: c} }

func Box(b BoundingBox) Value { return Value{Tag: TagBoundingBox, Box: b} }

func Polygon(shape []Position2D) Value { return Value{Tag: TagPolygon, Shape: shape} }

func Compound(items ...Value) Value { return Value{Tag: TagCompound, Items: items} }

// WriteValue writes the tag followed by the encoded value.
func (b *Buffer) WriteValue(v Value) {
	b.WriteUint8(uint8(v.Tag))
	b.WriteRaw(v)
}

// WriteRaw writes the encoded value without its tag.
func (b *Buffer) WriteRaw(v Value) {
	switch v.Tag {
	case TagUbyte:
		b.WriteUint8(v.Ubyte)
	case TagByte:
		b.WriteInt8(v.Byte)
	case TagInteger:
		b.WriteInt32(v.Int)
	case TagDouble:
		b.WriteFloat64(v.Double)
	case TagString:
		b.WriteString(v.String)
	case TagStringList:
		b.WriteStringList(v.List)
	case TagPosition2D:
		b.WritePosition(v.Pos)
	case TagPosition3D:
		b.WritePosition(v.Pos)
		b.WriteFloat64(v.Pos3Z)
	case TagColor:
		b.WriteColor(v.Color)
	case TagBoundingBox:
		b.WriteBoundingBox(v.Box)
	case TagPolygon:
		b.writeShapeCount(len(v.Shape))
		for _, p := range v.Shape {
			b.WritePosition(p)
		}
	case TagCompound:
		b.WriteInt32(int32(len(v.Items)))
		for _, item := range v.Items {
			b.WriteValue(item)
		}
	default:
		panic(fmt.Sprintf("codec: cannot encode %s", v.Tag))
	}
}

// ReadValue reads a tag and the value it announces.
func (b *Buffer) ReadValue() Value {
	return b.ReadRaw(Tag(b.ReadUint8()))
}

// ReadRaw reads a value whose tag has already been consumed.
func (b *Buffer) ReadRaw(tag Tag) Value {
	v := Value{Tag: tag}
	switch tag {
	case TagUbyte:
		v.Ubyte = b.ReadUint8()
	case TagByte:
		v.Byte = b.ReadInt8()
	case TagInteger:
		v.Int = b.ReadInt32()
	case TagDouble:
		v.Double = b.ReadFloat64()
	case TagString:
		v.String = b.ReadString()
	case TagStringList:
		v.List = b.ReadStringList()
	case TagPosition2D:
		v.Pos = b.ReadPosition()
	case TagPosition3D:
		v.Pos = b.ReadPosition()
		v.Pos3Z = b.ReadFloat64()
	case TagColor:
		v.Color = b.ReadColor()
	case TagBoundingBox:
		v.Box = b.ReadBoundingBox()
	case TagPolygon:
		n := b.readShapeCount()
		v.Shape = make([]Position2D, 0, n)
		for i := 0; i < n; i++ {
			v.Shape = append(v.Shape, b.ReadPosition())
		}
	case TagCompound:
		n := b.ReadInt32()
		if n < 0 || int(n) > b.Remaining() {
			b.overrun(uint64(uint32(n)))
		}
		v.Items = make([]Value, 0, n)
		for i := int32(0); i < n; i++ {
			v.Items = append(v.Items, b.ReadValue())
		}
	default:
		panic(&protocol.DesyncError{
			Detail: fmt.Sprintf("unknown type tag 0x%02x at offset %d", uint8(tag), b.off-1),
			Err:    protocol.ErrTypeMismatch,
		})
	}
	return v
}

const positionSize = 16

// Shape point counts use one byte up to 255 points. Longer and empty shapes
// use the extended form: a zero byte followed by an int32 count.
func (b *Buffer) writeShapeCount(n int) {
	if n > 0 && n <= 0xFF {
		b.WriteUint8(uint8(n))
		return
	}
	b.WriteUint8(0)
	b.WriteInt32(int32(n))
}

func (b *Buffer) readShapeCount() int {
	n := int(b.ReadUint8())
	if n != 0 {
		return n
	}
	ext := b.ReadInt32()
	if ext < 0 || int64(ext)*positionSize > int64(b.Remaining()) {
		b.overrun(uint64(uint32(ext)) * positionSize)
	}
	return int(ext)
}

// ExpectTag consumes a tag byte and panics with a desync if it differs from want.
func (b *Buffer) ExpectTag(want Tag) {
	got := Tag(b.ReadUint8())
	if got != want {
		panic(&protocol.DesyncError{
			Detail: fmt.Sprintf("got %s want %s", got, want),
			Err:    protocol.ErrTypeMismatch,
		})
	}
}

// ReadTyped consumes a tag, asserts it equals want and reads the value.
func (b *Buffer) ReadTyped(want Tag) Value {
	b.ExpectTag(want)
	return b.ReadRaw(want)
}

func (b *Buffer) ReadTypedInt() int32 { return b.ReadTyped(TagInteger).Int }

func (b *Buffer) ReadTypedDouble() float64 { return b.ReadTyped(TagDouble).Double }

func (b *Buffer) ReadTypedString() string { return b.ReadTyped(TagString).String }

func (b *Buffer) ReadTypedStringList() []string { return b.ReadTyped(TagStringList).List }
