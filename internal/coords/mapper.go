// Package coords converts between protocol and local coordinates.
//
// The protocol places the origin bottom-left with y growing up and measures
// headings in degrees clockwise from north. The local convention places the
// origin top-left with y growing down and measures headings in radians
// counter-clockwise from east.
package coords

import (
	"fmt"
	"math"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
)

// ProtocolCoord is a position as reported by the simulator.
type ProtocolCoord = codec.Position2D

// LocalCoord is a position in the local simulation's frame.
type LocalCoord struct {
	X float64
	Y float64
}

// Mapper holds the network bounds of one session. It is immutable.
type Mapper struct {
	lowerLeft  ProtocolCoord
	upperRight ProtocolCoord
	margin     float64
}

// NewMapper validates the bounds; an inverted box is a configuration error.
func NewMapper(lowerLeft, upperRight ProtocolCoord, margin float64) (Mapper, error) {
	if upperRight.X < lowerLeft.X || upperRight.Y < lowerLeft.Y {
		return Mapper{}, &protocol.ConfigError{
			Field:  "network bounds",
			Reason: fmt.Sprintf("upper right %v below lower left %v", upperRight, lowerLeft),
		}
	}
	if margin < 0 || math.IsNaN(margin) {
		return Mapper{}, &protocol.ConfigError{Field: "margin", Reason: "must be non-negative"}
	}
	return Mapper{lowerLeft: lowerLeft, upperRight: upperRight, margin: margin}, nil
}

// FromBoundingBox is NewMapper over a box read from the simulator.
func FromBoundingBox(box codec.BoundingBox, margin float64) (Mapper, error) {
	return NewMapper(box.LowerLeft, box.UpperRight, margin)
}

func (m Mapper) Margin() float64 { return m.margin }

// Size is the local playground extent including the margin on both sides.
func (m Mapper) Size() LocalCoord {
	return LocalCoord{
		X: m.upperRight.X - m.lowerLeft.X + 2*m.margin,
		Y: m.upperRight.Y - m.lowerLeft.Y + 2*m.margin,
	}
}

func (m Mapper) ToLocal(p ProtocolCoord) LocalCoord {
	return LocalCoord{
		X: p.X - m.lowerLeft.X + m.margin,
		Y: (m.upperRight.Y - m.lowerLeft.Y) - (p.Y - m.lowerLeft.Y) + m.margin,
	}
}

func (m Mapper) ToProtocol(p LocalCoord) ProtocolCoord {
	return ProtocolCoord{
		X: p.X + m.lowerLeft.X - m.margin,
		Y: (m.upperRight.Y - m.lowerLeft.Y) - (p.Y - m.margin) + m.lowerLeft.Y,
	}
}

// ToLocalAngle maps protocol degrees (0 = north, clockwise) to local radians
// (0 = east) normalized to [-pi, pi).
func ToLocalAngle(deg float64) float64 {
	return wrap((90-deg)*math.Pi/180, math.Pi)
}

// ToProtocolAngle is the inverse of ToLocalAngle, normalized to [-180, 180).
func ToProtocolAngle(rad float64) float64 {
	return wrap(90-rad*180/math.Pi, 180)
}

// Methods for callers holding a Mapper.
func (Mapper) ToLocalAngle(deg float64) float64 { return ToLocalAngle(deg) }

func (Mapper) ToProtocolAngle(rad float64) float64 { return ToProtocolAngle(rad) }

// wrap normalizes v into [-half, half).
func wrap(v, half float64) float64 {
	full := 2 * half
	v = math.Mod(v+half, full)
	if v < 0 {
		v += full
	}
	return v - half
}
