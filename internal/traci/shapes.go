package traci

import (
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// POI addresses one point of interest.
type POI struct {
	c  *Client
	id string
}

func (c *Client) POI(id string) POI { return POI{c: c, id: id} }

func (c *Client) POIIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetPOI, "", schema.VarIDList)
}

func (p POI) Position() (codec.Position2D, error) {
	return p.c.getPosition(schema.CmdGetPOI, p.id, schema.VarPosition)
}

func (p POI) Type() (string, error) {
	return p.c.getString(schema.CmdGetPOI, p.id, schema.VarType)
}

func (p POI) Color() (codec.Color, error) {
	return p.c.getColor(schema.CmdGetPOI, p.id, schema.VarColor)
}

func (p POI) Add(poiType string, col codec.Color, layer int32, pos codec.Position2D) error {
	return p.c.Set(schema.CmdSetPOI, p.id, schema.VarAdd, codec.Compound(
		codec.String(poiType),
		codec.RGBA(col),
		codec.Int(layer),
		codec.Position(pos),
	))
}

func (p POI) Remove(layer int32) error {
	return p.c.Set(schema.CmdSetPOI, p.id, schema.VarRemove, codec.Int(layer))
}

func (p POI) SetPosition(pos codec.Position2D) error {
	return p.c.Set(schema.CmdSetPOI, p.id, schema.VarPosition, codec.Position(pos))
}

// Polygon addresses one polygon shape.
type Polygon struct {
	c  *Client
	id string
}

func (c *Client) Polygon(id string) Polygon { return Polygon{c: c, id: id} }

func (c *Client) PolygonIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetPolygon, "", schema.VarIDList)
}

func (p Polygon) Shape() ([]codec.Position2D, error) {
	return p.c.getShape(schema.CmdGetPolygon, p.id, schema.VarShape)
}

func (p Polygon) Type() (string, error) {
	return p.c.getString(schema.CmdGetPolygon, p.id, schema.VarType)
}

func (p Polygon) Color() (codec.Color, error) {
	return p.c.getColor(schema.CmdGetPolygon, p.id, schema.VarColor)
}

func (p Polygon) Add(polyType string, col codec.Color, filled bool, layer int32, shape []codec.Position2D) error {
	var fill uint8
	if filled {
		fill = 1
	}
	return p.c.Set(schema.CmdSetPolygon, p.id, schema.VarAdd, codec.Compound(
		codec.String(polyType),
		codec.RGBA(col),
		codec.Ubyte(fill),
		codec.Int(layer),
		codec.Polygon(shape),
	))
}

func (p Polygon) Remove(layer int32) error {
	return p.c.Set(schema.CmdSetPolygon, p.id, schema.VarRemove, codec.Int(layer))
}
