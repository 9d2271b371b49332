package traci

import (
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// Person addresses one pedestrian.
type Person struct {
	c  *Client
	id string
}

func (c *Client) Person(id string) Person { return Person{c: c, id: id} }

func (c *Client) PersonIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetPerson, "", schema.VarIDList)
}

func (p Person) Position() (codec.Position2D, error) {
	return p.c.getPosition(schema.CmdGetPerson, p.id, schema.VarPosition)
}

func (p Person) RoadID() (string, error) {
	return p.c.getString(schema.CmdGetPerson, p.id, schema.VarRoadID)
}

func (p Person) Speed() (float64, error) {
	return p.c.getDouble(schema.CmdGetPerson, p.id, schema.VarSpeed)
}

func (p Person) Angle() (float64, error) {
	return p.c.getDouble(schema.CmdGetPerson, p.id, schema.VarAngle)
}
