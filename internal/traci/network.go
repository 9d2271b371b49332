package traci

import (
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// VehicleType addresses one vehicle type.
type VehicleType struct {
	c  *Client
	id string
}

func (c *Client) VehicleType(id string) VehicleType { return VehicleType{c: c, id: id} }

func (t VehicleType) Length() (float64, error) {
	return t.c.getDouble(schema.CmdGetVehicleType, t.id, schema.VarLength)
}

func (t VehicleType) MaxSpeed() (float64, error) {
	return t.c.getDouble(schema.CmdGetVehicleType, t.id, schema.VarMaxSpeed)
}

func (t VehicleType) VehicleClass() (string, error) {
	return t.c.getString(schema.CmdGetVehicleType, t.id, schema.VarVehicleClass)
}

func (t VehicleType) SetMaxSpeed(mps float64) error {
	return t.c.Set(schema.CmdSetVehicleType, t.id, schema.VarMaxSpeed, codec.Double(mps))
}

// Route addresses one route.
type Route struct {
	c  *Client
	id string
}

func (c *Client) Route(id string) Route { return Route{c: c, id: id} }

func (c *Client) RouteIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetRoute, "", schema.VarIDList)
}

func (r Route) Edges() ([]string, error) {
	return r.c.getStringList(schema.CmdGetRoute, r.id, schema.VarEdges)
}

// Add defines the route from its edge list.
func (r Route) Add(edges []string) error {
	return r.c.Set(schema.CmdSetRoute, r.id, schema.VarAdd, codec.StringList(edges))
}

// Edge addresses one edge.
type Edge struct {
	c  *Client
	id string
}

func (c *Client) Edge(id string) Edge { return Edge{c: c, id: id} }

func (c *Client) EdgeIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetEdge, "", schema.VarIDList)
}

func (e Edge) CurrentTravelTime() (float64, error) {
	return e.c.getDouble(schema.CmdGetEdge, e.id, schema.VarCurrentTravelTime)
}

func (e Edge) MeanSpeed() (float64, error) {
	return e.c.getDouble(schema.CmdGetEdge, e.id, schema.VarLastStepMeanSpeed)
}

// SetTravelTime overrides the travel time used for rerouting, in seconds.
func (e Edge) SetTravelTime(seconds float64) error {
	return e.c.Set(schema.CmdSetEdge, e.id, schema.VarEdgeTravelTime, codec.Compound(codec.Double(seconds)))
}

// Lane addresses one lane.
type Lane struct {
	c  *Client
	id string
}

func (c *Client) Lane(id string) Lane { return Lane{c: c, id: id} }

func (c *Client) LaneIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetLane, "", schema.VarIDList)
}

func (l Lane) Length() (float64, error) {
	return l.c.getDouble(schema.CmdGetLane, l.id, schema.VarLength)
}

func (l Lane) MaxSpeed() (float64, error) {
	return l.c.getDouble(schema.CmdGetLane, l.id, schema.VarMaxSpeed)
}

func (l Lane) Shape() ([]codec.Position2D, error) {
	return l.c.getShape(schema.CmdGetLane, l.id, schema.VarShape)
}

func (l Lane) EdgeID() (string, error) {
	return l.c.getString(schema.CmdGetLane, l.id, schema.VarLaneEdgeID)
}

func (l Lane) Occupancy() (float64, error) {
	return l.c.getDouble(schema.CmdGetLane, l.id, schema.VarLastStepOccupancy)
}

// Allowed lists the vehicle classes permitted on the lane.
func (l Lane) Allowed() ([]string, error) {
	return l.c.getStringList(schema.CmdGetLane, l.id, schema.VarLaneAllowed)
}

func (l Lane) SetMaxSpeed(mps float64) error {
	return l.c.Set(schema.CmdSetLane, l.id, schema.VarMaxSpeed, codec.Double(mps))
}

// Junction addresses one junction.
type Junction struct {
	c  *Client
	id string
}

func (c *Client) Junction(id string) Junction { return Junction{c: c, id: id} }

func (c *Client) JunctionIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetJunction, "", schema.VarIDList)
}

func (j Junction) Position() (codec.Position2D, error) {
	return j.c.getPosition(schema.CmdGetJunction, j.id, schema.VarPosition)
}
