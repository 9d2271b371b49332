package traci

import (
	"time"

	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// Vehicle addresses one vehicle by id.
type Vehicle struct {
	c  *Client
	id string
}

func (c *Client) Vehicle(id string) Vehicle { return Vehicle{c: c, id: id} }

func (c *Client) VehicleIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetVehicle, "", schema.VarIDList)
}

func (c *Client) VehicleCount() (int32, error) {
	return c.getInt(schema.CmdGetVehicle, "", schema.VarIDCount)
}

func (v Vehicle) ID() string { return v.id }

func (v Vehicle) get(variable uint8, tag codec.Tag, params ...codec.Value) (codec.Value, error) {
	return v.c.Get(schema.CmdGetVehicle, v.id, variable, tag, params...)
}

func (v Vehicle) set(variable uint8, value codec.Value) error {
	return v.c.Set(schema.CmdSetVehicle, v.id, variable, value)
}

func (v Vehicle) Position() (codec.Position2D, error) {
	return v.c.getPosition(schema.CmdGetVehicle, v.id, schema.VarPosition)
}

func (v Vehicle) RoadID() (string, error) {
	return v.c.getString(schema.CmdGetVehicle, v.id, schema.VarRoadID)
}

func (v Vehicle) LaneID() (string, error) {
	return v.c.getString(schema.CmdGetVehicle, v.id, schema.VarLaneID)
}

func (v Vehicle) LaneIndex() (int32, error) {
	return v.c.getInt(schema.CmdGetVehicle, v.id, schema.VarLaneIndex)
}

func (v Vehicle) LanePosition() (float64, error) {
	return v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarLanePosition)
}

func (v Vehicle) Speed() (float64, error) {
	return v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarSpeed)
}

// Angle is the heading in protocol degrees, 0 = north, clockwise.
func (v Vehicle) Angle() (float64, error) {
	return v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarAngle)
}

func (v Vehicle) VehicleClass() (string, error) {
	return v.c.getString(schema.CmdGetVehicle, v.id, schema.VarVehicleClass)
}

func (v Vehicle) TypeID() (string, error) {
	return v.c.getString(schema.CmdGetVehicle, v.id, schema.VarType)
}

func (v Vehicle) RouteID() (string, error) {
	return v.c.getString(schema.CmdGetVehicle, v.id, schema.VarRouteID)
}

func (v Vehicle) Route() ([]string, error) {
	return v.c.getStringList(schema.CmdGetVehicle, v.id, schema.VarRoute)
}

// Signals returns the signal bitmask; see the schema.Signal* bits.
func (v Vehicle) Signals() (int32, error) {
	return v.c.getInt(schema.CmdGetVehicle, v.id, schema.VarSignals)
}

// StopState returns the stop-state bitmask; see the schema.StopState* bits.
func (v Vehicle) StopState() (uint8, error) {
	val, err := v.get(schema.VarStopState, codec.TagUbyte)
	return val.Ubyte, err
}

func (v Vehicle) Length() (float64, error) {
	return v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarLength)
}

func (v Vehicle) Width() (float64, error) {
	return v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarWidth)
}

func (v Vehicle) Height() (float64, error) {
	if err := v.c.requireFeature(schema.FeatureVehicleHeight); err != nil {
		return 0, err
	}
	return v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarHeight)
}

func (v Vehicle) Color() (codec.Color, error) {
	return v.c.getColor(schema.CmdGetVehicle, v.id, schema.VarColor)
}

// CO2Emission is in mg during the last step.
func (v Vehicle) CO2Emission() (float64, error) {
	return v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarCO2Emission)
}

func (v Vehicle) Distance() (float64, error) {
	return v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarDistance)
}

// WaitingTime is carried as double seconds at every API version.
func (v Vehicle) WaitingTime() (time.Duration, error) {
	s, err := v.c.getDouble(schema.CmdGetVehicle, v.id, schema.VarWaitingTime)
	return SecondsToDuration(s), err
}

func (v Vehicle) Parameter(key string) (string, error) {
	val, err := v.get(schema.VarParameter, codec.TagString, codec.String(key))
	return val.String, err
}

func (v Vehicle) SetSpeed(mps float64) error {
	return v.set(schema.VarSpeed, codec.Double(mps))
}

func (v Vehicle) SetMaxSpeed(mps float64) error {
	return v.set(schema.VarMaxSpeed, codec.Double(mps))
}

func (v Vehicle) SetColor(col codec.Color) error {
	return v.set(schema.VarColor, codec.RGBA(col))
}

func (v Vehicle) SetLaneChangeMode(mode LaneChangeMode) error {
	return v.set(schema.VarLaneChangeMode, codec.Int(mode.Pack()))
}

func (v Vehicle) SetSpeedMode(bits int32) error {
	return v.set(schema.VarSpeedMode, codec.Int(bits))
}

// ChangeLane asks for laneIndex for the given duration. The index is a signed
// byte on the wire.
func (v Vehicle) ChangeLane(laneIndex int8, d time.Duration) error {
	return v.set(schema.CmdChangeLane, codec.Compound(codec.Byte(laneIndex), v.c.TimeValue(d)))
}

// SlowDown reduces the speed linearly to mps over d.
func (v Vehicle) SlowDown(mps float64, d time.Duration) error {
	return v.set(schema.CmdSlowDown, codec.Compound(codec.Double(mps), v.c.TimeValue(d)))
}

// Stop places a stop on edge at pos. flags is sent only when the API carries
// stop flags (see schema.StopState* for the bit values).
func (v Vehicle) Stop(edge string, pos float64, laneIndex int8, d time.Duration, flags uint8) error {
	items := []codec.Value{codec.String(edge), codec.Double(pos), codec.Byte(laneIndex), v.c.TimeValue(d)}
	if v.c.caps.Has(schema.FeatureStopFlags) {
		items = append(items, codec.Ubyte(flags))
	}
	return v.set(schema.CmdStop, codec.Compound(items...))
}

func (v Vehicle) ChangeTarget(edge string) error {
	return v.set(schema.CmdChangeTarget, codec.String(edge))
}

func (v Vehicle) SetRoute(edges []string) error {
	return v.set(schema.VarRoute, codec.StringList(edges))
}

func (v Vehicle) SetParameter(key, value string) error {
	return v.set(schema.VarParameter, codec.Compound(codec.String(key), codec.String(value)))
}

// Add inserts a new vehicle with this id.
func (v Vehicle) Add(typeID, routeID string, depart time.Duration, pos, speed float64, lane int8) error {
	return v.set(schema.VarAdd, codec.Compound(
		codec.String(typeID),
		codec.String(routeID),
		v.c.TimeValue(depart),
		codec.Double(pos),
		codec.Double(speed),
		codec.Byte(lane),
	))
}

// Remove takes the vehicle out of the simulation. reason is the server's
// removal notification code.
func (v Vehicle) Remove(reason int8) error {
	return v.set(schema.VarRemove, codec.Byte(reason))
}
