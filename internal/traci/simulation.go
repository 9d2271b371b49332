package traci

import (
	"time"

	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// Simulation groups the global simulation variables.
type Simulation struct{ c *Client }

func (c *Client) Simulation() Simulation { return Simulation{c: c} }

// CurrentTime reads the server clock with the variable the negotiated API
// uses for it.
func (s Simulation) CurrentTime() (time.Duration, error) {
	return s.c.getTime(schema.CmdGetSimulation, "", s.c.caps.TimeVariable())
}

// DeltaT is the server's step length.
func (s Simulation) DeltaT() (time.Duration, error) {
	return s.c.getTime(schema.CmdGetSimulation, "", schema.VarDeltaT)
}

// NetBoundary returns the network bounding box in protocol coordinates.
func (s Simulation) NetBoundary() (codec.BoundingBox, error) {
	v, err := s.c.Get(schema.CmdGetSimulation, "", schema.VarNetBoundingBox, codec.TagBoundingBox)
	return v.Box, err
}

func (s Simulation) LoadedIDs() ([]string, error) {
	return s.c.getStringList(schema.CmdGetSimulation, "", schema.VarLoadedIDs)
}

func (s Simulation) DepartedIDs() ([]string, error) {
	return s.c.getStringList(schema.CmdGetSimulation, "", schema.VarDepartedIDs)
}

func (s Simulation) ArrivedIDs() ([]string, error) {
	return s.c.getStringList(schema.CmdGetSimulation, "", schema.VarArrivedIDs)
}

// MinExpectedVehicles counts vehicles still running or waiting to depart.
func (s Simulation) MinExpectedVehicles() (int32, error) {
	return s.c.getInt(schema.CmdGetSimulation, "", schema.VarMinExpectedVehicles)
}
