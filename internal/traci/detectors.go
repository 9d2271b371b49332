package traci

import "github.com/danmuck/tracilink/internal/protocol/schema"

// InductionLoop addresses one induction loop detector.
type InductionLoop struct {
	c  *Client
	id string
}

func (c *Client) InductionLoop(id string) InductionLoop { return InductionLoop{c: c, id: id} }

func (c *Client) InductionLoopIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetInductionLoop, "", schema.VarIDList)
}

func (d InductionLoop) VehicleCount() (int32, error) {
	return d.c.getInt(schema.CmdGetInductionLoop, d.id, schema.VarLastStepVehicleCount)
}

func (d InductionLoop) Occupancy() (float64, error) {
	return d.c.getDouble(schema.CmdGetInductionLoop, d.id, schema.VarLastStepOccupancy)
}

// ArealDetector addresses one lane area detector.
type ArealDetector struct {
	c  *Client
	id string
}

func (c *Client) ArealDetector(id string) ArealDetector { return ArealDetector{c: c, id: id} }

func (c *Client) ArealDetectorIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetArealDetector, "", schema.VarIDList)
}

// JamLength is the jam length in meters during the last step.
func (d ArealDetector) JamLength() (float64, error) {
	return d.c.getDouble(schema.CmdGetArealDetector, d.id, schema.VarJamLengthMeters)
}

func (d ArealDetector) VehicleCount() (int32, error) {
	return d.c.getInt(schema.CmdGetArealDetector, d.id, schema.VarLastStepVehicleCount)
}
