package roster

import (
	"github.com/danmuck/tracilink/internal/protocol/schema"
	"github.com/danmuck/tracilink/internal/traci"
)

// VehicleVariables are the per-vehicle subscription variables. Results are
// reported in this order.
var VehicleVariables = []uint8{
	schema.VarPosition,
	schema.VarRoadID,
	schema.VarSpeed,
	schema.VarAngle,
	schema.VarSignals,
}

// ClientServer adapts a *traci.Client to Server.
type ClientServer struct {
	c *traci.Client
}

func NewClientServer(c *traci.Client) *ClientServer { return &ClientServer{c: c} }

// SubscribeVehicle subscribes the kinematic variables for id. The immediate
// values the server returns are validated and then left to the next step.
func (s *ClientServer) SubscribeVehicle(id string) error {
	_, err := s.c.Subscribe(schema.CmdSubscribeVehicle, id, 0, traci.Forever, VehicleVariables)
	return err
}

func (s *ClientServer) UnsubscribeVehicle(id string) error {
	return s.c.Unsubscribe(schema.CmdSubscribeVehicle, id)
}

func (s *ClientServer) VehicleClass(id string) (string, error) {
	return s.c.Vehicle(id).VehicleClass()
}
