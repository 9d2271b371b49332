package traci

import (
	"time"

	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// TrafficLight addresses one traffic light program.
type TrafficLight struct {
	c  *Client
	id string
}

func (c *Client) TrafficLight(id string) TrafficLight { return TrafficLight{c: c, id: id} }

func (c *Client) TrafficLightIDs() ([]string, error) {
	return c.getStringList(schema.CmdGetTrafficLight, "", schema.VarIDList)
}

// State is the red/yellow/green string, one character per controlled link.
func (t TrafficLight) State() (string, error) {
	return t.c.getString(schema.CmdGetTrafficLight, t.id, schema.VarTLState)
}

func (t TrafficLight) Phase() (int32, error) {
	return t.c.getInt(schema.CmdGetTrafficLight, t.id, schema.VarTLCurrentPhase)
}

func (t TrafficLight) Program() (string, error) {
	return t.c.getString(schema.CmdGetTrafficLight, t.id, schema.VarTLCurrentProgram)
}

// NextSwitch is the absolute simulation time of the next phase change.
func (t TrafficLight) NextSwitch() (time.Duration, error) {
	return t.c.getTime(schema.CmdGetTrafficLight, t.id, schema.VarTLNextSwitch)
}

func (t TrafficLight) ControlledLanes() ([]string, error) {
	return t.c.getStringList(schema.CmdGetTrafficLight, t.id, schema.VarTLControlledLanes)
}

func (t TrafficLight) SetState(state string) error {
	return t.c.Set(schema.CmdSetTrafficLight, t.id, schema.VarTLState, codec.String(state))
}

func (t TrafficLight) SetPhaseIndex(index int32) error {
	return t.c.Set(schema.CmdSetTrafficLight, t.id, schema.VarTLPhaseIndex, codec.Int(index))
}

func (t TrafficLight) SetProgram(program string) error {
	return t.c.Set(schema.CmdSetTrafficLight, t.id, schema.VarTLProgram, codec.String(program))
}

func (t TrafficLight) SetPhaseDuration(d time.Duration) error {
	return t.c.Set(schema.CmdSetTrafficLight, t.id, schema.VarTLPhaseDuration, t.c.TimeValue(d))
}
