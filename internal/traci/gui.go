package traci

import (
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// DefaultView is the id of the first GUI view.
const DefaultView = "View #0"

// GUI addresses one view of a GUI enabled server.
type GUI struct {
	c    *Client
	view string
}

func (c *Client) GUI(view string) GUI {
	if view == "" {
		view = DefaultView
	}
	return GUI{c: c, view: view}
}

func (g GUI) Zoom() (float64, error) {
	return g.c.getDouble(schema.CmdGetGUI, g.view, schema.VarViewZoom)
}

func (g GUI) Offset() (codec.Position2D, error) {
	return g.c.getPosition(schema.CmdGetGUI, g.view, schema.VarViewOffset)
}

func (g GUI) SetZoom(zoom float64) error {
	return g.c.Set(schema.CmdSetGUI, g.view, schema.VarViewZoom, codec.Double(zoom))
}

func (g GUI) SetOffset(p codec.Position2D) error {
	return g.c.Set(schema.CmdSetGUI, g.view, schema.VarViewOffset, codec.Position(p))
}

func (g GUI) TrackVehicle(vehicleID string) error {
	return g.c.Set(schema.CmdSetGUI, g.view, schema.VarTrackVehicle, codec.String(vehicleID))
}

// Screenshot asks the server to write the view to filename.
func (g GUI) Screenshot(filename string) error {
	return g.c.Set(schema.CmdSetGUI, g.view, schema.VarScreenshot, codec.String(filename))
}
