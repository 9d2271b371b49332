package schema

import "fmt"

// Control commands.
const (
	CmdGetVersion uint8 = 0x00
	CmdSimStep    uint8 = 0x02
	CmdSendFile   uint8 = 0x75
	CmdClose      uint8 = 0x7F
)

// Command groups. Getters answer with group+ResponseOffset.
const (
	CmdGetInductionLoop uint8 = 0xA0
	CmdGetArealDetector uint8 = 0xAD
	CmdGetTrafficLight  uint8 = 0xA2
	CmdGetLane          uint8 = 0xA3
	CmdGetVehicle       uint8 = 0xA4
	CmdGetVehicleType   uint8 = 0xA5
	CmdGetRoute         uint8 = 0xA6
	CmdGetPOI           uint8 = 0xA7
	CmdGetPolygon       uint8 = 0xA8
	CmdGetJunction      uint8 = 0xA9
	CmdGetEdge          uint8 = 0xAA
	CmdGetSimulation    uint8 = 0xAB
	CmdGetGUI           uint8 = 0xAC
	CmdGetPerson        uint8 = 0xAE

	CmdSetTrafficLight uint8 = 0xC2
	CmdSetLane         uint8 = 0xC3
	CmdSetVehicle      uint8 = 0xC4
	CmdSetVehicleType  uint8 = 0xC5
	CmdSetRoute        uint8 = 0xC6
	CmdSetPOI          uint8 = 0xC7
	CmdSetPolygon      uint8 = 0xC8
	CmdSetEdge         uint8 = 0xCA
	CmdSetSimulation   uint8 = 0xCB
	CmdSetGUI          uint8 = 0xCC
	CmdSetPerson       uint8 = 0xCE

	CmdSubscribeVehicle    uint8 = 0xD4
	CmdSubscribeSimulation uint8 = 0xDB
	CmdSubscribePerson     uint8 = 0xDE

	ResponseOffset uint8 = 0x10

	ResponseSubscribeVehicle    = CmdSubscribeVehicle + ResponseOffset
	ResponseSubscribeSimulation = CmdSubscribeSimulation + ResponseOffset
	ResponseSubscribePerson     = CmdSubscribePerson + ResponseOffset
)

// ResponseFor returns the response command id a getter or subscription
// answers with.
func ResponseFor(cmd uint8) uint8 { return cmd + ResponseOffset }

// Variables shared by every object kind.
const (
	VarIDList    uint8 = 0x00
	VarIDCount   uint8 = 0x01
	VarParameter uint8 = 0x7E
	VarAdd       uint8 = 0x80
	VarRemove    uint8 = 0x81
)

// Vehicle, person and vehicle type variables.
const (
	VarSpeed          uint8 = 0x40
	VarMaxSpeed       uint8 = 0x41
	VarPosition       uint8 = 0x42
	VarAngle          uint8 = 0x43
	VarLength         uint8 = 0x44
	VarColor          uint8 = 0x45
	VarVehicleClass   uint8 = 0x49
	VarWidth          uint8 = 0x4D
	VarType           uint8 = 0x4F
	VarRoadID         uint8 = 0x50
	VarLaneID         uint8 = 0x51
	VarLaneIndex      uint8 = 0x52
	VarRouteID        uint8 = 0x53
	VarLanePosition   uint8 = 0x56
	VarRoute          uint8 = 0x57
	VarSignals        uint8 = 0x5B
	VarCO2Emission    uint8 = 0x60
	VarWaitingTime    uint8 = 0x7A
	VarDistance       uint8 = 0x84
	VarSpeedMode      uint8 = 0xB3
	VarStopState      uint8 = 0xB5
	VarLaneChangeMode uint8 = 0xB6
	VarHeight         uint8 = 0xBC

	CmdStop         uint8 = 0x12
	CmdChangeLane   uint8 = 0x13
	CmdSlowDown     uint8 = 0x14
	CmdChangeTarget uint8 = 0x31
)

// Simulation variables.
const (
	VarTime                uint8 = 0x66
	VarParkingStartingIDs  uint8 = 0x6D
	VarParkingEndingIDs    uint8 = 0x6F
	VarTimeStep            uint8 = 0x70
	VarLoadedIDs           uint8 = 0x72
	VarDepartedIDs         uint8 = 0x74
	VarTeleportStartingIDs uint8 = 0x76
	VarTeleportEndingIDs   uint8 = 0x78
	VarArrivedIDs          uint8 = 0x7A
	VarDeltaT              uint8 = 0x7B
	VarNetBoundingBox      uint8 = 0x7C
	VarMinExpectedVehicles uint8 = 0x7D
)

// Lane, edge and detector variables.
const (
	VarLastStepVehicleCount uint8 = 0x10
	VarLastStepMeanSpeed    uint8 = 0x11
	VarLastStepOccupancy    uint8 = 0x13
	VarJamLengthMeters      uint8 = 0x19
	VarLaneEdgeID           uint8 = 0x31
	VarLaneAllowed          uint8 = 0x34
	VarShape                uint8 = 0x4E
	VarEdges                uint8 = 0x54
	VarEdgeTravelTime       uint8 = 0x58
	VarCurrentTravelTime    uint8 = 0x5A
)

// Traffic light variables.
const (
	VarTLState           uint8 = 0x20
	VarTLPhaseIndex      uint8 = 0x22
	VarTLProgram         uint8 = 0x23
	VarTLPhaseDuration   uint8 = 0x24
	VarTLControlledLanes uint8 = 0x26
	VarTLCurrentPhase    uint8 = 0x28
	VarTLCurrentProgram  uint8 = 0x29
	VarTLNextSwitch      uint8 = 0x2D
)

// GUI variables.
const (
	VarViewZoom     uint8 = 0xA0
	VarViewOffset   uint8 = 0xA1
	VarViewSchema   uint8 = 0xA2
	VarViewBoundary uint8 = 0xA3
	VarScreenshot   uint8 = 0xA5
	VarTrackVehicle uint8 = 0xA6
)

// Vehicle signal bits reported by VarSignals.
const (
	SignalBlinkerRight uint32 = 1 << 0
	SignalBlinkerLeft  uint32 = 1 << 1
	SignalEmergency    uint32 = 1 << 3
	SignalBrakeLight   uint32 = 1 << 4
)

// Stop-state bits reported by VarStopState.
const (
	StopStateStopped uint8 = 1 << 0
	StopStateParking uint8 = 1 << 1
)

// CommandName returns a readable name for logs and metric labels.
func CommandName(cmd uint8) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("cmd_0x%02x", cmd)
}

var commandNames = map[uint8]string{
	CmdGetVersion:          "get_version",
	CmdSimStep:             "sim_step",
	CmdSendFile:            "send_file",
	CmdClose:               "close",
	CmdGetInductionLoop:    "get_induction_loop",
	CmdGetArealDetector:    "get_areal_detector",
	CmdGetTrafficLight:     "get_traffic_light",
	CmdGetLane:             "get_lane",
	CmdGetVehicle:          "get_vehicle",
	CmdGetVehicleType:      "get_vehicle_type",
	CmdGetRoute:            "get_route",
	CmdGetPOI:              "get_poi",
	CmdGetPolygon:          "get_polygon",
	CmdGetJunction:         "get_junction",
	CmdGetEdge:             "get_edge",
	CmdGetSimulation:       "get_simulation",
	CmdGetGUI:              "get_gui",
	CmdGetPerson:           "get_person",
	CmdSetTrafficLight:     "set_traffic_light",
	CmdSetLane:             "set_lane",
	CmdSetVehicle:          "set_vehicle",
	CmdSetVehicleType:      "set_vehicle_type",
	CmdSetRoute:            "set_route",
	CmdSetPOI:              "set_poi",
	CmdSetPolygon:          "set_polygon",
	CmdSetEdge:             "set_edge",
	CmdSetSimulation:       "set_simulation",
	CmdSetGUI:              "set_gui",
	CmdSetPerson:           "set_person",
	CmdSubscribeVehicle:    "subscribe_vehicle",
	CmdSubscribeSimulation: "subscribe_simulation",
	CmdSubscribePerson:     "subscribe_person",
}
