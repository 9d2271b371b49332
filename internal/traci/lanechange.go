package traci

// LaneChangeMode is the five field lane-change priority bitset. Each field
// keeps only its two least significant bits.
type LaneChangeMode struct {
	Strategic   uint8
	Cooperative uint8
	SpeedGain   uint8
	RightDrive  uint8
	Priority    uint8
}

// Pack lays the fields out as bits 0-1 strategic, 2-3 cooperative,
// 4-5 speed gain, 6-7 right drive and 8-9 protocol priority.
func (m LaneChangeMode) Pack() int32 {
	return PackLaneChangeMode(m.Strategic, m.Cooperative, m.SpeedGain, m.RightDrive, m.Priority)
}

func PackLaneChangeMode(strategic, cooperative, speedGain, rightDrive, priority uint8) int32 {
	return int32(strategic&3) |
		int32(cooperative&3)<<2 |
		int32(speedGain&3)<<4 |
		int32(rightDrive&3)<<6 |
		int32(priority&3)<<8
}

// UnpackLaneChangeMode is the inverse of Pack for values in bits 0-9.
func UnpackLaneChangeMode(v int32) LaneChangeMode {
	return LaneChangeMode{
		Strategic:   uint8(v & 3),
		Cooperative: uint8(v >> 2 & 3),
		SpeedGain:   uint8(v >> 4 & 3),
		RightDrive:  uint8(v >> 6 & 3),
		Priority:    uint8(v >> 8 & 3),
	}
}
