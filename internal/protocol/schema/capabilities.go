package schema

import (
	"fmt"
	"sort"

	"github.com/danmuck/tracilink/internal/protocol"
)

// Feature names a protocol behaviour that varies with the server API version.
type Feature string

const (
	// FeatureDoubleTime carries times as double seconds instead of int32 milliseconds.
	FeatureDoubleTime Feature = "double_time"
	// FeatureVehicleHeight enables the vehicle height variable.
	FeatureVehicleHeight Feature = "vehicle_height"
	// FeatureStopFlags extends the stop compound with a flags byte.
	FeatureStopFlags Feature = "stop_flags"
	// FeatureParkingEvents enables the parking start/end id lists.
	FeatureParkingEvents Feature = "parking_events"
)

// Capabilities is the per-session view of what the connected server speaks.
// It is resolved once from the version handshake and never changes.
type Capabilities struct {
	APIVersion int32
	Server     string
	features   map[Feature]bool
}

// minVersion records the first API version supporting each feature.
var minVersion = map[Feature]int32{
	FeatureParkingEvents: 15,
	FeatureVehicleHeight: 16,
	FeatureStopFlags:     17,
	FeatureDoubleTime:    18,
}

// SupportedAPIVersions lists the server API versions this client speaks.
var SupportedAPIVersions = []int32{15, 16, 17, 18, 19, 20}

// Resolve builds the capability table for apiVersion.
func Resolve(apiVersion int32, server string) (Capabilities, error) {
	if !isSupported(apiVersion) {
		return Capabilities{}, fmt.Errorf("%w: %d (supported %v)", protocol.ErrUnsupportedAPI, apiVersion, SupportedAPIVersions)
	}
	c := Capabilities{APIVersion: apiVersion, Server: server, features: make(map[Feature]bool, len(minVersion))}
	for f, v := range minVersion {
		c.features[f] = apiVersion >= v
	}
	return c, nil
}

// Has reports whether feature is available at the negotiated version.
func (c Capabilities) Has(f Feature) bool {
	return c.features[f]
}

// Features lists the enabled features in stable order.
func (c Capabilities) Features() []Feature {
	out := make([]Feature, 0, len(c.features))
	for f, ok := range c.features {
		if ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TimeVariable returns the simulation variable reporting the current time.
func (c Capabilities) TimeVariable() uint8 {
	if c.Has(FeatureDoubleTime) {
		return VarTime
	}
	return VarTimeStep
}

func isSupported(v int32) bool {
	for _, s := range SupportedAPIVersions {
		if s == v {
			return true
		}
	}
	return false
}
