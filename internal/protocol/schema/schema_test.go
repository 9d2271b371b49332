package schema

import (
	"errors"
	"testing"

	"github.com/danmuck/tracilink/internal/protocol"
)

func TestResolveCapabilitiesByVersion(t *testing.T) {
	legacy, err := Resolve(17, "SUMO 0.32.0")
	if err != nil {
		t.Fatalf("resolve 17: %v", err)
	}
	if legacy.Has(FeatureDoubleTime) {
		t.Fatalf("api 17 must use millisecond time")
	}
	if !legacy.Has(FeatureStopFlags) || !legacy.Has(FeatureVehicleHeight) {
		t.Fatalf("api 17 missing features: %v", legacy.Features())
	}
	if legacy.TimeVariable() != VarTimeStep {
		t.Fatalf("unexpected legacy time variable 0x%02x", legacy.TimeVariable())
	}

	modern, err := Resolve(20, "SUMO 1.8.0")
	if err != nil {
		t.Fatalf("resolve 20: %v", err)
	}
	if !modern.Has(FeatureDoubleTime) {
		t.Fatalf("api 20 must use double time")
	}
	if modern.TimeVariable() != VarTime {
		t.Fatalf("unexpected modern time variable 0x%02x", modern.TimeVariable())
	}
}

func TestResolveRejectsUnknownVersion(t *testing.T) {
	_, err := Resolve(9, "ancient")
	if !errors.Is(err, protocol.ErrUnsupportedAPI) {
		t.Fatalf("expected ErrUnsupportedAPI, got %v", err)
	}
}

func TestResponseForAddsOffset(t *testing.T) {
	if ResponseFor(CmdGetVehicle) != 0xB4 {
		t.Fatalf("unexpected vehicle response id 0x%02x", ResponseFor(CmdGetVehicle))
	}
	if ResponseSubscribeSimulation != 0xEB {
		t.Fatalf("unexpected simulation subscription response 0x%02x", ResponseSubscribeSimulation)
	}
}

func TestCommandNameFallsBackToHex(t *testing.T) {
	if CommandName(CmdSimStep) != "sim_step" {
		t.Fatalf("unexpected name %q", CommandName(CmdSimStep))
	}
	if CommandName(0x3c) != "cmd_0x3c" {
		t.Fatalf("unexpected fallback %q", CommandName(0x3c))
	}
}
