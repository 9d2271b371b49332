package runner

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/danmuck/tracilink/internal/config"
	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
	"github.com/danmuck/tracilink/internal/testutil/fakesim"
	"github.com/danmuck/tracilink/internal/testutil/testlog"
	"github.com/danmuck/tracilink/internal/trace"
	"github.com/rs/zerolog"
)

func simResult(time int32, departed, arrived []string) []byte {
	list := func(ids []string) codec.Value { return codec.StringList(ids) }
	return fakesim.Result(schema.ResponseSubscribeSimulation, "",
		fakesim.Var{ID: schema.VarDepartedIDs, Value: list(departed)},
		fakesim.Var{ID: schema.VarArrivedIDs, Value: list(arrived)},
		fakesim.Var{ID: schema.VarTeleportStartingIDs, Value: list(nil)},
		fakesim.Var{ID: schema.VarTeleportEndingIDs, Value: list(nil)},
		fakesim.Var{ID: schema.VarParkingStartingIDs, Value: list(nil)},
		fakesim.Var{ID: schema.VarParkingEndingIDs, Value: list(nil)},
		fakesim.Var{ID: schema.VarTimeStep, Value: codec.Int(time)},
	)
}

func idList(ids ...string) []byte {
	return fakesim.Result(schema.ResponseSubscribeVehicle, "",
		fakesim.Var{ID: schema.VarIDList, Value: codec.StringList(ids)})
}

func kinematics(id string) []byte {
	return fakesim.Result(schema.ResponseSubscribeVehicle, id,
		fakesim.Var{ID: schema.VarPosition, Value: codec.Position(codec.Position2D{X: 10, Y: 10})},
		fakesim.Var{ID: schema.VarRoadID, Value: codec.String("e1")},
		fakesim.Var{ID: schema.VarSpeed, Value: codec.Double(8)},
		fakesim.Var{ID: schema.VarAngle, Value: codec.Double(90)},
		fakesim.Var{ID: schema.VarSignals, Value: codec.Int(0)},
	)
}

// simulator answers a full session at API 17. steps is keyed by target ms.
func simulator(t *testing.T, steps map[int32][]byte, expected int32) fakesim.Handler {
	return func(req fakesim.Request) []byte {
		switch req.ID {
		case schema.CmdGetVersion:
			return fakesim.Version(17, "fake sim")
		case schema.CmdGetSimulation:
			variable, id := req.Payload.ReadUint8(), req.Payload.ReadString()
			switch variable {
			case schema.VarNetBoundingBox:
				return fakesim.GetResponse(req.ID, variable, id, codec.Box(codec.BoundingBox{
					UpperRight: codec.Position2D{X: 1000, Y: 1000},
				}))
			case schema.VarMinExpectedVehicles:
				return fakesim.GetResponse(req.ID, variable, id, codec.Int(expected))
			}
		case schema.CmdSubscribeSimulation:
			return fakesim.Subscribed(req.ID, simResult(0, nil, nil))
		case schema.CmdSubscribeVehicle:
			p := req.Payload
			p.ReadInt32()
			p.ReadInt32()
			id, n := p.ReadString(), p.ReadUint8()
			switch {
			case n == 0:
				return fakesim.OK(req.ID)
			case id == "":
				return fakesim.Subscribed(req.ID, idList())
			default:
				return fakesim.Subscribed(req.ID, kinematics(id))
			}
		case schema.CmdGetVehicle:
			variable, id := req.Payload.ReadUint8(), req.Payload.ReadString()
			return fakesim.GetResponse(req.ID, variable, id, codec.String("passenger"))
		case schema.CmdSimStep:
			target := req.Payload.ReadInt32()
			if resp, ok := steps[target]; ok {
				return resp
			}
			t.Errorf("unscripted step to %d", target)
			return nil
		case schema.CmdClose:
			return fakesim.OK(req.ID)
		}
		t.Errorf("unexpected command 0x%02x", req.ID)
		return nil
	}
}

func attachConfig(t *testing.T, srv *fakesim.Server) config.SessionConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	cfg := config.DefaultSessionConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.StepLength = 100 * time.Millisecond
	return cfg
}

func TestRunAttachedSessionUntilEnd(t *testing.T) {
	testlog.Start(t)
	srv := fakesim.Start(t, simulator(t, map[int32][]byte{
		100: fakesim.Step(simResult(100, []string{"v1"}, nil), idList("v1")),
		200: fakesim.Step(simResult(200, nil, nil), idList("v1"), kinematics("v1")),
		300: fakesim.Step(simResult(300, nil, nil), idList("v1"), kinematics("v1")),
	}, 1))
	cfg := attachConfig(t, srv)
	cfg.End = 350 * time.Millisecond
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.TracePath = filepath.Join(t.TempDir(), "session.trace")

	factory := &LogPeerFactory{Log: zerolog.Nop()}
	svc := NewService(cfg, WithPeerFactory(factory), WithLogger(zerolog.Nop()))
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Steps != 3 || summary.SimTime != 300*time.Millisecond || summary.APIVersion != 17 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Managed != 1 || summary.Counters.Active != 1 || summary.Counters.Driving != 1 {
		t.Fatalf("unexpected roster state: %+v", summary)
	}
	if factory.Live() != 1 {
		t.Fatalf("expected one live peer, got %d", factory.Live())
	}

	status, ready := svc.Status().Snapshot()
	if !ready || status.Steps != 3 || status.Managed != 1 || status.Server != "fake sim" {
		t.Fatalf("unexpected status: %+v ready=%v", status, ready)
	}

	<-srv.Done()
	reqs := srv.Requests()
	if last := reqs[len(reqs)-1]; last.ID != schema.CmdClose {
		t.Fatalf("expected close last, got 0x%02x", last.ID)
	}
	exchanges, err := trace.ReadAll(cfg.TracePath)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if len(exchanges) != len(reqs) {
		t.Fatalf("trace has %d exchanges for %d requests", len(exchanges), len(reqs))
	}
}

func TestRunStopsWhenNoVehiclesExpected(t *testing.T) {
	testlog.Start(t)
	srv := fakesim.Start(t, simulator(t, map[int32][]byte{
		100: fakesim.Step(simResult(100, nil, nil), idList()),
	}, 0))
	svc := NewService(attachConfig(t, srv), WithLogger(zerolog.Nop()))
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Steps != 1 {
		t.Fatalf("expected a single step, got %d", summary.Steps)
	}
}

func TestRunHonorsStepLimit(t *testing.T) {
	testlog.Start(t)
	srv := fakesim.Start(t, simulator(t, map[int32][]byte{
		100: fakesim.Step(simResult(100, nil, nil), idList()),
		200: fakesim.Step(simResult(200, nil, nil), idList()),
	}, 5))
	svc := NewService(attachConfig(t, srv), WithMaxSteps(2), WithLogger(zerolog.Nop()))
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Steps != 2 || summary.SimTime != 200*time.Millisecond {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunSurfacesClockSkew(t *testing.T) {
	testlog.Start(t)
	srv := fakesim.Start(t, simulator(t, map[int32][]byte{
		100: fakesim.Step(simResult(90, nil, nil), idList()),
	}, 1))
	svc := NewService(attachConfig(t, srv), WithLogger(zerolog.Nop()))
	_, err := svc.Run(context.Background())
	if !errors.Is(err, protocol.ErrClockSkew) {
		t.Fatalf("expected clock skew, got %v", err)
	}
}

func TestRunLaunchFailureIsTransportError(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	scenario := filepath.Join(dir, "scenario.sumocfg")
	if err := os.WriteFile(scenario, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := config.DefaultSessionConfig()
	cfg.Executable = filepath.Join(dir, "missing-sumo")
	cfg.ConfigFile = scenario

	_, err := NewService(cfg, WithLogger(zerolog.Nop())).Run(context.Background())
	var te *protocol.TransportError
	if !errors.As(err, &te) || te.ExitCode != 127 {
		t.Fatalf("expected spawn failure with exit 127, got %v", err)
	}
}

func TestRunRejectsInvalidConfigBeforeNetwork(t *testing.T) {
	testlog.Start(t)
	cfg := config.DefaultSessionConfig()
	cfg.Port = 1
	cfg.Penetration = 2
	_, err := NewService(cfg, WithLogger(zerolog.Nop())).Run(context.Background())
	var ce *protocol.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
