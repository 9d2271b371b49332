package stepper

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danmuck/tracilink/internal/coords"
	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
	"github.com/danmuck/tracilink/internal/protocol/session"
	"github.com/danmuck/tracilink/internal/roster"
	"github.com/danmuck/tracilink/internal/testutil/fakesim"
	"github.com/danmuck/tracilink/internal/testutil/testlog"
	"github.com/danmuck/tracilink/internal/traci"
)

const testAPI = 17

// simEvents is the per-step content of the simulation subscription.
type simEvents struct {
	departed, arrived, teleportStart, teleportEnd, parkStart, parkEnd []string
	time                                                              int32
}

func simResult(ev simEvents) []byte {
	list := func(ids []string) codec.Value { return codec.StringList(ids) }
	return fakesim.Result(schema.ResponseSubscribeSimulation, "",
		fakesim.Var{ID: schema.VarDepartedIDs, Value: list(ev.departed)},
		fakesim.Var{ID: schema.VarArrivedIDs, Value: list(ev.arrived)},
		fakesim.Var{ID: schema.VarTeleportStartingIDs, Value: list(ev.teleportStart)},
		fakesim.Var{ID: schema.VarTeleportEndingIDs, Value: list(ev.teleportEnd)},
		fakesim.Var{ID: schema.VarParkingStartingIDs, Value: list(ev.parkStart)},
		fakesim.Var{ID: schema.VarParkingEndingIDs, Value: list(ev.parkEnd)},
		fakesim.Var{ID: schema.VarTimeStep, Value: codec.Int(ev.time)},
	)
}

func idListResult(ids ...string) []byte {
	return fakesim.Result(schema.ResponseSubscribeVehicle, "",
		fakesim.Var{ID: schema.VarIDList, Value: codec.StringList(ids)})
}

func kinematics(id string, x, y float64) []byte {
	return fakesim.Result(schema.ResponseSubscribeVehicle, id,
		fakesim.Var{ID: schema.VarPosition, Value: codec.Position(codec.Position2D{X: x, Y: y})},
		fakesim.Var{ID: schema.VarRoadID, Value: codec.String("e1")},
		fakesim.Var{ID: schema.VarSpeed, Value: codec.Double(12)},
		fakesim.Var{ID: schema.VarAngle, Value: codec.Double(0)},
		fakesim.Var{ID: schema.VarSignals, Value: codec.Int(int32(schema.SignalBrakeLight))},
	)
}

// scriptedSim answers subscriptions generically and step commands from steps,
// keyed by target milliseconds.
func scriptedSim(t *testing.T, steps map[int32][]byte) fakesim.Handler {
	return func(req fakesim.Request) []byte {
		switch req.ID {
		case schema.CmdSubscribeSimulation:
			return fakesim.Subscribed(req.ID, simResult(simEvents{}))
		case schema.CmdSubscribeVehicle:
			p := req.Payload
			p.ReadInt32()
			p.ReadInt32()
			id, n := p.ReadString(), p.ReadUint8()
			switch {
			case n == 0:
				return fakesim.OK(req.ID)
			case id == "":
				return fakesim.Subscribed(req.ID, idListResult())
			default:
				return fakesim.Subscribed(req.ID, kinematics(id, 0, 0))
			}
		case schema.CmdGetVehicle:
			p := req.Payload
			variable, id := p.ReadUint8(), p.ReadString()
			return fakesim.GetResponse(req.ID, variable, id, codec.String("passenger"))
		case schema.CmdSimStep:
			target := req.Payload.ReadInt32()
			if resp, ok := steps[target]; ok {
				return resp
			}
			t.Errorf("unscripted step to %d", target)
			return nil
		}
		t.Errorf("unexpected command 0x%02x", req.ID)
		return nil
	}
}

func newTestClient(t *testing.T, handler fakesim.Handler) (*traci.Client, *fakesim.Server) {
	t.Helper()
	conn, srv := fakesim.Pipe(t, handler)
	caps, err := schema.Resolve(testAPI, "fake")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return traci.New(session.NewTransport(conn, session.DefaultConfig()), traci.WithCapabilities(caps)), srv
}

type countingPeer struct {
	updates   int
	destroyed int
}

func (p *countingPeer) Update(roster.PeerState) { p.updates++ }
func (p *countingPeer) SetParked(bool)          {}
func (p *countingPeer) Destroy()                { p.destroyed++ }

type countingFactory struct{ peers map[string]*countingPeer }

func (f *countingFactory) NewPeer(id string, index int, class roster.ActorClass, template string) (roster.Peer, error) {
	if _, ok := f.peers[id]; ok {
		return nil, fmt.Errorf("peer %q created twice", id)
	}
	p := &countingPeer{}
	f.peers[id] = p
	return p, nil
}

func newTestRoster(t *testing.T, c *traci.Client, penetration float64) (*roster.Reconciler, *countingFactory) {
	t.Helper()
	mapper, err := coords.NewMapper(codec.Position2D{}, codec.Position2D{X: 1000, Y: 1000}, 0)
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	fac := &countingFactory{peers: map[string]*countingPeer{}}
	r, err := roster.New(roster.NewClientServer(c), fac, mapper, roster.Options{
		Penetration: penetration,
		Templates:   map[roster.ActorClass]string{roster.ClassPassenger: "car"},
	})
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	return r, fac
}

func TestDepartedUpdateArrivedEndToEnd(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient(t, scriptedSim(t, map[int32][]byte{
		1000: fakesim.Step(simResult(simEvents{departed: []string{"v1"}, time: 1000}), idListResult("v1")),
		2000: fakesim.Step(simResult(simEvents{time: 2000}), idListResult("v1"), kinematics("v1", 10, 10)),
		3000: fakesim.Step(simResult(simEvents{arrived: []string{"v1"}, time: 3000}), idListResult()),
	}))
	r, fac := newTestRoster(t, c, 1.0)
	sync := New(c, r)
	if err := sync.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := sync.AdvanceTo(time.Second); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if s, _ := r.State("v1"); s != roster.StateSubscribed {
		t.Fatalf("after departure v1 should only be subscribed, got %v", s)
	}
	if c := r.Counters(); c.Active != 1 || c.Driving != 1 {
		t.Fatalf("unexpected counters %+v", c)
	}

	if err := sync.AdvanceTo(2 * time.Second); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if s, _ := r.State("v1"); s != roster.StateManaged {
		t.Fatalf("expected managed after update, got %v", s)
	}
	if p := fac.peers["v1"]; p == nil || p.updates != 1 {
		t.Fatalf("expected one peer with one update, got %+v", p)
	}

	if err := sync.AdvanceTo(3 * time.Second); err != nil {
		t.Fatalf("step 3: %v", err)
	}
	if _, ok := r.State("v1"); ok {
		t.Fatalf("v1 still tracked after arrival")
	}
	if c := r.Counters(); c.Active != 0 || c.Driving != 0 || c.Parking != 0 {
		t.Fatalf("counters not back to zero: %+v", c)
	}
	if fac.peers["v1"].destroyed != 1 {
		t.Fatalf("peer destroyed %d times", fac.peers["v1"].destroyed)
	}
	if sync.Now() != 3*time.Second || sync.Steps() != 3 {
		t.Fatalf("unexpected clock %v after %d steps", sync.Now(), sync.Steps())
	}
}

func TestClockSkewIsDesync(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient(t, scriptedSim(t, map[int32][]byte{
		1000: fakesim.Step(simResult(simEvents{time: 900})),
	}))
	r, _ := newTestRoster(t, c, 1)
	sync := New(c, r)
	if err := sync.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := sync.AdvanceTo(time.Second)
	if !errors.Is(err, protocol.ErrClockSkew) {
		t.Fatalf("expected clock skew, got %v", err)
	}
}

func TestUnknownResultIsDesync(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient(t, scriptedSim(t, map[int32][]byte{
		1000: fakesim.Step(fakesim.Result(0xe7, "tl0")),
	}))
	r, _ := newTestRoster(t, c, 1)
	sync := New(c, r)
	err := sync.AdvanceTo(time.Second)
	var de *protocol.DesyncError
	if !errors.As(err, &de) || !errors.Is(err, protocol.ErrUnknownResponse) {
		t.Fatalf("expected unknown response desync, got %v", err)
	}
}

// recordingRoster captures calls without any policy.
type recordingRoster struct {
	updates  []roster.Update
	departed []string
	onDepart func(id string) error
}

func (r *recordingRoster) Reconcile([]string) error { return nil }
func (r *recordingRoster) OnActorUpdate(u roster.Update) error {
	r.updates = append(r.updates, u)
	return nil
}
func (r *recordingRoster) OnDeparted(id string) error {
	r.departed = append(r.departed, id)
	if r.onDepart != nil {
		return r.onDepart(id)
	}
	return nil
}
func (r *recordingRoster) OnArrived(string) error       { return nil }
func (r *recordingRoster) OnTeleportStart(string) error { return nil }
func (r *recordingRoster) OnTeleportEnd(string) error   { return nil }
func (r *recordingRoster) OnParkStart(string) error     { return nil }
func (r *recordingRoster) OnParkEnd(string) error       { return nil }

func TestPartialVehicleUpdateIsDiscarded(t *testing.T) {
	testlog.Start(t)
	partial := fakesim.Result(schema.ResponseSubscribeVehicle, "v1",
		fakesim.Var{ID: schema.VarPosition, Value: codec.Position(codec.Position2D{X: 1, Y: 1})},
		fakesim.Var{ID: schema.VarSpeed, Value: codec.Double(3)},
	)
	c, _ := newTestClient(t, scriptedSim(t, map[int32][]byte{
		1000: fakesim.Step(partial, kinematics("v2", 5, 5)),
	}))
	rec := &recordingRoster{}
	if err := New(c, rec).AdvanceTo(time.Second); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(rec.updates) != 1 || rec.updates[0].ID != "v2" {
		t.Fatalf("expected only the complete v2 update, got %+v", rec.updates)
	}
	u := rec.updates[0]
	if u.RoadID != "e1" || u.Speed != 12 || u.Signals != int32(schema.SignalBrakeLight) || u.Position.X != 5 {
		t.Fatalf("unexpected update %+v", u)
	}
}

func TestVehicleVariableErrorSurfaces(t *testing.T) {
	testlog.Start(t)
	failed := fakesim.Result(schema.ResponseSubscribeVehicle, "v1",
		fakesim.Var{ID: schema.VarPosition, Status: protocol.StatusError, Value: codec.String("vehicle vanished")},
	)
	c, _ := newTestClient(t, scriptedSim(t, map[int32][]byte{1000: fakesim.Step(failed)}))
	err := New(c, &recordingRoster{}).AdvanceTo(time.Second)
	var pe *protocol.ProtocolError
	if !errors.As(err, &pe) || pe.Description != "vehicle vanished" {
		t.Fatalf("expected per-variable protocol error, got %v", err)
	}
}

func TestAdvanceToRejectsReentry(t *testing.T) {
	testlog.Start(t)
	c, _ := newTestClient(t, scriptedSim(t, map[int32][]byte{
		1000: fakesim.Step(simResult(simEvents{departed: []string{"v1"}, time: 1000})),
	}))
	rec := &recordingRoster{}
	sync := New(c, rec)
	var reentry error
	rec.onDepart = func(string) error {
		reentry = sync.AdvanceTo(2 * time.Second)
		return nil
	}
	if err := sync.AdvanceTo(time.Second); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !errors.Is(reentry, ErrStepInFlight) {
		t.Fatalf("expected ErrStepInFlight, got %v", reentry)
	}
	rec.onDepart = nil
	if err := sync.AdvanceTo(time.Second); err != nil {
		t.Fatalf("synchronizer must be idle again: %v", err)
	}
}

func TestSimulationVariablesFollowCapabilities(t *testing.T) {
	old, _ := schema.Resolve(15, "")
	caps, _ := schema.Resolve(19, "")
	if got := SimulationVariables(old); got[len(got)-1] != schema.VarTimeStep || len(got) != 7 {
		t.Fatalf("api 15 vars %v", got)
	}
	if got := SimulationVariables(caps); got[len(got)-1] != schema.VarTime {
		t.Fatalf("api 19 vars %v", got)
	}
}
