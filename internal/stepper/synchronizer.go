// Package stepper drives simulation steps and routes the subscription results
// bundled with each step response.
package stepper

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/tracilink/internal/observability"
	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
	"github.com/danmuck/tracilink/internal/roster"
	"github.com/danmuck/tracilink/internal/traci"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrStepInFlight is returned when AdvanceTo is re-entered.
var ErrStepInFlight = errors.New("stepper: step already in flight")

// Dispatcher is the part of *traci.Client the synchronizer drives.
type Dispatcher interface {
	Step(target time.Duration) (*traci.ResultReader, error)
	Subscribe(cmd uint8, objectID string, begin, end time.Duration, vars []uint8) (traci.SubscriptionResult, error)
	Capabilities() schema.Capabilities
}

// Roster receives id list changes, kinematic updates and simulation events.
// *roster.Reconciler implements it.
type Roster interface {
	Reconcile(ids []string) error
	OnActorUpdate(u roster.Update) error
	OnDeparted(id string) error
	OnArrived(id string) error
	OnTeleportStart(id string) error
	OnTeleportEnd(id string) error
	OnParkStart(id string) error
	OnParkEnd(id string) error
}

type phase int

const (
	phaseIdle phase = iota
	phaseStepping
)

// Synchronizer is the Idle/Stepping state machine for one session.
type Synchronizer struct {
	client Dispatcher
	roster Roster
	log    zerolog.Logger

	phase   phase
	now     time.Duration
	expect  time.Duration
	checkTS bool
	steps   uint64
}

func New(client Dispatcher, r Roster) *Synchronizer {
	return &Synchronizer{
		client: client,
		roster: r,
		log:    log.Logger.With().Str("component", "stepper").Logger(),
	}
}

// Now is the server time reported by the last processed simulation result.
func (s *Synchronizer) Now() time.Duration { return s.now }

// Steps counts completed AdvanceTo calls.
func (s *Synchronizer) Steps() uint64 { return s.steps }

// SimulationVariables are the global variables subscribed at Start, in
// result order. Parking events are included when the server reports them.
func SimulationVariables(caps schema.Capabilities) []uint8 {
	vars := []uint8{
		schema.VarDepartedIDs,
		schema.VarArrivedIDs,
		schema.VarTeleportStartingIDs,
		schema.VarTeleportEndingIDs,
	}
	if caps.Has(schema.FeatureParkingEvents) {
		vars = append(vars, schema.VarParkingStartingIDs, schema.VarParkingEndingIDs)
	}
	return append(vars, caps.TimeVariable())
}

// Start issues the initial simulation and vehicle id list subscriptions and
// routes the results they return immediately.
func (s *Synchronizer) Start() error {
	caps := s.client.Capabilities()
	res, err := s.client.Subscribe(schema.CmdSubscribeSimulation, "", 0, traci.Forever, SimulationVariables(caps))
	if err != nil {
		return fmt.Errorf("subscribe simulation: %w", err)
	}
	if err := s.dispatch(res); err != nil {
		return err
	}
	res, err = s.client.Subscribe(schema.CmdSubscribeVehicle, "", 0, traci.Forever, []uint8{schema.VarIDList})
	if err != nil {
		return fmt.Errorf("subscribe vehicle ids: %w", err)
	}
	if err := s.dispatch(res); err != nil {
		return err
	}
	s.log.Info().Dur("now", s.now).Int32("api", caps.APIVersion).Msg("stepper.Start subscriptions active")
	return nil
}

// AdvanceTo runs the server to target and routes every bundled result.
// Re-entering while a step is in flight returns ErrStepInFlight.
func (s *Synchronizer) AdvanceTo(target time.Duration) error {
	if s.phase != phaseIdle {
		return ErrStepInFlight
	}
	s.phase = phaseStepping
	defer func() { s.phase = phaseIdle }()

	start := time.Now()
	s.expect = target
	s.checkTS = true
	defer func() { s.checkTS = false }()

	reader, err := s.client.Step(target)
	if err != nil {
		return err
	}
	for reader.Remaining() > 0 {
		res, err := reader.Next()
		if err != nil {
			return err
		}
		if err := s.dispatch(res); err != nil {
			return err
		}
	}
	if err := reader.Finish(); err != nil {
		return err
	}

	s.steps++
	observability.RecordStep(time.Since(start))
	s.log.Debug().Dur("target", target).Int("results", reader.Count()).Uint64("step", s.steps).Msg("stepper.AdvanceTo")
	return nil
}

func (s *Synchronizer) dispatch(res traci.SubscriptionResult) error {
	switch res.Response {
	case schema.ResponseSubscribeVehicle:
		observability.RecordSubscriptionResult("vehicle")
		return s.handleVehicle(res)
	case schema.ResponseSubscribeSimulation:
		observability.RecordSubscriptionResult("simulation")
		return s.handleSimulation(res)
	default:
		err := protocol.Desync(res.Response, protocol.ErrUnknownResponse, "subscription result for object %q", res.ObjectID)
		s.log.Error().Err(err).Msg("stepper unroutable result")
		return err
	}
}

const (
	seenPosition uint8 = 1 << iota
	seenRoad
	seenSpeed
	seenAngle
	seenSignals

	seenAll = seenPosition | seenRoad | seenSpeed | seenAngle | seenSignals
)

func (s *Synchronizer) handleVehicle(res traci.SubscriptionResult) error {
	u := roster.Update{ID: res.ObjectID}
	var seen uint8
	for _, v := range res.Variables {
		if err := v.Err(schema.ResponseSubscribeVehicle); err != nil {
			s.log.Error().Str("object", res.ObjectID).Uint8("variable", v.ID).Err(err).Msg("stepper vehicle variable failed")
			return err
		}
		switch v.ID {
		case schema.VarIDList:
			if err := expectTag(res, v, codec.TagStringList); err != nil {
				return err
			}
			if err := s.roster.Reconcile(v.Value.List); err != nil {
				return err
			}
		case schema.VarPosition:
			if err := expectTag(res, v, codec.TagPosition2D); err != nil {
				return err
			}
			u.Position = v.Value.Pos
			seen |= seenPosition
		case schema.VarRoadID:
			if err := expectTag(res, v, codec.TagString); err != nil {
				return err
			}
			u.RoadID = v.Value.String
			seen |= seenRoad
		case schema.VarSpeed:
			if err := expectTag(res, v, codec.TagDouble); err != nil {
				return err
			}
			u.Speed = v.Value.Double
			seen |= seenSpeed
		case schema.VarAngle:
			if err := expectTag(res, v, codec.TagDouble); err != nil {
				return err
			}
			u.Angle = v.Value.Double
			seen |= seenAngle
		case schema.VarSignals:
			if err := expectTag(res, v, codec.TagInteger); err != nil {
				return err
			}
			u.Signals = v.Value.Int
			seen |= seenSignals
		default:
			return protocol.Desync(res.Response, protocol.ErrUnknownResponse, "unsubscribed vehicle variable 0x%02x", v.ID)
		}
	}

	switch seen {
	case seenAll:
		return s.roster.OnActorUpdate(u)
	case 0:
		return nil
	default:
		s.log.Debug().Str("object", u.ID).Uint8("seen", seen).Msg("stepper discarding partial vehicle update")
		return nil
	}
}

func (s *Synchronizer) handleSimulation(res traci.SubscriptionResult) error {
	timeVar := s.client.Capabilities().TimeVariable()
	for _, v := range res.Variables {
		if err := v.Err(schema.ResponseSubscribeSimulation); err != nil {
			s.log.Error().Uint8("variable", v.ID).Err(err).Msg("stepper simulation variable failed")
			return err
		}
		if v.ID == timeVar {
			if err := s.observeTime(res, v); err != nil {
				return err
			}
			continue
		}

		var event func(string) error
		switch v.ID {
		case schema.VarDepartedIDs:
			event = s.roster.OnDeparted
		case schema.VarArrivedIDs:
			event = s.roster.OnArrived
		case schema.VarTeleportStartingIDs:
			event = s.roster.OnTeleportStart
		case schema.VarTeleportEndingIDs:
			event = s.roster.OnTeleportEnd
		case schema.VarParkingStartingIDs:
			event = s.roster.OnParkStart
		case schema.VarParkingEndingIDs:
			event = s.roster.OnParkEnd
		default:
			return protocol.Desync(res.Response, protocol.ErrUnknownResponse, "unsubscribed simulation variable 0x%02x", v.ID)
		}
		if err := expectTag(res, v, codec.TagStringList); err != nil {
			return err
		}
		for _, id := range v.Value.List {
			if err := event(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// observeTime records the server clock. During a step it must equal the
// step target at millisecond resolution.
func (s *Synchronizer) observeTime(res traci.SubscriptionResult, v traci.VariableResult) error {
	if v.Value.Tag != codec.TagInteger && v.Value.Tag != codec.TagDouble {
		return expectTag(res, v, codec.TagDouble)
	}
	got := traci.DurationOf(v.Value)
	if s.checkTS && traci.DurationToMillis(got) != traci.DurationToMillis(s.expect) {
		err := protocol.Desync(res.Response, protocol.ErrClockSkew, "server at %v, step target %v", got, s.expect)
		s.log.Error().Err(err).Msg("stepper clock skew")
		return err
	}
	s.now = got
	return nil
}

func expectTag(res traci.SubscriptionResult, v traci.VariableResult, want codec.Tag) error {
	if v.Value.Tag == want {
		return nil
	}
	return protocol.Desync(res.Response, protocol.ErrTypeMismatch,
		"object %q variable 0x%02x carries %s want %s", res.ObjectID, v.ID, v.Value.Tag, want)
}
