// Package runner owns one coupled session: it launches or attaches to the
// simulator, wires the dispatcher, roster and stepper together and advances
// time until the configured end.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/danmuck/tracilink/internal/config"
	"github.com/danmuck/tracilink/internal/coords"
	"github.com/danmuck/tracilink/internal/observability"
	"github.com/danmuck/tracilink/internal/roster"
	"github.com/danmuck/tracilink/internal/stepper"
	"github.com/danmuck/tracilink/internal/tools"
	"github.com/danmuck/tracilink/internal/trace"
	"github.com/danmuck/tracilink/internal/traci"
	"github.com/rs/zerolog"
)

const stopGrace = 5 * time.Second

// Summary describes a finished run.
type Summary struct {
	Steps      uint64
	SimTime    time.Duration
	APIVersion int32
	Counters   roster.Counters
	Managed    int
}

// Service runs a session lifecycle.
type Service struct {
	cfg      config.SessionConfig
	starter  tools.ProcessStarter
	factory  roster.PeerFactory
	board    *observability.StatusBoard
	log      zerolog.Logger
	maxSteps uint64
	output   io.Writer
}

type Option func(*Service)

// WithStarter replaces the process starter used when the config launches.
func WithStarter(s tools.ProcessStarter) Option { return func(svc *Service) { svc.starter = s } }

// WithPeerFactory replaces the log-only peers.
func WithPeerFactory(f roster.PeerFactory) Option { return func(svc *Service) { svc.factory = f } }

// WithMaxSteps stops the run after n steps. Zero means no limit.
func WithMaxSteps(n uint64) Option { return func(svc *Service) { svc.maxSteps = n } }

func WithLogger(l zerolog.Logger) Option { return func(svc *Service) { svc.log = l } }

// WithOutput receives the simulator's stdout and stderr.
func WithOutput(w io.Writer) Option { return func(svc *Service) { svc.output = w } }

func NewService(cfg config.SessionConfig, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		starter: tools.ExecStarter{},
		board:   &observability.StatusBoard{},
		log:     observability.ComponentLogger("tracictl"),
		output:  os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.factory == nil {
		s.factory = &LogPeerFactory{Log: s.log.With().Str("component", "peers").Logger()}
	}
	return s
}

// Status is the board served by the status endpoint.
func (s *Service) Status() *observability.StatusBoard { return s.board }

// Run blocks until the configured end, the step limit, the simulator running
// out of vehicles, ctx cancellation or the first fatal error.
func (s *Service) Run(ctx context.Context) (summary Summary, err error) {
	if err := s.cfg.Validate(); err != nil {
		return Summary{}, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	if s.cfg.MetricsAddr != "" {
		ln, lerr := net.Listen("tcp", s.cfg.MetricsAddr)
		if lerr != nil {
			return Summary{}, fmt.Errorf("status listener: %w", lerr)
		}
		s.log.Info().Str("addr", ln.Addr().String()).Msg("runner.Service status endpoint listening")
		go func() {
			serveErr <- observability.Serve(ctx, ln, observability.NewRouter("tracictl", s.board, s.log))
		}()
		defer func() {
			cancel()
			if serr := <-serveErr; serr != nil && err == nil {
				err = serr
			}
		}()
	}

	var clientOpts []traci.Option
	clientOpts = append(clientOpts, traci.WithLogger(s.log))
	if s.cfg.TracePath != "" {
		rec, err := trace.Open(s.cfg.TracePath)
		if err != nil {
			return Summary{}, err
		}
		defer func() {
			if cerr := rec.Close(); cerr != nil {
				s.log.Warn().Err(cerr).Str("path", rec.Path()).Msg("runner.Service trace close failed")
			}
		}()
		clientOpts = append(clientOpts, traci.WithRecorder(rec))
	}

	port := s.cfg.Port
	if s.cfg.Launches() {
		proc, launched, err := tools.Launch(s.starter, s.cfg.LaunchSpec(s.output))
		if err != nil {
			return Summary{}, err
		}
		port = launched
		defer func() {
			if serr := proc.Stop(stopGrace); serr != nil {
				s.log.Warn().Err(serr).Int("pid", proc.Pid()).Msg("runner.Service simulator stop")
			}
		}()
	}

	client, err := traci.Connect(ctx, s.cfg.Addr(port), s.cfg.Session, clientOpts...)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("runner.Service close")
		}
	}()
	caps := client.Capabilities()

	box, err := client.Simulation().NetBoundary()
	if err != nil {
		return Summary{}, fmt.Errorf("net boundary: %w", err)
	}
	mapper, err := coords.FromBoundingBox(box, s.cfg.Margin)
	if err != nil {
		return Summary{}, err
	}
	size := mapper.Size()
	s.log.Info().
		Float64("width", size.X).
		Float64("height", size.Y).
		Float64("margin", mapper.Margin()).
		Msg("runner.Service local frame")
	rec, err := roster.New(roster.NewClientServer(client), s.factory, mapper, s.cfg.RosterOptions())
	if err != nil {
		return Summary{}, err
	}
	sim := stepper.New(client, rec)
	if err := sim.Start(); err != nil {
		return Summary{}, err
	}
	s.publish(sim, rec, caps.APIVersion, caps.Server)

	for {
		if ctx.Err() != nil {
			s.log.Info().Msg("runner.Service interrupted")
			break
		}
		target := sim.Now() + s.cfg.StepLength
		if s.cfg.End > 0 && target > s.cfg.End {
			break
		}
		if err := sim.AdvanceTo(target); err != nil {
			return s.summary(sim, rec, caps.APIVersion), err
		}
		s.publish(sim, rec, caps.APIVersion, caps.Server)
		if s.maxSteps > 0 && sim.Steps() >= s.maxSteps {
			break
		}
		if s.cfg.End == 0 {
			expected, err := client.Simulation().MinExpectedVehicles()
			if err != nil {
				return s.summary(sim, rec, caps.APIVersion), err
			}
			if expected == 0 {
				s.log.Info().Dur("now", sim.Now()).Msg("runner.Service no vehicles expected")
				break
			}
		}
	}

	summary = s.summary(sim, rec, caps.APIVersion)
	s.log.Info().
		Uint64("steps", summary.Steps).
		Dur("sim_time", summary.SimTime).
		Int("managed", summary.Managed).
		Msg("runner.Service finished")
	return summary, nil
}

func (s *Service) summary(sim *stepper.Synchronizer, rec *roster.Reconciler, api int32) Summary {
	return Summary{
		Steps:      sim.Steps(),
		SimTime:    sim.Now(),
		APIVersion: api,
		Counters:   rec.Counters(),
		Managed:    len(rec.Managed()),
	}
}

func (s *Service) publish(sim *stepper.Synchronizer, rec *roster.Reconciler, api int32, server string) {
	counters := rec.Counters()
	s.board.Publish(observability.Status{
		SimTime:    sim.Now().String(),
		Steps:      sim.Steps(),
		APIVersion: api,
		Server:     server,
		Subscribed: len(rec.Subscribed()),
		Managed:    len(rec.Managed()),
		Unequipped: len(rec.Unequipped()),
		Active:     counters.Active,
		Driving:    counters.Driving,
		Parking:    counters.Parking,
	})
}

// IsInterrupted reports whether err only reflects ctx cancellation.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
