package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/session"
	"github.com/danmuck/tracilink/internal/roster"
)

// SessionConfig is the resolved configuration for one simulator session.
type SessionConfig struct {
	// Executable and ConfigFile launch the simulator. Port > 0 connects to an
	// already running server instead.
	Executable string
	ConfigFile string
	Switches   []string
	Seed       int64
	Host       string
	Port       int

	Session session.Config

	StepLength time.Duration
	// End stops the run at this server time; zero runs until no vehicles
	// are expected anymore.
	End    time.Duration
	Margin float64

	Penetration float64
	Templates   map[roster.ActorClass]string
	ROI         roster.ROI

	MetricsAddr string
	TracePath   string
	LogLevel    string
}

type fileConfig struct {
	Executable        string            `toml:"executable"`
	ConfigurationFile string            `toml:"configuration_file"`
	Switches          []string          `toml:"switches"`
	Seed              int64             `toml:"seed"`
	Host              string            `toml:"host"`
	Port              int               `toml:"port"`
	ConnectTimeout    string            `toml:"connect_timeout"`
	ConnectAttempts   int               `toml:"connect_attempts"`
	ReadTimeout       string            `toml:"read_timeout"`
	WriteTimeout      string            `toml:"write_timeout"`
	StepLength        string            `toml:"step_length"`
	End               string            `toml:"end"`
	Margin            float64           `toml:"margin"`
	Penetration       float64           `toml:"penetration"`
	Templates         map[string]string `toml:"templates"`
	ROIRoads          []string          `toml:"roi_roads"`
	ROIRects          []string          `toml:"roi_rects"`
	ROIFile           string            `toml:"roi_file"`
	MetricsAddr       string            `toml:"metrics_addr"`
	TracePath         string            `toml:"trace_path"`
	LogLevel          string            `toml:"log_level"`
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Executable:  "sumo",
		Switches:    []string{},
		Seed:        23423,
		Host:        "127.0.0.1",
		Session:     session.DefaultConfig(),
		StepLength:  time.Second,
		Margin:      25,
		Penetration: 1,
		Templates: map[roster.ActorClass]string{
			roster.ClassPassenger: "car",
		},
		LogLevel: "info",
	}
}

// Load decodes path over the defaults and validates the result. Relative
// file paths inside the config resolve against the config's directory.
func Load(path string) (SessionConfig, error) {
	cfg := DefaultSessionConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("load session config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return SessionConfig{}, &protocol.ConfigError{Field: undecoded[0].String(), Reason: "unknown key"}
	}
	base := filepath.Dir(path)

	if meta.IsDefined("executable") {
		cfg.Executable = strings.TrimSpace(raw.Executable)
	}
	if meta.IsDefined("configuration_file") {
		cfg.ConfigFile = resolvePath(base, raw.ConfigurationFile)
	}
	if meta.IsDefined("switches") {
		cfg.Switches = normalizeList(raw.Switches)
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("connect_timeout") {
		if cfg.Session.ConnectTimeout, err = parseDuration("connect_timeout", raw.ConnectTimeout); err != nil {
			return SessionConfig{}, err
		}
	}
	if meta.IsDefined("connect_attempts") {
		cfg.Session.Backoff.MaxAttempts = raw.ConnectAttempts
	}
	if meta.IsDefined("read_timeout") {
		if cfg.Session.ReadTimeout, err = parseDuration("read_timeout", raw.ReadTimeout); err != nil {
			return SessionConfig{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.Session.WriteTimeout, err = parseDuration("write_timeout", raw.WriteTimeout); err != nil {
			return SessionConfig{}, err
		}
	}
	if meta.IsDefined("step_length") {
		if cfg.StepLength, err = parseDuration("step_length", raw.StepLength); err != nil {
			return SessionConfig{}, err
		}
	}
	if meta.IsDefined("end") {
		if cfg.End, err = parseDuration("end", raw.End); err != nil {
			return SessionConfig{}, err
		}
	}
	if meta.IsDefined("margin") {
		cfg.Margin = raw.Margin
	}
	if meta.IsDefined("penetration") {
		cfg.Penetration = raw.Penetration
	}
	if meta.IsDefined("templates") {
		templates, err := parseTemplates(raw.Templates)
		if err != nil {
			return SessionConfig{}, err
		}
		cfg.Templates = templates
	}

	roads := normalizeList(raw.ROIRoads)
	rects, err := ParseRects(raw.ROIRects)
	if err != nil {
		return SessionConfig{}, err
	}
	if meta.IsDefined("roi_file") {
		file, err := LoadROIFile(resolvePath(base, raw.ROIFile))
		if err != nil {
			return SessionConfig{}, err
		}
		roads = append(roads, file.Roads...)
		rects = append(rects, file.Rects...)
	}
	if cfg.ROI, err = roster.NewROI(roads, rects); err != nil {
		return SessionConfig{}, err
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("trace_path") {
		cfg.TracePath = resolvePath(base, raw.TracePath)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

// Validate runs every setup time check. It touches the filesystem but never
// the network.
func (c SessionConfig) Validate() error {
	if c.Port < 0 || c.Port > math.MaxUint16 {
		return &protocol.ConfigError{Field: "port", Reason: fmt.Sprintf("%d out of range", c.Port)}
	}
	if c.Launches() {
		if c.Executable == "" {
			return &protocol.ConfigError{Field: "executable", Reason: "required when port is not set"}
		}
		if c.ConfigFile == "" {
			return &protocol.ConfigError{Field: "configuration_file", Reason: "required when port is not set"}
		}
		if _, err := os.Stat(c.ConfigFile); err != nil {
			reason := err.Error()
			if errors.Is(err, os.ErrNotExist) {
				reason = "file not found: " + c.ConfigFile
			}
			return &protocol.ConfigError{Field: "configuration_file", Reason: reason}
		}
	}
	if c.Host == "" {
		return &protocol.ConfigError{Field: "host", Reason: "empty"}
	}
	if c.Session.Backoff.MaxAttempts < 0 {
		return &protocol.ConfigError{Field: "connect_attempts", Reason: "negative"}
	}
	if c.StepLength <= 0 {
		return &protocol.ConfigError{Field: "step_length", Reason: "must be positive"}
	}
	if c.End < 0 {
		return &protocol.ConfigError{Field: "end", Reason: "negative"}
	}
	if c.Margin < 0 {
		return &protocol.ConfigError{Field: "margin", Reason: "negative"}
	}
	return c.RosterOptions().Validate()
}

// Launches reports whether the session spawns its own simulator.
func (c SessionConfig) Launches() bool { return c.Port == 0 }

func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &protocol.ConfigError{Field: field, Reason: err.Error()}
	}
	return d, nil
}

func parseTemplates(raw map[string]string) (map[roster.ActorClass]string, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[roster.ActorClass]string, len(raw))
	for _, k := range keys {
		class, err := roster.ParseActorClass(k)
		if err != nil {
			return nil, &protocol.ConfigError{Field: "templates." + k, Reason: "unknown actor class"}
		}
		out[class] = strings.TrimSpace(raw[k])
	}
	return out, nil
}

func resolvePath(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
