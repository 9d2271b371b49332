package config

import (
	"io"
	"net"
	"strconv"

	"github.com/danmuck/tracilink/internal/roster"
	"github.com/danmuck/tracilink/internal/tools"
)

// RosterOptions is the equip policy and ROI part of the config.
func (c SessionConfig) RosterOptions() roster.Options {
	return roster.Options{
		Penetration: c.Penetration,
		Templates:   c.Templates,
		ROI:         c.ROI,
	}
}

// LaunchSpec describes the simulator child process. Output goes to out.
func (c SessionConfig) LaunchSpec(out io.Writer) tools.LaunchSpec {
	return tools.LaunchSpec{
		Executable: c.Executable,
		ConfigPath: c.ConfigFile,
		Switches:   c.Switches,
		Seed:       c.Seed,
		Stdout:     out,
		Stderr:     out,
	}
}

// Addr joins host and port.
func (c SessionConfig) Addr(port int) string {
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}
