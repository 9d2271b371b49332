package tools

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/rs/zerolog/log"
)

// LaunchSpec describes one simulator child process.
type LaunchSpec struct {
	Executable string
	ConfigPath string
	Switches   []string
	Seed       int64
	Port       int
	Stdout     io.Writer
	Stderr     io.Writer
}

// Args renders the command line handed to the simulator.
func (s LaunchSpec) Args() []string {
	args := []string{
		"--remote-port", strconv.Itoa(s.Port),
		"--seed", strconv.FormatInt(s.Seed, 10),
		"--configuration-file", s.ConfigPath,
	}
	return append(args, s.Switches...)
}

// ProcessStarter abstracts child process creation for tests.
type ProcessStarter interface {
	Start(spec LaunchSpec) (*Process, error)
}

// ExecStarter starts processes on the local host.
type ExecStarter struct{}

// Process is a running simulator child.
type Process struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
	err  error
}

// Start spawns spec. Failure to spawn is a *protocol.TransportError carrying
// the exit code: 127 when the executable cannot be found, 126 when it
// cannot be executed.
func (ExecStarter) Start(spec LaunchSpec) (*Process, error) {
	cmd := exec.Command(spec.Executable, spec.Args()...)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	proc, err := startCommand(cmd)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("executable", spec.Executable).
		Int("pid", proc.Pid()).
		Int("port", spec.Port).
		Strs("args", spec.Args()).
		Msg("tools.ExecStarter started simulator")
	return proc, nil
}

func startCommand(cmd *exec.Cmd) (*Process, error) {
	if err := cmd.Start(); err != nil {
		return nil, &protocol.TransportError{
			Op:       "spawn " + cmd.Path,
			ExitCode: spawnExitCode(err),
			Err:      fmt.Errorf("%w: %v", protocol.ErrSpawnFailed, err),
		}
	}
	p := &Process{cmd: cmd, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

func (p *Process) wait() {
	p.err = p.cmd.Wait()
	close(p.done)
}

func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Done is closed once the child exits.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitCode is valid after Done is closed; -1 when killed by a signal.
func (p *Process) ExitCode() int {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Err returns the wait error once the child exited.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Stop asks the child to terminate and kills it after grace.
func (p *Process) Stop(grace time.Duration) error {
	var err error
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-p.done:
		case <-timer.C:
			err = p.cmd.Process.Kill()
			<-p.done
		}
		log.Info().Int("pid", p.Pid()).Int("exit", p.ExitCode()).Msg("tools.Process stopped")
	})
	return err
}

// FreePort asks the kernel for an unused local TCP port.
func FreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Launch allocates a free port, starts the simulator bound to it and returns
// the port.
func Launch(starter ProcessStarter, spec LaunchSpec) (*Process, int, error) {
	if starter == nil {
		starter = ExecStarter{}
	}
	port, err := FreePort()
	if err != nil {
		return nil, 0, &protocol.TransportError{Op: "allocate port", Err: err}
	}
	spec.Port = port
	proc, err := starter.Start(spec)
	if err != nil {
		return nil, 0, err
	}
	return proc, port, nil
}

func spawnExitCode(err error) int {
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, syscall.ENOENT) {
		return 127
	}
	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return 126
	}
	return 1
}
