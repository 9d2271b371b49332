package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/tracilink/internal/config"
	"github.com/danmuck/tracilink/internal/logging"
	"github.com/danmuck/tracilink/internal/runner"
	"github.com/danmuck/tracilink/internal/trace"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "tracictl.toml", "session config path")
	steps := flag.Uint64("steps", 0, "stop after this many steps (0 runs to the configured end)")
	initPath := flag.String("init", "", "write a session config template to this path and exit")
	dumpPath := flag.String("dump", "", "print a recorded trace as JSON lines and exit")
	flag.Parse()

	logging.ConfigureRuntime()

	if err := run(*configPath, *initPath, *dumpPath, *steps, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "tracictl: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, initPath, dumpPath string, steps uint64, out io.Writer) error {
	if initPath != "" {
		if err := config.WriteTemplate(initPath, "session", false); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote session template to %s\n", initPath)
		return nil
	}
	if dumpPath != "" {
		return dumpTrace(dumpPath, out)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := runner.NewService(cfg, runner.WithMaxSteps(steps)).Run(ctx)
	if err != nil && !runner.IsInterrupted(err) {
		return err
	}
	fmt.Fprintf(out, "steps=%d sim_time=%s managed=%d active=%d\n",
		summary.Steps, summary.SimTime, summary.Managed, summary.Counters.Active)
	return nil
}

func dumpTrace(path string, out io.Writer) error {
	exchanges, err := trace.ReadAll(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, ex := range exchanges {
		if err := enc.Encode(ex); err != nil {
			return err
		}
	}
	return nil
}
