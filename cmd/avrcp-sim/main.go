// Command avrcp-sim runs simulated AVRCP endpoints.
//
// In loopback mode a simulated phone (target with a media player) and a
// car kit (controller) run in one process and talk over an in-memory
// link. In listen and connect mode one engine talks to another avrcp-sim
// over TCP, using the stream framing of pkg/transport.
//
// Usage:
//
//	avrcp-sim [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-mode string          loopback, listen or connect (default "loopback")
//	-address string       Listen or connect address, "mdns" to browse in connect mode (default "127.0.0.1:7000")
//	-name string          mDNS instance name (default "avrcp-sim")
//	-advertise            Advertise the listening endpoint over mDNS
//	-role string          Local role for listen/connect: target, controller, both (default "both")
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write a protocol capture to this file
//	-interactive          Start the command shell (default true)
//	-simulate             Advance the simulated player in real time (default true)
//
// Examples:
//
//	# Phone and car kit in one process
//	avrcp-sim
//
//	# Phone side, waiting for a car kit
//	avrcp-sim -mode listen -role target -interactive=false
//
//	# Car kit connecting to it, capturing the session
//	avrcp-sim -mode connect -role controller -protocol-log carkit.alog
//
//	# Same pair, found through mDNS
//	avrcp-sim -mode listen -address :7000 -role target -advertise -name phone
//	avrcp-sim -mode connect -address mdns -role controller
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/avrcp-protocol/avrcp-go/cmd/avrcp-sim/interactive"
	"github.com/avrcp-protocol/avrcp-go/pkg/log"
)

// flagValues holds the command line before it is merged into Config.
var flagValues struct {
	configFile  string
	mode        string
	address     string
	name        string
	advertise   bool
	role        string
	logLevel    string
	protocolLog string
	interactive bool
	simulate    bool
}

func init() {
	def := defaultConfig()
	flag.StringVar(&flagValues.configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flagValues.mode, "mode", string(def.Mode), "Link mode: loopback, listen, connect")
	flag.StringVar(&flagValues.address, "address", def.Address, "Listen or connect address")
	flag.StringVar(&flagValues.name, "name", def.Name, "mDNS instance name")
	flag.BoolVar(&flagValues.advertise, "advertise", def.Advertise, "Advertise the listening endpoint over mDNS")
	flag.StringVar(&flagValues.role, "role", def.Role, "Local role for listen/connect: target, controller, both")
	flag.StringVar(&flagValues.logLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&flagValues.protocolLog, "protocol-log", "", "Write a protocol capture to this file")
	flag.BoolVar(&flagValues.interactive, "interactive", def.Interactive, "Start the command shell")
	flag.BoolVar(&flagValues.simulate, "simulate", def.Simulate, "Advance the simulated player in real time")
}

func main() {
	flag.Parse()

	config := defaultConfig()
	if flagValues.configFile != "" {
		var err error
		if config, err = loadConfigFile(flagValues.configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	applyFlags(&config, setFlags())

	if err := config.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setFlags returns the names of the flags given on the command line.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *Config, set map[string]bool) {
	if set["mode"] {
		cfg.Mode = Mode(flagValues.mode)
	}
	if set["address"] {
		cfg.Address = flagValues.address
	}
	if set["name"] {
		cfg.Name = flagValues.name
	}
	if set["advertise"] {
		cfg.Advertise = flagValues.advertise
	}
	if set["role"] {
		cfg.Role = flagValues.role
	}
	if set["log-level"] {
		cfg.LogLevel = flagValues.logLevel
	}
	if set["protocol-log"] {
		cfg.ProtocolLog = flagValues.protocolLog
	}
	if set["interactive"] {
		cfg.Interactive = flagValues.interactive
	}
	if set["simulate"] {
		cfg.Simulate = flagValues.simulate
	}
	cfg.ConfigFile = flagValues.configFile
}

func run(ctx context.Context, cancel context.CancelFunc, config Config) error {
	var capture log.Logger
	if config.ProtocolLog != "" {
		fl, err := log.NewFileLogger(config.ProtocolLog)
		if err != nil {
			return fmt.Errorf("failed to open protocol log: %w", err)
		}
		defer fl.Close()
		capture = fl
	}

	// The shell owns the terminal once it runs, so logs are routed
	// through its writer.
	out := &switchWriter{w: os.Stderr}
	sim := newSimulator(config, setupLogging(config.LogLevel, out), capture)
	defer sim.shutdown()
	if err := sim.setup(ctx, cancel); err != nil {
		return err
	}

	var shell *interactive.Shell
	if config.Interactive {
		var err error
		shell, err = interactive.New(sim.controller(), sim.localPlayer())
		if err != nil {
			return err
		}
		out.set(shell.Stdout())
	}

	if err := sim.start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if config.Simulate && sim.player != nil {
		g.Go(func() error {
			sim.player.Run(gctx, config.Player.Tick)
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		if shell != nil {
			shell.Run(gctx, cancel)
			return nil
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			sim.logger.Info("received signal, shutting down", "signal", sig)
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}

// switchWriter lets the log destination change after the logger exists.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func setupLogging(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
