package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chase3718/lou-drum/drum"
)

// -------------------- Logger --------------------

// logger is the package-wide structured logger. Safe to use before initLogger
// is called; defaults to slog.Default().
var logger = slog.Default()

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug, // include file:line in debug mode
	})
	logger = slog.New(h)
	slog.SetDefault(logger) // stdlib log.* now routes through slog
}

// -------------------- Config --------------------

// loadKit resolves the pad table: a JSON file when path is set, otherwise
// the named reference kit. A non-empty velocity overrides the table's mode.
func loadKit(name, path, velocity string) (drum.Config, error) {
	var (
		cfg drum.Config
		err error
	)
	if path != "" {
		var b []byte
		b, err = os.ReadFile(path)
		if err != nil {
			return drum.Config{}, err
		}
		cfg, err = drum.ParseConfig(b)
		if err != nil {
			return drum.Config{}, fmt.Errorf("%s: %w", path, err)
		}
	} else {
		cfg, err = drum.Kit(name)
		if err != nil {
			return drum.Config{}, err
		}
	}
	if velocity != "" {
		mode, err := drum.ParseVelocityMode(velocity)
		if err != nil {
			return drum.Config{}, err
		}
		cfg.Velocity = mode
	}
	return cfg, cfg.Validate()
}

// -------------------- Main --------------------

// options are the parsed command-line flags.
type options struct {
	debug      bool
	serialDev  string
	baud       int
	kitName    string
	configPath string
	out        string
	velocity   string
	cycles     int
}

// openSerial is swapped out in tests.
var openSerial = OpenSerial

func main() {
	var opts options
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging (adds source location)")
	flag.StringVar(&opts.serialDev, "serial", "/dev/ttyACM0", "serial port device, or \"auto\"")
	flag.IntVar(&opts.baud, "baud", 115200, "serial baud rate")
	flag.StringVar(&opts.kitName, "kit", "kit", "reference pad table ("+strings.Join(drum.KitNames(), ", ")+")")
	flag.StringVar(&opts.configPath, "config", "", "JSON pad table (overrides -kit)")
	flag.StringVar(&opts.out, "out", "midi", "event output: midi, serial or log")
	flag.StringVar(&opts.velocity, "velocity", "", "velocity mode override: fixed or proportional")
	flag.IntVar(&opts.cycles, "cycles", 0, "stop after this many poll cycles (0 = run until interrupted)")
	flag.Parse()

	initLogger(opts.debug)

	if err := run(opts); err != nil {
		logger.Error("lou-drum failed", "err", err)
		os.Exit(1)
	}
}

// run owns every resource it opens; its defers always execute, whether it
// returns an error or not.
func run(opts options) error {
	cfg, err := loadKit(opts.kitName, opts.configPath, opts.velocity)
	if err != nil {
		return fmt.Errorf("config: invalid pad table: %w", err)
	}
	logger.Info("lou-drum starting",
		"serial", opts.serialDev,
		"baud", opts.baud,
		"debug", opts.debug,
		"kit", cfg.Name,
		"pads", len(cfg.Channels),
		"midi_channel", cfg.MIDIChannel,
		"velocity", cfg.Velocity,
		"max_sample", cfg.MaxSample,
		"out", opts.out,
	)

	dev := opts.serialDev
	if dev == "auto" {
		dev, err = FindSerial()
		if err != nil {
			return err
		}
		logger.Info("serial: auto-detected port", "device", dev)
	}
	sp, err := openSerial(dev, opts.baud, len(cfg.Channels))
	if err != nil {
		return err
	}
	defer sp.Close()

	var (
		sink    drum.EventSink
		watcher *MIDIOutWatcher
	)
	switch opts.out {
	case "midi":
		watcher, err = NewMIDIOutWatcher(cfg.MIDIChannel)
		if err != nil {
			return fmt.Errorf("midi watcher init: %w", err)
		}
		defer watcher.Close()
		watcher.Tick()
		sink = watcher
	case "serial":
		sink = NewSerialMIDISink(sp, cfg.MIDIChannel)
	case "log":
		sink = LogSink{channel: cfg.MIDIChannel}
	default:
		return fmt.Errorf("unknown -out %q (want midi, serial or log)", opts.out)
	}

	disp, err := drum.NewDispatcher(cfg, drum.IO{
		Sampler:   sp,
		Hold:      sp,
		Sink:      sink,
		Indicator: sp,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("dispatcher init: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	logger.Info("running – polling pads")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case sig := <-signalCh:
			logger.Info("caught signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		n := disp.Run(ctx, opts.cycles)
		// panic release before the output goes away
		disp.ReleaseAll()
		logger.Info("dispatcher finished", "cycles", n)
		cancel()
		return nil
	})
	if watcher != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					watcher.Tick()
				}
			}
		})
	}
	err = g.Wait()

	st := disp.Stats()
	skipped, dropped := sp.Stats()
	logger.Info("lou-drum stopped",
		"cycles", st.Cycles,
		"note_ons", st.NoteOns,
		"note_offs", st.NoteOffs,
		"hold_edges", st.HoldEdges,
		"latch_errors", st.LatchErrors,
		"sink_errors", st.SinkErrors,
		"frames_dropped", dropped,
		"bytes_skipped", skipped,
	)
	return err
}
