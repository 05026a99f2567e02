package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"github.com/saylorsolutions/dispatch/config"
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/ops"
	"github.com/saylorsolutions/dispatch/patterns/confined"
	"github.com/saylorsolutions/dispatch/patterns/eventbus"
	"github.com/saylorsolutions/dispatch/patterns/router"
	"github.com/saylorsolutions/dispatch/syncx"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"io"
	"os"
	"time"
)

const (
	harnessLogger   = "TEST"
	componentLogger = "PROJ"
	demoLogger      = "demo"
)

// demo carries what every scenario needs.
type demo struct {
	conf config.Config
	sink logx.Sink
	out  io.Writer
}

func (d demo) logf(level logx.Level, format string, args ...any) {
	logx.Logf(d.sink, level, demoLogger, format, args...)
}

func addCommonFlags(fs *flag.FlagSet) {
	fs.StringP("config", "c", "", "YAML config file")
	fs.StringP("log-level", "l", "", "Overrides the configured log level (trace, debug, info, warn, error, critical, off)")
	fs.String("log-color", "", "Overrides the configured log color mode (auto, always, never)")
	fs.Bool("json", false, "Writes JSON log lines instead of text")
}

func setup(flags *flag.FlagSet) (demo, error) {
	conf, err := config.Load(mustGet(flags.GetString("config")))
	if err != nil {
		return demo{}, err
	}
	if level := mustGet(flags.GetString("log-level")); len(level) > 0 {
		conf.LogLevel = level
	}
	if color := mustGet(flags.GetString("log-color")); len(color) > 0 {
		conf.LogColor = color
	}
	if err := conf.Validate(); err != nil {
		return demo{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	d := demo{conf: conf, out: os.Stdout}
	if mustGet(flags.GetBool("json")) {
		log := zerolog.New(d.out).Level(logx.ZerologLevel(conf.Level())).With().Timestamp().Logger()
		d.sink = logx.NewZerologSink(log)
	} else {
		d.sink = conf.Manager(d.out)
	}
	return d, nil
}

type loadOpts struct {
	goroutines   int
	events       int
	drainTimeout time.Duration
}

func addLoadFlags(fs *flag.FlagSet) {
	fs.IntP("goroutines", "g", 4, "Number of goroutines processing events")
	fs.IntP("events", "n", 30, "Number of events processed by each goroutine")
	fs.Duration("drain-timeout", 0, "Overrides the configured drain timeout, zero keeps the configured value")
}

func loadOptions(flags *flag.FlagSet) loadOpts {
	return loadOpts{
		goroutines:   mustGet(flags.GetInt("goroutines")),
		events:       mustGet(flags.GetInt("events")),
		drainTimeout: mustGet(flags.GetDuration("drain-timeout")),
	}
}

func runHarness(d demo, data []int) error {
	logx.Logf(d.sink, logx.LevelInfo, harnessLogger, "Start test front do_work")
	logx.Logf(d.sink, logx.LevelInfo, componentLogger, "Front do work start")
	logx.Logf(d.sink, logx.LevelWarn, componentLogger, "Front low performance, current goroutine: %d", syncx.GoroutineID())
	logx.Logf(d.sink, logx.LevelWarn, harnessLogger, "Front test finished, check log")

	logx.Logf(d.sink, logx.LevelInfo, harnessLogger, "Start test back process_data")
	for _, val := range data {
		logx.Logf(d.sink, logx.LevelInfo, componentLogger, "Back process data: %d", val)
		if val < 0 {
			logx.Logf(d.sink, logx.LevelWarn, componentLogger, "Back invalid data: %d", val)
		}
	}
	logx.Logf(d.sink, logx.LevelWarn, harnessLogger, "Back test finished, check log")
	return nil
}

func runBus(ctx context.Context, d demo, opts loadOpts) error {
	if opts.goroutines < 1 || opts.events < 0 {
		return fmt.Errorf("%w: goroutines must be positive and events must not be negative", ErrUsage)
	}
	busOpts := append(d.conf.BusOptions(), eventbus.WithName("demo_bus"))
	if opts.drainTimeout > 0 {
		busOpts = append(busOpts, eventbus.WithDrainTimeout(opts.drainTimeout))
	}
	bus := ops.NewEventBus(d.sink, busOpts...)
	d.logf(logx.LevelInfo, "Running %d goroutines with %d events each on bus %s", opts.goroutines, opts.events, bus.ID())

	eg, egCtx := errgroup.WithContext(ctx)
	for g := range opts.goroutines {
		eg.Go(func() error {
			for i := range opts.events {
				if err := egCtx.Err(); err != nil {
					return err
				}
				name := fmt.Sprintf("g%d_%d", g, i)
				switch i % 3 {
				case 0:
					eventbus.Process(bus, ops.TensorEvent{Name: name, Shape: []int64{int64(g + 1), int64(i + 1)}, DType: "float32"})
				case 1:
					eventbus.Process(bus, ops.OpAddEvent{Name: name, Input1: name + "_a", Input2: name + "_b", Output: name + "_out"})
				default:
					eventbus.Process(bus, ops.OpMMAEvent{Name: name, A: name + "_a", B: name + "_b", C: name + "_c", Output: name + "_out"})
				}
			}
			return nil
		})
	}
	waitErr := eg.Wait()
	if errors.Is(waitErr, context.Canceled) {
		d.logf(logx.LevelWarn, "Interrupted, draining bus")
		waitErr = nil
	}
	return errors.Join(waitErr, bus.Close())
}

func runConfined(d demo) error {
	bus := ops.NewConfinedBus(d.sink)
	if err := confined.Process(bus, ops.TensorEvent{Name: "t0", Shape: []int64{2, 2}, DType: "int8"}); err != nil {
		return err
	}
	if err := confined.Register(bus, func(evt ops.OpAddEvent) {
		d.logf(logx.LevelInfo, "Custom add handler: %s = %s + %s", evt.Output, evt.Input1, evt.Input2)
	}); err != nil {
		return err
	}
	if err := confined.Process(bus, ops.OpAddEvent{Name: "add0", Input1: "x", Input2: "y", Output: "z"}); err != nil {
		return err
	}

	var crossErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		crossErr = confined.Process(bus, ops.TensorEvent{Name: "intruder"})
	}()
	<-done
	if !errors.Is(crossErr, confined.ErrCrossThreadAccess) {
		return fmt.Errorf("expected cross-goroutine access to be rejected, got: %v", crossErr)
	}
	d.logf(logx.LevelInfo, "Cross-goroutine access rejected as expected")
	return bus.Close()
}

func runRouter(d demo) error {
	r, err := ops.NewRouter(d.sink)
	if err != nil {
		return err
	}
	router.Dispatch(r, ops.NewOpAddMsg(router.DefaultImpl, "i1", "i2", "o1"))
	router.Dispatch(r, ops.NewOpAddMsg(ops.SpecialImpl, "i3", "i4", "o2"))
	router.Dispatch(r, ops.NewOpMMAMsg("m0", "a", "b", "c", "o"))
	router.Dispatch(r, ops.NewOpMMAMsg("m1", "", "b", "c", "o"))

	add, err := ops.AddProcessor(r)
	if err != nil {
		return err
	}
	if err := add.RegisterImpl("fused", func(msg ops.OpAddMsg) {
		d.logf(logx.LevelInfo, "Fused add %s: %s + %s -> %s", msg.Name(), msg.Input1(), msg.Input2(), msg.Output())
	}); err != nil {
		return err
	}
	router.Dispatch(r, ops.NewOpAddMsg("fused", "i5", "i6", "o3"))
	return nil
}
