package main

import (
	"context"
	"errors"
	"fmt"
	flag "github.com/spf13/pflag"
	"os"
	"os/signal"
	"syscall"
)

const cliName = "dispatchdemo"

func main() {
	ctx := signalExitCtx(context.Background(), os.Interrupt, syscall.SIGTERM)
	scenarios := newScenarios()
	if err := scenarios.exec(ctx, os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", cliName, err)
		if errors.Is(err, ErrUsage) {
			scenarios.usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newScenarios() *scenarioSet {
	set := newScenarioSet(cliName, os.Stderr)
	harnessFlags := set.add("harness", "Logs from the front and back components like the test harness does", func(ctx context.Context, flags *flag.FlagSet) error {
		d, err := setup(flags)
		if err != nil {
			return err
		}
		return runHarness(d, mustGet(flags.GetIntSlice("data")))
	})
	harnessFlags.IntSlice("data", []int{100, -10}, "Values passed to the back component, negative values are logged as invalid")

	busFlags := set.add("bus", "Processes events on a concurrent event bus from many goroutines, then drains it", func(ctx context.Context, flags *flag.FlagSet) error {
		d, err := setup(flags)
		if err != nil {
			return err
		}
		return runBus(ctx, d, loadOptions(flags))
	})
	addLoadFlags(busFlags)

	set.add("confined", "Uses a goroutine-confined bus, including a rejected call from another goroutine", func(ctx context.Context, flags *flag.FlagSet) error {
		d, err := setup(flags)
		if err != nil {
			return err
		}
		return runConfined(d)
	})

	set.add("router", "Routes operator messages, including a redirected multiply-accumulate", func(ctx context.Context, flags *flag.FlagSet) error {
		d, err := setup(flags)
		if err != nil {
			return err
		}
		return runRouter(d)
	})

	allFlags := set.add("all", "Runs every scenario in turn", func(ctx context.Context, flags *flag.FlagSet) error {
		d, err := setup(flags)
		if err != nil {
			return err
		}
		if err := runHarness(d, []int{100, -10}); err != nil {
			return err
		}
		if err := runBus(ctx, d, loadOptions(flags)); err != nil {
			return err
		}
		if err := runConfined(d); err != nil {
			return err
		}
		return runRouter(d)
	})
	addLoadFlags(allFlags)
	return set
}

// signalExitCtx returns a context that's cancelled when any of the given signals are received.
// A second signal exits the process with a non-zero exit code.
func signalExitCtx(parent context.Context, signals ...os.Signal) context.Context {
	if len(signals) == 0 {
		panic("no signals passed to signalExitCtx")
	}
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, signals...)
	go func() {
		defer cancel()
		<-sigs
		cancel()
		<-sigs
		os.Exit(1)
	}()
	return ctx
}
