package main

import (
	"context"
	"errors"
	"fmt"
	flag "github.com/spf13/pflag"
	"io"
	"slices"
	"strings"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrUsage           = errors.New("usage error")

	helpPatterns = []string{"--help", "-h", "help"}
)

// scenarioFunc runs a scenario after its flags have been parsed.
type scenarioFunc = func(ctx context.Context, flags *flag.FlagSet) error

// scenario is a runnable demo, with its own flags.
type scenario struct {
	key        string
	shortUsage string
	flags      *flag.FlagSet
	exec       scenarioFunc
}

func (s *scenario) usage(out io.Writer, parent string) {
	var buf strings.Builder
	buf.WriteString(s.shortUsage)
	buf.WriteString("\n\nUSAGE:\n")
	buf.WriteString(fmt.Sprintf("%s %s [FLAGS]\n", parent, s.key))
	buf.WriteString("\nFLAGS\n")
	buf.WriteString(s.flags.FlagUsages())
	_, _ = fmt.Fprint(out, buf.String())
}

// scenarioSet maps scenario keys to scenarios, and prints usage information.
type scenarioSet struct {
	name      string
	out       io.Writer
	scenarios map[string]*scenario
}

func newScenarioSet(name string, out io.Writer) *scenarioSet {
	return &scenarioSet{name: name, out: out, scenarios: map[string]*scenario{}}
}

// add registers a scenario. The returned flag set already has the help flag and the common flags.
func (s *scenarioSet) add(key, shortUsage string, exec scenarioFunc) *flag.FlagSet {
	key = strings.ToLower(strings.TrimSpace(key))
	fs := flag.NewFlagSet(key, flag.ContinueOnError)
	fs.SetOutput(s.out)
	fs.BoolP("help", "h", false, "Prints this usage information")
	addCommonFlags(fs)
	sc := &scenario{key: key, shortUsage: shortUsage, flags: fs, exec: exec}
	fs.Usage = func() {
		sc.usage(s.out, s.name)
	}
	s.scenarios[key] = sc
	return fs
}

// exec runs the scenario named by the first argument, passing it the rest.
func (s *scenarioSet) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no scenario given", ErrUsage)
	}
	if slices.Contains(helpPatterns, args[0]) {
		s.usage()
		return nil
	}
	sc, ok := s.scenarios[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("%w: %w: %s", ErrUsage, ErrUnknownScenario, args[0])
	}
	if err := sc.flags.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if mustGet(sc.flags.GetBool("help")) {
		sc.flags.Usage()
		return nil
	}
	return sc.exec(ctx, sc.flags)
}

func (s *scenarioSet) usage() {
	var (
		buf    strings.Builder
		keys   = make([]string, 0, len(s.scenarios))
		maxLen int
	)
	for key := range s.scenarios {
		keys = append(keys, key)
		maxLen = max(maxLen, len(key))
	}
	slices.Sort(keys)
	buf.WriteString(fmt.Sprintf("USAGE:\n%s SCENARIO [FLAGS]\n\nSCENARIOS:\n", s.name))
	fmtStr := fmt.Sprintf("  %%-%ds\t%%s\n", maxLen)
	for _, key := range keys {
		buf.WriteString(fmt.Sprintf(fmtStr, key, s.scenarios[key].shortUsage))
	}
	_, _ = fmt.Fprint(s.out, buf.String())
}

// mustGet is used with a [flag.FlagSet] getter to panic if the flag is not defined, or is not the right type.
func mustGet[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
