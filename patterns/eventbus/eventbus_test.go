package eventbus

import (
	"context"
	dto "github.com/prometheus/client_model/go"
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/metrics"
	"github.com/saylorsolutions/dispatch/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testShutdownTimeout = time.Second
	testBlockCheck      = 50 * time.Millisecond
)

type testEvent struct {
	id int
}

type otherEvent struct {
	name string
}

type defaultedEvent struct{}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testBus(t *testing.T, configFuncs ...ConfigFunc) (*EventBus, *logx.Recorder) {
	t.Helper()
	rec := logx.NewRecorder()
	bus := NewEventBus(append([]ConfigFunc{WithSink(rec)}, configFuncs...)...)
	t.Cleanup(func() {
		assert.NoError(t, bus.Close())
	})
	return bus, rec
}

func counterValue(t *testing.T, counter interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestInitInstance(t *testing.T) {
	t.Cleanup(func() {
		// Resetting in case I need to test global instance stuff more.
		initOnce = sync.Once{}
		instanceBus = nil
	})
	result := InitInstance(WithName("global"), WithSink(logx.Discard))
	assert.True(t, result, "Should have configured the global instance")
	assert.Equal(t, "global", Instance().Name())
	result = InitInstance(WithName("other"))
	assert.False(t, result, "Instance was already configured, shouldn't have happened again")
	assert.Same(t, Instance(), Instance())
	assert.NoError(t, Instance().Close())
}

func TestNewEventBus_InvalidConfig(t *testing.T) {
	assert.Panics(t, func() { NewEventBus(WithName("")) })
	assert.Panics(t, func() { NewEventBus(WithSink(nil)) })
	assert.Panics(t, func() { NewEventBus(WithDrainTimeout(-time.Second)) })
}

func TestEventBus_Process(t *testing.T) {
	bus, rec := testBus(t)
	var received []int
	Register(bus, func(evt testEvent) {
		received = append(received, evt.id)
	})

	Process(bus, testEvent{id: 1})
	Process(bus, testEvent{id: 2})
	assert.Equal(t, []int{1, 2}, received)
	assert.Equal(t, 1, bus.HandlerCount())
	assert.Equal(t, registry.StateActive, bus.State())
	assert.Equal(t, 0, rec.Count(logx.LevelWarn, ""))
	assert.Equal(t, 0, bus.InFlight())
}

func TestEventBus_LastWriteWins(t *testing.T) {
	bus, _ := testBus(t)
	var first, second int
	Register(bus, func(testEvent) { first++ })
	Register(bus, func(testEvent) { second++ })
	Process(bus, testEvent{})

	assert.Equal(t, 1, bus.HandlerCount())
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestEventBus_LazyDefault(t *testing.T) {
	var called int
	defaults := registry.AddDefault(nil, func(defaultedEvent) { called++ })
	bus, rec := testBus(t, WithDefaults(defaults))
	installed := metrics.DefaultsInstalledTotal.WithLabelValues(metricsLabel, registry.KeyOf[defaultedEvent]().String())
	before := counterValue(t, installed)

	for i := 0; i < 3; i++ {
		Process(bus, defaultedEvent{})
	}
	assert.Equal(t, 3, called)
	assert.Equal(t, 1, bus.HandlerCount())
	assert.Equal(t, 1, rec.Count(logx.LevelInfo, "Lazy registered default handler"), "Default should only be installed once")
	assert.Equal(t, before+1, counterValue(t, installed))
}

func TestEventBus_LazyDefaultConcurrent(t *testing.T) {
	var calls atomic.Int64
	defaults := registry.AddDefault(nil, func(defaultedEvent) { calls.Add(1) })
	bus, rec := testBus(t, WithDefaults(defaults))

	const (
		goroutines = 32
		perRoutine = 50
	)
	var eg errgroup.Group
	for g := 0; g < goroutines; g++ {
		eg.Go(func() error {
			for i := 0; i < perRoutine; i++ {
				Process(bus, defaultedEvent{})
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	assert.Equal(t, int64(goroutines*perRoutine), calls.Load())
	assert.Equal(t, 1, bus.HandlerCount())
	assert.Equal(t, 1, rec.Count(logx.LevelInfo, "Lazy registered default handler"), "Racing first events should install the default once")
}

func TestEventBus_RegisteredBeatsDefault(t *testing.T) {
	var defaultCalled, registeredCalled bool
	defaults := registry.AddDefault(nil, func(defaultedEvent) { defaultCalled = true })
	bus, rec := testBus(t, WithDefaults(defaults))
	Register(bus, func(defaultedEvent) { registeredCalled = true })
	Process(bus, defaultedEvent{})
	assert.True(t, registeredCalled)
	assert.False(t, defaultCalled)
	assert.False(t, rec.Contains("Lazy registered"))
}

func TestEventBus_NoHandler(t *testing.T) {
	bus, rec := testBus(t)
	dropped := metrics.DroppedTotal.WithLabelValues(metricsLabel, metrics.ReasonNoHandler)
	before := counterValue(t, dropped)

	assert.NotPanics(t, func() {
		Process(bus, otherEvent{name: "unknown"})
		Process(bus, otherEvent{name: "unknown"})
	})
	assert.Equal(t, 0, bus.HandlerCount(), "Nothing should be installed for unknown types")
	assert.Equal(t, 2, rec.Count(logx.LevelWarn, "No handler for event type: eventbus.otherEvent"))
	assert.Equal(t, before+2, counterValue(t, dropped))
}

func TestEventBus_HandlerPanic(t *testing.T) {
	bus, rec := testBus(t)
	panics := metrics.HandlerPanicsTotal.WithLabelValues(metricsLabel, registry.KeyOf[testEvent]().String())
	before := counterValue(t, panics)
	Register(bus, func(testEvent) {
		panic("boom")
	})

	assert.NotPanics(t, func() {
		Process(bus, testEvent{})
	})
	assert.Equal(t, 1, rec.Count(logx.LevelWarn, "panicked"))
	assert.Equal(t, before+1, counterValue(t, panics))
	assert.Equal(t, 0, bus.InFlight(), "A panicking handler must still leave")
}

func TestEventBus_ReentrantProcess(t *testing.T) {
	bus, _ := testBus(t)
	var got []string
	Register(bus, func(evt testEvent) {
		Process(bus, otherEvent{name: "nested"})
	})
	Register(bus, func(evt otherEvent) {
		got = append(got, evt.name)
	})
	Process(bus, testEvent{})
	assert.Equal(t, []string{"nested"}, got)
}

func TestEventBus_Concurrent(t *testing.T) {
	const (
		numGoroutines = 8
		numEvents     = 500
	)
	bus := NewEventBus(WithSink(logx.Discard))
	processed := metrics.ProcessedTotal.WithLabelValues(metricsLabel, registry.KeyOf[testEvent]().String())
	before := counterValue(t, processed)

	var (
		count atomic.Int64
		sum   atomic.Int64
	)
	Register(bus, func(evt testEvent) {
		count.Add(1)
		sum.Add(int64(evt.id))
	})

	var group errgroup.Group
	for g := 0; g < numGoroutines; g++ {
		group.Go(func() error {
			for i := 0; i < numEvents; i++ {
				Process(bus, testEvent{id: 1})
				if i%100 == 0 {
					// Registrations may happen concurrently with processing.
					Register(bus, func(otherEvent) {})
				}
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())
	assert.Equal(t, int64(numGoroutines*numEvents), count.Load())
	assert.Equal(t, int64(numGoroutines*numEvents), sum.Load())
	assert.Equal(t, before+numGoroutines*numEvents, counterValue(t, processed))

	closed := make(chan error, 1)
	go func() {
		closed <- bus.Close()
	}()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(testShutdownTimeout):
		t.Fatal("Close should not block once all goroutines are done")
	}
	assert.Equal(t, registry.StateDestroyed, bus.State())
}

func TestEventBus_CloseDrainsInFlight(t *testing.T) {
	bus, rec := testBus(t)
	var (
		started  = make(chan struct{})
		release  = make(chan struct{})
		finished atomic.Bool
		other    atomic.Int32
	)
	Register(bus, func(testEvent) {
		close(started)
		<-release
		finished.Store(true)
	})
	Register(bus, func(otherEvent) {
		other.Add(1)
	})

	processDone := make(chan struct{})
	go func() {
		defer close(processDone)
		Process(bus, testEvent{})
	}()
	<-started
	assert.Equal(t, 1, bus.InFlight())

	closed := make(chan error, 1)
	go func() {
		closed <- bus.Close()
	}()
	require.Eventually(t, func() bool {
		return bus.State() == registry.StateDraining
	}, testShutdownTimeout, time.Millisecond)

	select {
	case <-closed:
		t.Fatal("Close returned while a handler was still running")
	case <-time.After(testBlockCheck):
	}

	// New work is rejected while draining.
	Process(bus, otherEvent{})
	Register(bus, func(defaultedEvent) {})
	assert.Equal(t, int32(0), other.Load())
	assert.Equal(t, 1, rec.Count(logx.LevelWarn, "Event bus is draining, ignoring event"))
	assert.Equal(t, 1, rec.Count(logx.LevelWarn, "Event bus is draining, ignoring handler registration"))

	close(release)
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(testShutdownTimeout):
		t.Fatal("Close should return once the handler finished")
	}
	<-processDone
	assert.True(t, finished.Load(), "Handler should have run to completion before Close returned")
	assert.Equal(t, registry.StateDestroyed, bus.State())
	assert.Equal(t, 0, bus.HandlerCount())
}

func TestEventBus_ShutdownTimeout(t *testing.T) {
	bus, rec := testBus(t)
	var (
		started = make(chan struct{})
		release = make(chan struct{})
	)
	Register(bus, func(testEvent) {
		close(started)
		<-release
	})
	processDone := make(chan struct{})
	go func() {
		defer close(processDone)
		Process(bus, testEvent{})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := bus.Shutdown(ctx)
	assert.ErrorIs(t, err, ErrDrainTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, registry.StateDestroyed, bus.State())
	assert.Equal(t, 0, bus.HandlerCount())
	assert.Equal(t, 1, rec.Count(logx.LevelWarn, "1 handlers still running"))

	// The abandoned handler still runs to completion.
	close(release)
	<-processDone
	assert.Equal(t, 0, bus.InFlight())
}

func TestEventBus_WithDrainTimeout(t *testing.T) {
	bus, _ := testBus(t, WithDrainTimeout(20*time.Millisecond))
	var (
		started = make(chan struct{})
		release = make(chan struct{})
	)
	Register(bus, func(testEvent) {
		close(started)
		<-release
	})
	processDone := make(chan struct{})
	go func() {
		defer close(processDone)
		Process(bus, testEvent{})
	}()
	<-started

	assert.ErrorIs(t, bus.Close(), ErrDrainTimeout)
	close(release)
	<-processDone
}

func TestEventBus_AfterClose(t *testing.T) {
	bus, rec := testBus(t)
	var called int
	Register(bus, func(testEvent) { called++ })
	require.NoError(t, bus.Close())
	assert.Equal(t, 1, rec.Count(logx.LevelInfo, "1 handlers released"))

	assert.NotPanics(t, func() {
		Register(bus, func(testEvent) { called++ })
		Process(bus, testEvent{})
	})
	assert.Equal(t, 0, called)
	assert.Equal(t, 1, rec.Count(logx.LevelWarn, "Event bus is destroyed, ignoring event"))
	assert.Equal(t, 1, rec.Count(logx.LevelWarn, "Event bus is destroyed, ignoring handler registration"))
	assert.NoError(t, bus.Close(), "Closing again should be a no-op")
}
