package router

import (
	"fmt"
	dto "github.com/prometheus/client_model/go"
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/metrics"
	"github.com/saylorsolutions/dispatch/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
	"sync/atomic"
	"testing"
)

type pingMsg struct {
	name  string
	valid bool
}

func (m pingMsg) Name() string {
	return m.name
}

type pongMsg struct {
	name string
}

func (m pongMsg) Name() string {
	return m.name
}

type strayMsg struct{}

func (strayMsg) Name() string {
	return "stray"
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testRouter(t *testing.T) (*Router, *logx.Recorder) {
	t.Helper()
	rec := logx.NewRecorder()
	return New(WithSink(rec)), rec
}

func counterValue(t *testing.T, counter interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestNew_InvalidConfig(t *testing.T) {
	assert.Panics(t, func() { New(WithName("")) })
	assert.Panics(t, func() { New(WithSink(nil)) })
}

func TestProcessor_Process(t *testing.T) {
	var calls []string
	p := NewProcessor(func(msg pingMsg) { calls = append(calls, "default:"+msg.name) })
	require.NoError(t, p.RegisterImpl("fast", func(msg pingMsg) { calls = append(calls, "fast:"+msg.name) }))

	require.NoError(t, p.Process(pingMsg{name: "fast"}))
	require.NoError(t, p.Process(pingMsg{name: "slow"}))
	require.NoError(t, p.Process(pingMsg{name: DefaultImpl}))
	assert.Equal(t, []string{"fast:fast", "default:slow", "default:default"}, calls)
	assert.Equal(t, []string{"default", "fast"}, p.Impls())
}

func TestProcessor_ReplaceDefault(t *testing.T) {
	var which string
	p := NewProcessor(func(pingMsg) { which = "initial" })
	require.NoError(t, p.RegisterImpl(DefaultImpl, func(pingMsg) { which = "replaced" }))
	require.NoError(t, p.Process(pingMsg{name: "anything"}))
	assert.Equal(t, "replaced", which)
}

func TestProcessor_NoDefault(t *testing.T) {
	p := NewProcessor[pingMsg](nil)
	assert.False(t, p.HasImpl(DefaultImpl))
	assert.ErrorIs(t, p.Process(pingMsg{name: "x"}), ErrMissingDefault)
	assert.ErrorIs(t, p.RegisterImpl("x", nil), ErrNilImpl)
}

func TestRegisterProcessor_RequiresDefault(t *testing.T) {
	r, _ := testRouter(t)
	p := NewProcessor[pingMsg](nil)
	assert.ErrorIs(t, RegisterProcessor(r, p), ErrMissingDefault)
	assert.False(t, r.Supports(registry.KeyOf[pingMsg]()))

	require.NoError(t, p.RegisterImpl(DefaultImpl, func(pingMsg) {}))
	assert.NoError(t, RegisterProcessor(r, p))
	assert.True(t, r.Supports(registry.KeyOf[pingMsg]()))

	assert.Error(t, RegisterProcessor[pingMsg](r, nil))
}

func TestDispatch_Forward(t *testing.T) {
	r, rec := testRouter(t)
	var got []string
	p := NewProcessor(func(msg pingMsg) { got = append(got, "default:"+msg.name) })
	require.NoError(t, p.RegisterImpl("named", func(msg pingMsg) { got = append(got, "named:"+msg.name) }))
	require.NoError(t, RegisterProcessor(r, p))

	Dispatch(r, pingMsg{name: "named"})
	Dispatch(r, pingMsg{name: "other"})
	assert.Equal(t, []string{"named:named", "default:other"}, got)
	assert.Equal(t, 0, rec.Count(logx.LevelError, ""))
	assert.Equal(t, 1, rec.Count(logx.LevelInfo, "dispatch<router.pingMsg>.name = named"))
}

func TestDispatch_Unregistered(t *testing.T) {
	r, rec := testRouter(t)
	dropped := metrics.DroppedTotal.WithLabelValues(metricsLabel, metrics.ReasonUnregistered)
	before := counterValue(t, dropped)

	assert.NotPanics(t, func() {
		Dispatch(r, strayMsg{})
	})
	assert.Equal(t, 1, rec.Count(logx.LevelError, "Unsupported message type"))
	assert.Equal(t, before+1, counterValue(t, dropped))
}

func TestGetProcessor(t *testing.T) {
	r, _ := testRouter(t)
	_, err := GetProcessor[pingMsg](r)
	assert.ErrorIs(t, err, ErrProcessorNotRegistered)

	p := NewProcessor(func(pingMsg) {})
	require.NoError(t, RegisterProcessor(r, p))
	got, err := GetProcessor[pingMsg](r)
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestGetProcessor_AddImplAfterRegistration(t *testing.T) {
	r, _ := testRouter(t)
	require.NoError(t, RegisterProcessor(r, NewProcessor(func(pingMsg) {})))

	var called bool
	p, err := GetProcessor[pingMsg](r)
	require.NoError(t, err)
	require.NoError(t, p.RegisterImpl("late", func(pingMsg) { called = true }))
	Dispatch(r, pingMsg{name: "late"})
	assert.True(t, called)
}

func TestRedirect(t *testing.T) {
	r, rec := testRouter(t)
	var pings, pongs []string
	require.NoError(t, RegisterProcessor(r, NewProcessor(func(msg pingMsg) { pings = append(pings, msg.name) })))
	require.NoError(t, RegisterProcessor(r, NewProcessor(func(msg pongMsg) { pongs = append(pongs, msg.name) })))
	RegisterOverride(r, func(r *Router, msg pingMsg) {
		if !msg.valid {
			Redirect(r, msg, pongMsg{name: msg.name + "_bounced"})
			return
		}
		Forward(r, msg)
	})

	redirects := metrics.RedirectsTotal.WithLabelValues(registry.KeyOf[pingMsg]().String(), registry.KeyOf[pongMsg]().String())
	before := counterValue(t, redirects)

	Dispatch(r, pingMsg{name: "a", valid: true})
	Dispatch(r, pingMsg{name: "b"})
	assert.Equal(t, []string{"a"}, pings)
	assert.Equal(t, []string{"b_bounced"}, pongs)
	assert.Equal(t, before+1, counterValue(t, redirects))
	assert.Equal(t, 1, rec.Count(logx.LevelWarn, "redirected to"))
}

func TestRegisterOverride_BeforeProcessor(t *testing.T) {
	r, _ := testRouter(t)
	var overridden int
	RegisterOverride(r, func(r *Router, msg pingMsg) {
		overridden++
		Forward(r, msg)
	})

	var processed int
	require.NoError(t, RegisterProcessor(r, NewProcessor(func(pingMsg) { processed++ })))
	Dispatch(r, pingMsg{name: "x"})
	assert.Equal(t, 1, overridden, "Registering a processor must not replace an existing override")
	assert.Equal(t, 1, processed)
}

func TestForward_NoProcessor(t *testing.T) {
	r, rec := testRouter(t)
	RegisterOverride(r, func(r *Router, msg pingMsg) {
		Forward(r, msg)
	})
	assert.NotPanics(t, func() {
		Dispatch(r, pingMsg{name: "x"})
	})
	assert.Equal(t, 1, rec.Count(logx.LevelError, "Unable to forward x"))
}

func TestDispatch_Concurrent(t *testing.T) {
	r := New(WithSink(logx.Discard))
	var count atomic.Int64
	require.NoError(t, RegisterProcessor(r, NewProcessor(func(pingMsg) { count.Add(1) })))

	const (
		goroutines = 8
		perRoutine = 250
	)
	var eg errgroup.Group
	for g := 0; g < goroutines; g++ {
		eg.Go(func() error {
			for i := 0; i < perRoutine; i++ {
				Dispatch(r, pingMsg{name: fmt.Sprintf("g%d-%d", g, i)})
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	assert.Equal(t, int64(goroutines*perRoutine), count.Load())
}
