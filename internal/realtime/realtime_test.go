package realtime

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-analytics/iris/internal/agent"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSimulator(t *testing.T) *Simulator {
	t.Helper()
	model, err := agent.NewAnomalyModel(0.8, 64)
	require.NoError(t, err)
	return NewSimulator(NewBus(), model, testLogger(), time.Millisecond)
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe(4)
	b, cancelB := bus.Subscribe(4)
	defer cancelA()
	defer cancelB()

	bus.Publish(Point{Stream: "cpu", Value: 1})

	assert.Equal(t, 1.0, (<-a).Value)
	assert.Equal(t, 1.0, (<-b).Value)
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Point{Value: 1})
	bus.Publish(Point{Value: 2}) // dropped, never blocks

	assert.Equal(t, 1.0, (<-ch).Value)
	select {
	case p := <-ch:
		t.Fatalf("unexpected point %v", p)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	require.Equal(t, 1, bus.Subscribers())

	cancel()
	cancel() // idempotent
	assert.Equal(t, 0, bus.Subscribers())

	_, open := <-ch
	assert.False(t, open)

	bus.Publish(Point{Value: 1}) // no panic after unsubscribe
}

func TestSimulatorProducesPoints(t *testing.T) {
	sim := testSimulator(t)
	ch, cancel := sim.Bus().Subscribe(64)
	defer cancel()

	_, err := sim.Start(StreamConfig{
		Name: "cpu", Interval: time.Millisecond, Seed: 42,
		Baseline: 50, Amplitude: 5, Period: 30, Noise: 1,
	})
	require.NoError(t, err)
	defer sim.StopAll()

	deadline := time.After(2 * time.Second)
	for i := 0; i < 10; i++ {
		select {
		case p := <-ch:
			assert.Equal(t, "cpu", p.Stream)
			assert.InDelta(t, 50, p.Value, 25)
		case <-deadline:
			t.Fatal("timed out waiting for points")
		}
	}
}

func TestSimulatorStopSynchronous(t *testing.T) {
	sim := testSimulator(t)
	ch, cancel := sim.Bus().Subscribe(1024)
	defer cancel()

	_, err := sim.Start(StreamConfig{Name: "cpu", Interval: time.Millisecond, Seed: 1, Baseline: 10})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, sim.Stop("cpu"))

	// Drain whatever was published before Stop returned; nothing may
	// arrive afterwards.
	for len(ch) > 0 {
		<-ch
	}
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, len(ch), "no points may be published after Stop returns")

	assert.Error(t, sim.Stop("cpu"), "second stop of the same stream errors")
}

func TestSimulatorStreamsIndependent(t *testing.T) {
	sim := testSimulator(t)
	ch, cancel := sim.Bus().Subscribe(1024)
	defer cancel()

	_, err := sim.Start(StreamConfig{Name: "cpu", Interval: time.Millisecond, Seed: 1, Baseline: 10})
	require.NoError(t, err)
	_, err = sim.Start(StreamConfig{Name: "mem", Interval: time.Millisecond, Seed: 2, Baseline: 90})
	require.NoError(t, err)
	assert.Equal(t, []string{"cpu", "mem"}, sim.Running())

	require.NoError(t, sim.Stop("cpu"))
	assert.Equal(t, []string{"mem"}, sim.Running())

	// The surviving stream keeps producing.
	for len(ch) > 0 {
		<-ch
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-ch:
			assert.Equal(t, "mem", p.Stream)
			if p.Stream == "mem" {
				sim.StopAll()
				return
			}
		case <-deadline:
			t.Fatal("surviving stream stopped producing")
		}
	}
}

func TestSimulatorDuplicateName(t *testing.T) {
	sim := testSimulator(t)
	_, err := sim.Start(StreamConfig{Name: "cpu", Interval: time.Millisecond, Seed: 1})
	require.NoError(t, err)
	defer sim.StopAll()

	_, err = sim.Start(StreamConfig{Name: "cpu", Interval: time.Millisecond, Seed: 1})
	assert.Error(t, err)
}

func TestSimulatorSpikesGetFlagged(t *testing.T) {
	model, err := agent.NewAnomalyModel(0.8, 64)
	require.NoError(t, err)
	sim := NewSimulator(NewBus(), model, testLogger(), time.Millisecond)

	ch, cancel := sim.Bus().Subscribe(4096)
	defer cancel()

	_, err = sim.Start(StreamConfig{
		Name: "latency", Interval: time.Millisecond, Seed: 7,
		Baseline: 100, Amplitude: 2, Period: 50, Noise: 1,
		SpikeProb: 0.05, SpikeMag: 500,
	})
	require.NoError(t, err)
	defer sim.StopAll()

	deadline := time.After(5 * time.Second)
	seen := 0
	for {
		select {
		case p := <-ch:
			seen++
			if p.Flagged {
				assert.Greater(t, p.Value, 300.0, "only spiked values should flag")
				return
			}
			if seen > 2000 {
				t.Fatal("no spike flagged within 2000 points")
			}
		case <-deadline:
			t.Fatal("timed out waiting for a flagged point")
		}
	}
}

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(`
streams:
  - name: cpu
    interval: 250ms
    seed: 42
    baseline: 50
    amplitude: 10
    period: 120
    noise: 2
    spike_prob: 0.01
    spike_mag: 80
  - name: mem
    seed: 7
    baseline: 70
`))
	require.NoError(t, err)
	require.Len(t, sc.Streams, 2)
	assert.Equal(t, "cpu", sc.Streams[0].Name)
	assert.Equal(t, 250*time.Millisecond, sc.Streams[0].Interval)
	assert.Equal(t, int64(42), sc.Streams[0].Seed)
	assert.Equal(t, 80.0, sc.Streams[0].SpikeMag)
}

func TestParseScenarioRejectsDuplicates(t *testing.T) {
	_, err := ParseScenario([]byte("streams:\n  - name: cpu\n  - name: cpu\n"))
	assert.Error(t, err)

	_, err = ParseScenario([]byte("streams: []\n"))
	assert.Error(t, err)

	_, err = ParseScenario([]byte("streams: [\n"))
	assert.Error(t, err)
}
