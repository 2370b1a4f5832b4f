package eventbus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu  sync.Mutex
	evs []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.evs = append(c.evs, ev)
	c.mu.Unlock()
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.evs))
	for i, ev := range c.evs {
		out[i] = ev.ID
	}
	return out
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.evs)
}

func envelope(id, typ string) *Envelope {
	return &Envelope{ID: id, EventType: typ, Source: "tas", Priority: 3}
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(64)
	defer bus.Close()

	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	var want []string
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("ev-%02d", i)
		want = append(want, id)
		require.NoError(t, bus.Publish(context.Background(), envelope(id, "tas.record.saved")))
	}

	require.Eventually(t, func() bool { return c.len() == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, c.ids())
	assert.Equal(t, uint64(20), bus.Metrics().Published)
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var saved, all collector
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"tas.record.saved"}}, saved.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{Sources: []string{"tas"}}, all.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), envelope("1", "tas.recording.started")))
	require.NoError(t, bus.Publish(context.Background(), envelope("2", "tas.record.saved")))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{ID: "3", EventType: "tas.record.saved", Source: "tasctl"}))

	require.Eventually(t, func() bool { return all.len() == 2 && saved.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"2", "3"}, saved.ids())
	assert.Equal(t, []string{"1", "2"}, all.ids())
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var c collector
	sub, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), envelope("1", "x")))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, c.len())
}

func TestMemoryBusDropsAfterClose(t *testing.T) {
	bus := NewMemoryBus(1)
	bus.Close()

	require.NoError(t, bus.Publish(context.Background(), envelope("1", "x")))
	assert.Equal(t, uint64(1), bus.Metrics().Dropped)
	assert.Zero(t, bus.Metrics().Published)
}

func TestForwardRelaysEvents(t *testing.T) {
	src := NewMemoryBus(16)
	defer src.Close()
	dst := NewMemoryBus(16)
	defer dst.Close()

	var c collector
	_, err := dst.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	_, err = Forward(context.Background(), src, dst, Filter{Sources: []string{"tas"}}, time.Second)
	require.NoError(t, err)

	require.NoError(t, src.Publish(context.Background(), envelope("a", "tas.playback.started")))
	require.NoError(t, src.Publish(context.Background(), &Envelope{ID: "b", EventType: "other", Source: "elsewhere"}))
	require.NoError(t, src.Publish(context.Background(), envelope("c", "tas.playback.stopped")))

	require.Eventually(t, func() bool { return c.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "c"}, c.ids())
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), envelope(fmt.Sprint(i), "x")))
	}
	me.Collect()
	assert.Equal(t, float64(3), testutil.ToFloat64(me.published))

	require.NoError(t, bus.Publish(context.Background(), envelope("4", "x")))
	me.Collect()
	me.Collect()
	assert.Equal(t, float64(4), testutil.ToFloat64(me.published), "добавляется только приращение")

	me.Start(10 * time.Millisecond)
	me.Stop()
	me.Stop()
}
