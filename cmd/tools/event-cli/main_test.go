package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/annel0/tas-replay/internal/eventbus"
	"github.com/annel0/tas-replay/internal/tas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionEnvelope(t *testing.T, eventType, session string, ts time.Time, ev tas.SessionEvent) *eventbus.Envelope {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	return &eventbus.Envelope{
		ID:            eventType + "-" + session,
		Timestamp:     ts,
		Source:        tas.EventSource,
		EventType:     eventType,
		Version:       1,
		CorrelationID: session,
		Payload:       payload,
	}
}

func TestCollectorRespectsWindowAndLimit(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts := collectOptions{
		Filter: eventbus.Filter{Sources: []string{tas.EventSource}},
		Since:  now.Add(-time.Hour),
		Limit:  2,
		Idle:   time.Second,
	}
	c, err := newCollector(context.Background(), bus, opts)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, sessionEnvelope(t, tas.EventRecordingStarted, "old", now.Add(-2*time.Hour), tas.SessionEvent{})))
	require.NoError(t, bus.Publish(ctx, sessionEnvelope(t, tas.EventRecordingStarted, "s1", now, tas.SessionEvent{Map: "Level_01"})))
	require.NoError(t, bus.Publish(ctx, sessionEnvelope(t, tas.EventRecordSaved, "s1", now, tas.SessionEvent{Frames: 90})))
	require.NoError(t, bus.Publish(ctx, sessionEnvelope(t, tas.EventPlaybackStarted, "s2", now, tas.SessionEvent{})))

	var got []string
	n := c.Run(func(ev *eventbus.Envelope) { got = append(got, ev.CorrelationID) })
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"s1", "s1"}, got, "старое событие вне окна, третье сверх лимита")
}

func TestCollectorStopsWhenIdle(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	c, err := newCollector(context.Background(), bus, collectOptions{Idle: 50 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	start := time.Now()
	assert.Zero(t, c.Run(func(*eventbus.Envelope) {}))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEventStats(t *testing.T) {
	now := time.Now()
	s := newEventStats()
	s.add(sessionEnvelope(t, tas.EventRecordingStarted, "s1", now, tas.SessionEvent{}))
	s.add(sessionEnvelope(t, tas.EventRecordSaved, "s1", now, tas.SessionEvent{Frames: 90}))
	s.add(sessionEnvelope(t, tas.EventRecordSaved, "s2", now, tas.SessionEvent{Frames: 10}))
	s.add(sessionEnvelope(t, tas.EventRecordSaveFailed, "s3", now, tas.SessionEvent{Error: "disk full"}))

	var out bytes.Buffer
	s.print(&out)
	text := out.String()
	assert.Contains(t, text, "Total events: 4")
	assert.Contains(t, text, "Sessions: 3")
	assert.Contains(t, text, "Saved frames: 100")
	assert.Contains(t, text, "Failed saves: 1")
	assert.Contains(t, text, "tas.record.saved: 2 events")
}

func TestPrintEvent(t *testing.T) {
	var out bytes.Buffer
	ts := time.Date(2026, 3, 1, 8, 30, 15, 0, time.UTC)
	printEvent(&out, sessionEnvelope(t, tas.EventRecordingStopped, "s1", ts, tas.SessionEvent{Frames: 42, Reason: "level_finish"}))

	assert.Contains(t, out.String(), "[08:30:15] tas [tas.recording.stopped] s1")
	assert.Contains(t, out.String(), "Frames: 42 Reason: level_finish")
}

func TestBuildOptions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	opts, err := buildOptions("tas.record.saved, tas.record.save_failed", "30m", "", 10, false, time.Second, now)
	require.NoError(t, err)
	assert.Equal(t, []string{tas.EventRecordSaved, tas.EventRecordSaveFailed}, opts.Filter.Types)
	assert.Equal(t, now.Add(-30*time.Minute), opts.Since)
	assert.True(t, opts.Until.IsZero())

	_, err = buildOptions("", "1h", "not-a-time", 10, false, time.Second, now)
	assert.Error(t, err)
}
