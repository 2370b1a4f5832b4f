package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/annel0/tas-replay/internal/eventbus"
	"github.com/annel0/tas-replay/internal/tas"
)

type collectOptions struct {
	Filter eventbus.Filter
	// Since и Until ограничивают окно по Timestamp; нулевое значение: без границы
	Since  time.Time
	Until  time.Time
	Limit  int
	Follow bool
	Idle   time.Duration
}

// collector подписывается сразу при создании, чтобы события, пришедшие
// до Run, не терялись
type collector struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   collectOptions
	events chan *eventbus.Envelope
	sub    eventbus.Subscription
}

func newCollector(ctx context.Context, bus eventbus.EventBus, opts collectOptions) (*collector, error) {
	if opts.Idle <= 0 {
		opts.Idle = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &collector{
		ctx:    ctx,
		cancel: cancel,
		opts:   opts,
		events: make(chan *eventbus.Envelope, 256),
	}

	sub, err := bus.Subscribe(ctx, opts.Filter, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case c.events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}
	c.sub = sub
	return c, nil
}

// Run передаёт события окна в fn и возвращает их число. Без Follow
// завершается по лимиту или после Idle без новых событий.
func (c *collector) Run(fn func(*eventbus.Envelope)) int {
	idle := time.NewTimer(c.opts.Idle)
	defer idle.Stop()

	count := 0
	for {
		var idleC <-chan time.Time
		if !c.opts.Follow {
			idleC = idle.C
		}

		select {
		case <-c.ctx.Done():
			return count
		case <-idleC:
			return count
		case ev := <-c.events:
			idle.Reset(c.opts.Idle)
			if !c.inWindow(ev.Timestamp) {
				continue
			}
			fn(ev)
			count++
			if !c.opts.Follow && c.opts.Limit > 0 && count >= c.opts.Limit {
				return count
			}
		}
	}
}

func (c *collector) inWindow(ts time.Time) bool {
	if !c.opts.Since.IsZero() && ts.Before(c.opts.Since) {
		return false
	}
	if !c.opts.Until.IsZero() && ts.After(c.opts.Until) {
		return false
	}
	return true
}

func (c *collector) Close() {
	c.sub.Unsubscribe()
	c.cancel()
}

// printEvent выводит событие в читаемом формате
func printEvent(w io.Writer, ev *eventbus.Envelope) {
	fmt.Fprintf(w, "[%s] %s [%s] %s\n",
		ev.Timestamp.Format("15:04:05"),
		ev.Source,
		ev.EventType,
		ev.CorrelationID)

	se, err := tas.DecodeSessionEvent(ev)
	if err != nil {
		fmt.Fprintf(w, "  ⚠️ payload: %v\n", err)
		return
	}

	switch ev.EventType {
	case tas.EventRecordSaved:
		fmt.Fprintf(w, "  Record: %s Map: %s Frames: %d\n", se.Record, se.Map, se.Frames)
	case tas.EventRecordSaveFailed:
		fmt.Fprintf(w, "  Record: %s Error: %s\n", se.Record, se.Error)
	case tas.EventRecordingStopped, tas.EventPlaybackStopped:
		fmt.Fprintf(w, "  Frames: %d Reason: %s\n", se.Frames, se.Reason)
	case tas.EventRecordingStarted, tas.EventPlaybackStarted:
		fmt.Fprintf(w, "  Map: %s Degraded: %v Legacy: %v\n", se.Map, se.Degraded, se.Legacy)
	}
}

// eventStats сводка по событиям сессий
type eventStats struct {
	total    int
	byType   map[string]int
	sessions map[string]struct{}
	frames   int
	failed   int
}

func newEventStats() *eventStats {
	return &eventStats{
		byType:   make(map[string]int),
		sessions: make(map[string]struct{}),
	}
}

func (s *eventStats) add(ev *eventbus.Envelope) {
	s.total++
	s.byType[ev.EventType]++
	if ev.CorrelationID != "" {
		s.sessions[ev.CorrelationID] = struct{}{}
	}

	switch ev.EventType {
	case tas.EventRecordSaved:
		if se, err := tas.DecodeSessionEvent(ev); err == nil {
			s.frames += se.Frames
		}
	case tas.EventRecordSaveFailed:
		s.failed++
	}
}

func (s *eventStats) print(w io.Writer) {
	fmt.Fprintf(w, "Total events: %d\n", s.total)
	fmt.Fprintf(w, "Sessions: %d\n", len(s.sessions))
	fmt.Fprintf(w, "Saved frames: %d\n", s.frames)
	fmt.Fprintf(w, "Failed saves: %d\n", s.failed)

	types := make([]string, 0, len(s.byType))
	for t := range s.byType {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Fprintln(w, "\nBy event type:")
	for _, t := range types {
		fmt.Fprintf(w, "  %s: %d events\n", t, s.byType[t])
	}
}
