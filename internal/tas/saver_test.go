package tas

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annel0/tas-replay/internal/eventbus"
	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/record"
	"github.com/annel0/tas-replay/internal/storage"
	"github.com/annel0/tas-replay/internal/tasfile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturedRecord(n int) *record.Record {
	rec := record.New("", "", false)
	for i := 0; i < n; i++ {
		rec.NewFrame(record.Frame{DeltaTime: 16.5, Input: input.KeyState(i) & input.AllKeys})
	}
	return rec
}

func TestSaverWritesFilesAndCatalog(t *testing.T) {
	dir := t.TempDir()
	catalog := storage.NewMemoryCatalog()
	metrics := NewMetrics(prometheus.NewRegistry())
	bus := eventbus.NewMemoryBus(32)
	defer bus.Close()

	var (
		mu     sync.Mutex
		events []string
	)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Sources: []string{EventSource}}, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		events = append(events, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	s := NewSaver(dir, 2, SaverDeps{Catalog: catalog, Metrics: metrics, Bus: bus, Logger: quietLogger()})
	var results []SaveResult
	s.OnResult(func(r SaveResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		rec := capturedRecord(10 + i)
		p := s.Reserve(testMap, now)
		rec.SetName(filepath.Base(p))
		rec.SetPath(p)
		rec.SetMapName(testMap)
		s.Submit(rec.Detach(), "session")
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(waitCtx))

	require.Len(t, results, 4)
	names := map[string]bool{}
	for _, r := range results {
		require.NoError(t, r.Err)
		names[r.Name] = true
		_, err := os.Stat(r.Path)
		assert.NoError(t, err)
	}
	assert.Len(t, names, 4, "одинаковая секунда не даёт одинаковых имён")
	assert.True(t, names["Level_01_20240501_120000.tas"])
	assert.True(t, names["Level_01_20240501_120000_3.tas"])

	entries, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "Level_01_20240501_120000", entries[0].Name)
	assert.Equal(t, testMap, entries[0].MapName)
	assert.Equal(t, "session", entries[0].SessionID)
	assert.Positive(t, entries[0].Size)

	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.saves.WithLabelValues("ok")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 4
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, EventRecordSaved, events[0])
}

func TestSaverReportsFailure(t *testing.T) {
	// Каталог записей совпадает с существующим файлом
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	metrics := NewMetrics(prometheus.NewRegistry())
	catalog := storage.NewMemoryCatalog()
	s := NewSaver(blocker, 1, SaverDeps{Catalog: catalog, Metrics: metrics, Logger: quietLogger()})

	done := make(chan SaveResult, 1)
	s.OnResult(func(r SaveResult) { done <- r })

	rec := capturedRecord(3)
	p := s.Reserve(testMap, time.Now())
	rec.SetPath(p)
	rec.SetName(filepath.Base(p))
	s.Submit(rec.Detach(), "")

	select {
	case r := <-done:
		assert.Error(t, r.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("сохранение не завершилось")
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.saves.WithLabelValues("error")))
	entries, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaverReleasesDetachedRecord(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver(dir, 1, SaverDeps{Logger: quietLogger()})

	live := capturedRecord(5)
	p := s.Reserve("", time.Now())
	live.SetPath(p)
	live.SetName(filepath.Base(p))
	detached := live.Detach()
	assert.Zero(t, live.FrameCount(), "поток тиков сразу получает пустую запись")

	s.Submit(detached, "")
	require.NoError(t, s.Wait(context.Background()))
	assert.Zero(t, detached.FrameCount(), "после сохранения запись освобождена")

	rec := record.New("", p, false)
	require.NoError(t, tasfile.Load(context.Background(), rec))
	assert.Equal(t, 5, rec.FrameCount())
	assert.True(t, strings.HasPrefix(filepath.Base(p), "record_"), "пустое имя карты заменяется")
}
