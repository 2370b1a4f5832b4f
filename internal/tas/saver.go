package tas

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/annel0/tas-replay/internal/eventbus"
	"github.com/annel0/tas-replay/internal/logging"
	"github.com/annel0/tas-replay/internal/record"
	"github.com/annel0/tas-replay/internal/storage"
	"github.com/annel0/tas-replay/internal/tasfile"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// SaveResult итог сохранения одной записи
type SaveResult struct {
	SessionID string
	Name      string
	Path      string
	Frames    int
	Duration  time.Duration
	Err       error
}

// Saver сохраняет отданные ему записи в фоновых горутинах.
// Каждая горутина единолично владеет своей записью и освобождает её после записи файла.
type Saver struct {
	dir     string
	namer   *tasfile.Namer
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	catalog storage.CatalogRepo
	metrics *Metrics
	events  publisher
	logger  *logging.Logger

	mu       sync.Mutex
	onResult func(SaveResult)
}

// SaverDeps необязательные зависимости Saver
type SaverDeps struct {
	Catalog storage.CatalogRepo
	Metrics *Metrics
	Bus     eventbus.EventBus
	Logger  *logging.Logger
}

// NewSaver создаёт Saver, пишущий в dir не более maxParallel файлов одновременно
func NewSaver(dir string, maxParallel int64, deps SaverDeps) *Saver {
	if maxParallel < 1 {
		maxParallel = 1
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetStorageLogger()
	}
	return &Saver{
		dir:     dir,
		namer:   tasfile.NewNamer(),
		sem:     semaphore.NewWeighted(maxParallel),
		catalog: deps.Catalog,
		metrics: deps.Metrics,
		events:  publisher{bus: deps.Bus},
		logger:  deps.Logger,
	}
}

// OnResult задаёт обработчик результатов сохранения (вызывается в горутине сохранения)
func (s *Saver) OnResult(fn func(SaveResult)) {
	s.mu.Lock()
	s.onResult = fn
	s.mu.Unlock()
}

// Reserve выбирает свободный путь для новой записи карты mapName
func (s *Saver) Reserve(mapName string, t time.Time) string {
	return s.namer.Reserve(s.dir, mapName, t)
}

// Submit забирает запись и сохраняет её асинхронно. Вызывающая сторона
// больше не обращается к rec. Путь должен быть получен через Reserve.
func (s *Saver) Submit(rec *record.Record, sessionID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := s.save(rec, sessionID)

		s.mu.Lock()
		fn := s.onResult
		s.mu.Unlock()
		if fn != nil {
			fn(res)
		}
	}()
}

func (s *Saver) save(rec *record.Record, sessionID string) SaveResult {
	defer s.namer.Release(rec.Path())
	defer rec.Clear()

	res := SaveResult{
		SessionID: sessionID,
		Name:      rec.Name(),
		Path:      rec.Path(),
		Frames:    rec.FrameCount(),
	}
	ev := SessionEvent{
		SessionID: sessionID,
		Record:    rec.Name(),
		Path:      rec.Path(),
		Map:       rec.MapName(),
		Frames:    rec.FrameCount(),
		Degraded:  rec.HasFlag(record.FlagNonDeterministic),
		Legacy:    rec.IsLegacy(),
	}

	ctx, span := otel.Tracer("github.com/annel0/tas-replay/internal/tas").Start(context.Background(), "tas.save",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("tas.session", sessionID), attribute.String("tas.map", rec.MapName())))
	defer span.End()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		res.Err = err
		return res
	}
	defer s.sem.Release(1)

	start := time.Now()
	err := os.MkdirAll(filepath.Dir(rec.Path()), 0755)
	if err == nil {
		err = tasfile.Save(ctx, rec)
	}
	res.Duration = time.Since(start)
	res.Err = err
	s.metrics.SaveFinished(err, res.Duration)

	if err != nil {
		s.logger.Error("❌ Не удалось сохранить запись %s: %v", rec.Path(), err)
		ev.Error = err.Error()
		s.events.publish(EventRecordSaveFailed, ev)
		return res
	}

	s.logger.Info("💾 Запись %s сохранена: %d кадров за %v", rec.Name(), rec.FrameCount(), res.Duration)
	s.events.publish(EventRecordSaved, ev)

	if s.catalog != nil {
		entry := storage.RecordEntry{
			Name:      strings.TrimSuffix(rec.Name(), tasfile.Ext),
			Path:      rec.Path(),
			MapName:   rec.MapName(),
			Frames:    rec.FrameCount(),
			Sectors:   rec.SectorCount(),
			Flags:     uint32(rec.Flags()),
			Legacy:    rec.IsLegacy(),
			SessionID: sessionID,
			SavedAt:   time.Now().UTC(),
		}
		if fi, statErr := os.Stat(rec.Path()); statErr == nil {
			entry.Size = fi.Size()
		}
		if err := s.catalog.Put(ctx, entry); err != nil {
			s.logger.Warn("⚠️ Каталог записей не обновлён для %s: %v", entry.Name, err)
		}
	}
	return res
}

// Wait ждёт завершения всех начатых сохранений или отмены ctx
func (s *Saver) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
