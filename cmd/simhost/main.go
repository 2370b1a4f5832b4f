// simhost демонстрация на симулированном хосте: запись прохождения,
// сохранение, воспроизведение на хосте с другими генераторами и сравнение результата.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/tas-replay/internal/config"
	"github.com/annel0/tas-replay/internal/eventbus"
	"github.com/annel0/tas-replay/internal/hook"
	"github.com/annel0/tas-replay/internal/host/simhost"
	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/logging"
	"github.com/annel0/tas-replay/internal/observability"
	"github.com/annel0/tas-replay/internal/storage"
	"github.com/annel0/tas-replay/internal/tas"
	"github.com/annel0/tas-replay/internal/tasfile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const mapFile = `3D Entities\Level\Level_01.NMO`

func main() {
	var (
		configPath = flag.String("config", "", "Путь к config.yml (по умолчанию TAS_CONFIG)")
		ticks      = flag.Int("ticks", 600, "Сколько тиков записывать")
		seed       = flag.Int64("seed", 1, "Сид хоста записи; хост воспроизведения получает seed+1")
		build      = flag.Uint("build", uint(simhost.BuildOffsets), "Сборка физического движка хоста")
		serve      = flag.Bool("serve", false, "Не завершаться после сравнения (для /metrics)")
		logLevel   = flag.String("log-level", "info", "Уровень консольного вывода компонентов: trace, debug, info, warn, error")
	)
	flag.Parse()

	if err := logging.InitDefaultLogger("simhost"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	level, ok := logging.ParseLevel(*logLevel)
	if !ok {
		log.Fatalf("❌ Неизвестный уровень логирования %q", *logLevel)
	}
	logging.GetLoggerManager().SetAllLevels(level, logging.TRACE)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("⚠️ Телеметрия не запущена: %v", err)
	} else {
		defer shutdownTelemetry(context.Background())
	}

	// === МЕТРИКИ ===
	metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.GetPort())
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsAddr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	metrics := tas.NewMetrics(nil)

	// === ШИНА СОБЫТИЙ ===
	bus := eventbus.NewMemoryBus(1024)
	defer bus.Close()
	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("⚠️ LoggingListener не запущен: %v", err)
	}
	exporter := eventbus.NewMetricsExporter(bus, nil)
	exporter.Start(time.Second)
	defer exporter.Stop()

	if cfg.EventBus.URL != "" {
		js, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, time.Duration(cfg.EventBus.Retention)*time.Hour)
		if err != nil {
			logging.Warn("⚠️ JetStream недоступен, события остаются локальными: %v", err)
		} else {
			defer js.Close()
			if _, err := eventbus.Forward(ctx, bus, js, eventbus.Filter{Sources: []string{tas.EventSource}}, 5*time.Second); err != nil {
				logging.Warn("⚠️ Пересылка в JetStream не запущена: %v", err)
			} else {
				logging.Info("📨 События TAS пересылаются в JetStream %s", cfg.EventBus.URL)
			}
		}
	}

	// === КАТАЛОГ ===
	catalog, err := storage.NewBadgerCatalog(cfg.Storage.GetCatalogDir())
	if err != nil {
		logging.Warn("⚠️ Каталог badger недоступен, используется каталог в памяти: %v", err)
		catalog = nil
	}
	var repo storage.CatalogRepo = storage.NewMemoryCatalog()
	if catalog != nil {
		repo = catalog
	}
	defer repo.Close()

	opts, err := tas.OptionsFromConfig(cfg.TAS)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	opts.Enabled = true

	logger := logging.GetTASLogger()
	saver := tas.NewSaver(opts.RecordsDir, int64(cfg.TAS.GetMaxParallelSaves()), tas.SaverDeps{
		Catalog: repo,
		Metrics: metrics,
		Bus:     bus,
		Logger:  logging.GetStorageLogger(),
	})
	library := tas.NewLibrary(opts.RecordsDir, opts.Legacy, repo, metrics, logging.GetStorageLogger())
	if err := library.Watch(ctx, 200*time.Millisecond, func(entries []tas.LibraryEntry) {
		logging.Debug("Каталог записей изменился: %d записей", len(entries))
	}); err != nil {
		logging.Warn("⚠️ Наблюдение за каталогом записей не запущено: %v", err)
	}

	deps := tas.Deps{
		Registry: hook.Default(),
		Saver:    saver,
		Library:  library,
		Metrics:  metrics,
		Bus:      bus,
		Logger:   logger,
	}

	hostOpts := simhost.DefaultOptions(*seed)
	hostOpts.Build = uint32(*build)
	hostLog := logging.GetHostLogger()
	hostLog.Info("🎮 Запись %d тиков: сид %d, сборка 0x%06x", *ticks, hostOpts.Seed, hostOpts.Build)

	want, name, err := recordRun(ctx, hostOpts, opts, deps, *ticks)
	if err != nil {
		log.Fatalf("❌ Запись не удалась: %v", err)
	}

	hostOpts.Seed = *seed + 1
	hostLog.Info("🎮 Воспроизведение %s на хосте с сидом %d", name, hostOpts.Seed)
	got, err := replayRun(ctx, hostOpts, opts, deps, name, *ticks)
	if err != nil {
		log.Fatalf("❌ Воспроизведение не удалось: %v", err)
	}

	match := want == got
	if match {
		logging.Info("✅ Воспроизведение совпало: позиция %v, шагов физики %d", got.Position, got.Steps)
	} else {
		logging.Error("❌ Воспроизведение расходится: ожидалось %+v, получено %+v", want, got)
	}

	components := logging.GetLoggerManager().ListComponents()
	logging.Debug("Логи компонентов: %s", strings.Join(components, ", "))

	if *serve {
		logging.Info("⏳ Ожидание сигнала завершения...")
		<-ctx.Done()
	}
	if !match {
		os.Exit(1)
	}
}

// demoScript «игрок»: фазы по 30 тиков и прыжок раз в 45 тиков
func demoScript(tick int) input.KeyState {
	var k input.KeyState
	switch (tick / 30) % 4 {
	case 0:
		k = input.Up
	case 1:
		k = input.Up | input.Right
	case 2:
		k = input.Left
	case 3:
		k = input.Down | input.Shift
	}
	if tick%45 == 0 {
		k |= input.Space
	}
	return k
}

func recordRun(ctx context.Context, hostOpts simhost.Options, opts tas.Options, deps tas.Deps, ticks int) (simhost.Ball, string, error) {
	h := simhost.New(hostOpts)
	h.SetScript(demoScript)

	opts.Record = true
	opts.AutoLoadTAS = ""
	ctrl := tas.NewController(h, opts, deps)
	h.SetListener(ctrl)
	if err := ctrl.Enable(); err != nil {
		return simhost.Ball{}, "", err
	}

	saved := make(chan tas.SaveResult, 1)
	deps.Saver.OnResult(func(r tas.SaveResult) {
		select {
		case saved <- r:
		default:
		}
	})
	defer deps.Saver.OnResult(nil)

	h.LoadLevel(mapFile)
	h.StartLevel()
	if err := h.Run(ticks); err != nil {
		return simhost.Ball{}, "", err
	}
	ball := h.Ball()
	h.ExitLevel()

	if err := ctrl.Close(ctx); err != nil {
		return simhost.Ball{}, "", err
	}
	select {
	case r := <-saved:
		if r.Err != nil {
			return simhost.Ball{}, "", r.Err
		}
		logging.Info("💾 Записано %d кадров в %s", r.Frames, r.Path)
		return ball, strings.TrimSuffix(filepath.Base(r.Path), tasfile.Ext), nil
	case <-ctx.Done():
		return simhost.Ball{}, "", ctx.Err()
	}
}

func replayRun(ctx context.Context, hostOpts simhost.Options, opts tas.Options, deps tas.Deps, name string, ticks int) (simhost.Ball, error) {
	h := simhost.New(hostOpts)

	opts.Record = false
	ctrl := tas.NewController(h, opts, deps)
	h.SetListener(ctrl)
	if err := ctrl.Enable(); err != nil {
		return simhost.Ball{}, err
	}
	defer ctrl.Close(ctx)

	if err := ctrl.LoadRecord(ctx, name); err != nil {
		return simhost.Ball{}, err
	}

	h.LoadLevel(mapFile)
	h.StartLevel()
	if err := h.Run(ticks); err != nil {
		return simhost.Ball{}, err
	}
	return h.Ball(), nil
}
