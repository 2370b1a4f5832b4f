package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/tas-replay/internal/config"
	"github.com/annel0/tas-replay/internal/eventbus"
	"github.com/annel0/tas-replay/internal/tas"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		configPath = flag.String("config", "", "Путь к config.yml (по умолчанию TAS_CONFIG)")
		url        = flag.String("url", "", "NATS URL (по умолчанию eventbus.url из конфигурации)")
		stream     = flag.String("stream", "", "Имя стрима JetStream")
		command    = flag.String("cmd", "tail", "Command: tail, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		since      = flag.String("since", "1h", "Time duration since now (e.g., 1h, 30m)")
		until      = flag.String("until", "", "End time (RFC3339 format)")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		idle       = flag.Duration("idle", 2*time.Second, "Завершиться, если новых событий нет столько времени")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if *url == "" {
		*url = cfg.EventBus.URL
	}
	if *url == "" {
		*url = "nats://127.0.0.1:4222"
	}
	if *stream == "" {
		*stream = cfg.EventBus.Stream
	}

	opts, err := buildOptions(*eventTypes, *since, *until, *limit, *follow, *idle, time.Now())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	bus, err := eventbus.NewJetStreamBus(*url, *stream, time.Duration(cfg.EventBus.Retention)*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to JetStream: %v", err)
	}
	defer bus.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *command {
	case "tail":
		fmt.Printf("🎬 Tailing TAS events (limit: %d, follow: %v)\n", opts.Limit, opts.Follow)
		n, err := runCollect(ctx, bus, opts, func(ev *eventbus.Envelope) { printEvent(os.Stdout, ev) })
		if err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}
		fmt.Printf("\n📊 Total events: %d\n", n)

	case "stats":
		fmt.Println("📊 TAS event statistics")
		stats := newEventStats()
		if _, err := runCollect(ctx, bus, opts, stats.add); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}
		stats.print(os.Stdout)

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
}

func runCollect(ctx context.Context, bus eventbus.EventBus, opts collectOptions, fn func(*eventbus.Envelope)) (int, error) {
	c, err := newCollector(ctx, bus, opts)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	return c.Run(fn), nil
}

// buildOptions разбирает флаги окна и фильтра
func buildOptions(types, since, until string, limit int, follow bool, idle time.Duration, now time.Time) (collectOptions, error) {
	opts := collectOptions{
		Filter: eventbus.Filter{Types: parseStringList(types), Sources: []string{tas.EventSource}},
		Limit:  limit,
		Follow: follow,
		Idle:   idle,
	}

	end := now
	if until != "" {
		var err error
		end, err = time.Parse(timeFormat, until)
		if err != nil {
			return opts, fmt.Errorf("invalid until time: %v", err)
		}
		opts.Until = end
	}

	start, err := parseSinceTime(since, end)
	if err != nil {
		return opts, fmt.Errorf("invalid since time: %v", err)
	}
	if since != "" {
		opts.Since = start
	}
	return opts, nil
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseSinceTime парсит относительное время типа "1h", "30m"
func parseSinceTime(since string, from time.Time) (time.Time, error) {
	if since == "" {
		return from, nil
	}

	duration, err := time.ParseDuration(since)
	if err != nil {
		// Пробуем парсить как абсолютное время
		return time.Parse(timeFormat, since)
	}

	return from.Add(-duration), nil
}
