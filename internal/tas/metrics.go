package tas

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики сессий TAS. Методы безопасны для nil.
type Metrics struct {
	framesRecorded prometheus.Counter
	framesPlayed   prometheus.Counter
	sessions       *prometheus.CounterVec
	saves          *prometheus.CounterVec
	saveDuration   prometheus.Histogram
	loadFailures   *prometheus.CounterVec
	degraded       prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil: глобальный регистр)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		framesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tas",
			Name:      "frames_recorded_total",
			Help:      "Кадров записано.",
		}),
		framesPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tas",
			Name:      "frames_played_total",
			Help:      "Кадров подставлено при воспроизведении.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tas",
			Name:      "sessions_total",
			Help:      "Начатых сессий по режиму (record/play).",
		}, []string{"mode"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tas",
			Name:      "saves_total",
			Help:      "Сохранений записей по результату (ok/error).",
		}, []string{"result"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tas",
			Name:      "save_duration_seconds",
			Help:      "Длительность сохранения записи.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tas",
			Name:      "load_failures_total",
			Help:      "Неудачных загрузок записей по причине.",
		}, []string{"reason"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tas",
			Name:      "normalizer_degraded_total",
			Help:      "Записей, сделанных без нормализатора случайности.",
		}),
	}
	reg.MustRegister(m.framesRecorded, m.framesPlayed, m.sessions, m.saves, m.saveDuration, m.loadFailures, m.degraded)
	return m
}

func (m *Metrics) FrameRecorded() {
	if m != nil {
		m.framesRecorded.Inc()
	}
}

func (m *Metrics) FramePlayed() {
	if m != nil {
		m.framesPlayed.Inc()
	}
}

func (m *Metrics) SessionStarted(mode string) {
	if m != nil {
		m.sessions.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) SaveFinished(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
	m.saveDuration.Observe(d.Seconds())
}

func (m *Metrics) LoadFailed(reason string) {
	if m != nil {
		m.loadFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) DegradedRecord() {
	if m != nil {
		m.degraded.Inc()
	}
}
