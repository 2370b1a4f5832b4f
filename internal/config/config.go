package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации.
// Пустые поля заполняются из переменных окружения, затем значениями по умолчанию.
type Config struct {
	TAS       TASConfig       `yaml:"tas"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type TASConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Record     bool   `yaml:"record"`
	LegacyMode bool   `yaml:"legacy_mode"`
	RecordsDir string `yaml:"records_dir"`
	StopKey    string `yaml:"stop_key"`
	ExitKey    string `yaml:"exit_key"`
	// SkipRenderUntil пропускать отрисовку, пока курсор воспроизведения меньше значения
	SkipRenderUntil int  `yaml:"skip_render_until"`
	ExitOnDead      bool `yaml:"exit_on_dead"`
	ExitOnFinish    bool `yaml:"exit_on_finish"`
	// AutoLoadTAS имя записи (без .tas), загружаемой при первом входе в меню
	AutoLoadTAS   string `yaml:"auto_load_tas"`
	AutoLoadLevel int    `yaml:"auto_load_level"`
	// CaptureReplayedInput записывать подставленные при воспроизведении значения,
	// а не физически прочитанные
	CaptureReplayedInput bool `yaml:"capture_replayed_input"`
	// Compression "zlib" (по умолчанию) или "zstd"
	Compression string `yaml:"compression"`
	// MaxParallelSaves сколько записей может сохраняться одновременно
	MaxParallelSaves int `yaml:"max_parallel_saves"`
}

type StorageConfig struct {
	CatalogDir string `yaml:"catalog_dir"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type MetricsConfig struct {
	Port int `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// GetRecordsDir возвращает каталог записей с поддержкой fallback значений
func (t *TASConfig) GetRecordsDir() string {
	return getStringWithEnvFallback(t.RecordsDir, "TAS_RECORDS_DIR", "tas")
}

// GetStopKey возвращает клавишу остановки воспроизведения
func (t *TASConfig) GetStopKey() string {
	return getStringWithEnvFallback(t.StopKey, "TAS_STOP_KEY", "f3")
}

// GetExitKey возвращает клавишу быстрого выхода
func (t *TASConfig) GetExitKey() string {
	return getStringWithEnvFallback(t.ExitKey, "TAS_EXIT_KEY", "delete")
}

// GetCompression возвращает алгоритм сжатия новых записей
func (t *TASConfig) GetCompression() string {
	return strings.ToLower(getStringWithEnvFallback(t.Compression, "TAS_COMPRESSION", "zlib"))
}

// GetMaxParallelSaves возвращает ограничение параллельных сохранений
func (t *TASConfig) GetMaxParallelSaves() int {
	return getIntWithEnvFallback(t.MaxParallelSaves, "TAS_MAX_PARALLEL_SAVES", 2)
}

// GetCatalogDir возвращает каталог индекса записей (badger)
func (s *StorageConfig) GetCatalogDir() string {
	return getStringWithEnvFallback(s.CatalogDir, "TAS_CATALOG_DIR", "tas/.catalog")
}

// GetPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (m *MetricsConfig) GetPort() int {
	return getIntWithEnvFallback(m.Port, "TAS_METRICS_PORT", 2112)
}

// GetServiceName возвращает имя сервиса для трассировки
func (t *TelemetryConfig) GetServiceName() string {
	return getStringWithEnvFallback(t.ServiceName, "TAS_SERVICE_NAME", "tas-replay")
}

// Validate проверяет значения, которые нельзя исправить fallback'ом
func (c *Config) Validate() error {
	switch c.TAS.GetCompression() {
	case "zlib", "zstd":
	default:
		return fmt.Errorf("tas.compression: неизвестный алгоритм %q", c.TAS.Compression)
	}
	if c.TAS.SkipRenderUntil < 0 {
		return fmt.Errorf("tas.skip_render_until: отрицательное значение %d", c.TAS.SkipRenderUntil)
	}
	if c.TAS.AutoLoadLevel < 0 || c.TAS.AutoLoadLevel > 13 {
		return fmt.Errorf("tas.auto_load_level: ожидается 0..13, получено %d", c.TAS.AutoLoadLevel)
	}
	return nil
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	// Используем дефолтное значение
	return defaultValue
}

// getStringWithEnvFallback возвращает строку с приоритетом: config -> env -> default
func getStringWithEnvFallback(configValue, envVar, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Default возвращает конфигурацию по умолчанию (TAS включён, запись выключена)
func Default() *Config {
	return &Config{TAS: TASConfig{Enabled: true}}
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV TAS_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TAS_CONFIG")
		if path == "" {
			return Default(), nil // конфиг не задан: использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
