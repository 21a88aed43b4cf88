package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emperorhan/priority-fee-monitor/internal/classifier"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	ForecasterBaseline = "baseline"
	ForecasterSidecar  = "sidecar"
)

type Config struct {
	Chain    ChainConfig
	Monitor  MonitorConfig
	Alert    AlertConfig
	DB       DBConfig
	Redis    RedisConfig
	Forecast ForecastConfig
	Server   ServerConfig
	Log      LogConfig
	Tracing  TracingConfig
	// ProtocolsFile overrides the built-in protocol table when set.
	ProtocolsFile string
}

type ChainConfig struct {
	RPCURL string
	// ChainID zero means detect with eth_chainId.
	ChainID      int64
	PollInterval time.Duration
	RPCRPS       float64
	RPCBurst     int
	StartBlock   int64
}

type MonitorConfig struct {
	RetentionBlocks        int64
	MinForecastCapacity    int64
	WinStreakLimit         int
	SweepIntervalBlocks    int64
	ObserveAllTransactions bool
	CriticalEnabled        bool
	HighEnabled            bool
	MediumEnabled          bool
	LowEnabled             bool
}

type AlertConfig struct {
	SlackWebhookURL string
	WebhookURL      string
	KafkaBrokers    []string
	KafkaTopic      string
	Cooldown        time.Duration
}

type DBConfig struct {
	Backend         string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

type ForecastConfig struct {
	// Store is where forecasts live; defaults to DB.Backend.
	Store        string
	Backend      string
	SidecarAddr  string
	Timeout      time.Duration
	HorizonHours int
	CacheSize    int
}

type ServerConfig struct {
	HealthPort int
	AdminPort  int
	AdminRPS   float64
}

type LogConfig struct {
	Level string
	Debug bool
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Chain: ChainConfig{
			RPCURL:       getEnv("RPC_URL", "http://localhost:8545"),
			ChainID:      getEnvInt64("CHAIN_ID", 0),
			PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)) * time.Millisecond,
			RPCRPS:       getEnvFloat("RPC_RPS", 10),
			RPCBurst:     getEnvInt("RPC_BURST", 20),
			StartBlock:   getEnvInt64("START_BLOCK", 0),
		},
		Monitor: MonitorConfig{
			RetentionBlocks:        getEnvInt64("RETENTION_BLOCKS", 6300*7),
			MinForecastCapacity:    getEnvInt64("MIN_FORECAST_CAPACITY", 6300*3),
			WinStreakLimit:         getEnvInt("WIN_STREAK_LIMIT", 20),
			SweepIntervalBlocks:    getEnvInt64("SWEEP_INTERVAL_BLOCKS", 1000),
			ObserveAllTransactions: getEnvBool("OBSERVE_ALL_TRANSACTIONS", true),
			CriticalEnabled:        getEnvBool("ALERT_CRITICAL_ENABLED", true),
			HighEnabled:            getEnvBool("ALERT_HIGH_ENABLED", true),
			MediumEnabled:          getEnvBool("ALERT_MEDIUM_ENABLED", true),
			LowEnabled:             getEnvBool("ALERT_LOW_ENABLED", true),
		},
		Alert: AlertConfig{
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			WebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
			KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
			KafkaTopic:      getEnv("KAFKA_TOPIC", "priority-fee-findings"),
			Cooldown:        time.Duration(getEnvInt("ALERT_COOLDOWN_SEC", 0)) * time.Second,
		},
		DB: DBConfig{
			Backend:         strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
			URL:             getEnv("DB_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
			MigrationsDir:   getEnv("DB_MIGRATIONS_DIR", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Forecast: ForecastConfig{
			Backend:      strings.ToLower(getEnv("FORECAST_BACKEND", ForecasterBaseline)),
			SidecarAddr:  getEnv("FORECAST_SIDECAR_ADDR", ""),
			Timeout:      time.Duration(getEnvInt("FORECAST_TIMEOUT_SEC", 60)) * time.Second,
			HorizonHours: getEnvInt("FORECAST_HORIZON_HOURS", 24),
			CacheSize:    getEnvInt("FORECAST_CACHE_SIZE", 1024),
		},
		Server: ServerConfig{
			HealthPort: getEnvInt("HEALTH_PORT", 8080),
			AdminPort:  getEnvInt("ADMIN_PORT", 8081),
			AdminRPS:   getEnvFloat("ADMIN_RPS", 5),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Debug: getEnvBool("DEBUG_LOGS", false),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", "localhost:4317"),
			Insecure:    getEnvBool("TRACING_INSECURE", true),
			SampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1),
		},
		ProtocolsFile: getEnv("PROTOCOLS_FILE", ""),
	}
	cfg.Forecast.Store = strings.ToLower(getEnv("FORECAST_STORE", cfg.DB.Backend))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.Monitor.RetentionBlocks <= 0 {
		return fmt.Errorf("RETENTION_BLOCKS must be positive, got %d", c.Monitor.RetentionBlocks)
	}
	if c.Monitor.MinForecastCapacity >= c.Monitor.RetentionBlocks {
		return fmt.Errorf("MIN_FORECAST_CAPACITY (%d) must be below RETENTION_BLOCKS (%d)",
			c.Monitor.MinForecastCapacity, c.Monitor.RetentionBlocks)
	}
	if c.Monitor.WinStreakLimit <= 0 {
		return fmt.Errorf("WIN_STREAK_LIMIT must be positive, got %d", c.Monitor.WinStreakLimit)
	}

	switch c.DB.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("DB_URL is required for STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.DB.Backend)
	}

	switch c.Forecast.Store {
	case BackendMemory:
		if c.DB.Backend != BackendMemory {
			return fmt.Errorf("FORECAST_STORE=memory requires STORE_BACKEND=memory")
		}
	case BackendPostgres:
		if c.DB.Backend != BackendPostgres {
			return fmt.Errorf("FORECAST_STORE=postgres requires STORE_BACKEND=postgres")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for FORECAST_STORE=redis")
		}
	default:
		return fmt.Errorf("unsupported FORECAST_STORE %q", c.Forecast.Store)
	}

	switch c.Forecast.Backend {
	case ForecasterBaseline:
	case ForecasterSidecar:
		if c.Forecast.SidecarAddr == "" {
			return fmt.Errorf("FORECAST_SIDECAR_ADDR is required for FORECAST_BACKEND=sidecar")
		}
	default:
		return fmt.Errorf("unsupported FORECAST_BACKEND %q", c.Forecast.Backend)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Policy returns the per-severity switches.
func (c *Config) Policy() classifier.Policy {
	return classifier.Policy{
		Critical: c.Monitor.CriticalEnabled,
		High:     c.Monitor.HighEnabled,
		Medium:   c.Monitor.MediumEnabled,
		Low:      c.Monitor.LowEnabled,
	}
}

// SlogLevel is the configured log level; DEBUG_LOGS forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Log.Debug {
		return slog.LevelDebug
	}
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported LOG_LEVEL %q", s)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
