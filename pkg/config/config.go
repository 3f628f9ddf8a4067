package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"FxCockpit/pkg/util"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// SessionConfig describes one recurring trading session in local wall-clock time.
type SessionConfig struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Start    string   `yaml:"start"` // HH:MM
	End      string   `yaml:"end"`   // HH:MM, may be earlier than start
	Holidays []string `yaml:"holidays"`
}

// AssetConfig is a correlated asset tracked against the instrument.
type AssetConfig struct {
	Name   string `yaml:"name"`
	Ticker string `yaml:"ticker"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Instrument struct {
		Symbol   string  `yaml:"symbol"`
		PipSize  float64 `yaml:"pip_size"`
		Timezone string  `yaml:"timezone"`
	} `yaml:"instrument"`
	Sessions  []SessionConfig `yaml:"sessions"`
	Assets    []AssetConfig   `yaml:"assets"`
	Analytics struct {
		LookbackWeeks     int     `yaml:"lookback_weeks" default:"4"`
		SessionRangeDays  int     `yaml:"session_range_days" default:"20"`
		CorrelationWindow int     `yaml:"correlation_window" default:"20"`
		BiasFast          int     `yaml:"bias_fast" default:"5"`
		BiasSlow          int     `yaml:"bias_slow" default:"20"`
		SwingWidth        int     `yaml:"swing_width" default:"3"`
		RoundStep         float64 `yaml:"round_step" default:"0.5"`
		RoundDistance     float64 `yaml:"round_distance" default:"1.0"`
		TouchTolerance    float64 `yaml:"touch_tolerance" default:"0.03"`
		DedupEpsilon      float64 `yaml:"dedup_epsilon" default:"0.05"`
		ScenarioDistance  float64 `yaml:"scenario_distance" default:"1.5"`
		HourlyBars        int     `yaml:"hourly_bars" default:"720"`
		DailyBars         int     `yaml:"daily_bars" default:"60"`
	} `yaml:"analytics"`
	Scheduler struct {
		Sessions        time.Duration `yaml:"sessions" default:"1m"`
		Alerts          time.Duration `yaml:"alerts" default:"1m"`
		Statistics      time.Duration `yaml:"statistics" default:"10m"`
		Correlations    time.Duration `yaml:"correlations" default:"10m"`
		KeyLevels       time.Duration `yaml:"keylevels" default:"10m"`
		Scenarios       time.Duration `yaml:"scenarios" default:"10m"`
		JobTimeout      time.Duration `yaml:"job_timeout" default:"30s"`
		NarrativeTimes  []string      `yaml:"narrative_times"`
		DistributedLock bool          `yaml:"distributed_lock"`
	} `yaml:"scheduler"`
	Database struct {
		Driver string `yaml:"driver" default:"sqlite"`
		DSN    string `yaml:"dsn" default:"fxcockpit.db"`
	} `yaml:"database"`
	Redis struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"6379"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		Prefix      string        `yaml:"prefix" default:"fxcockpit"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl" default:"30m"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		BarsTopic    string   `yaml:"bars_topic" default:"fxcockpit.bars"`
		EventsTopic  string   `yaml:"events_topic" default:"fxcockpit.events"`
		LogsTopic    string   `yaml:"logs_topic" default:"fxcockpit.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"fxcockpit"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fxcockpit"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Feed struct {
		WebSocketURL string        `yaml:"websocket_url"`
		APIKey       string        `yaml:"api_key"`
		Symbol       string        `yaml:"symbol"` // upstream ticker, e.g. OANDA:USD_JPY
		ReconnectMin time.Duration `yaml:"reconnect_min" default:"1s"`
		ReconnectMax time.Duration `yaml:"reconnect_max" default:"1m"`
		PingInterval time.Duration `yaml:"ping_interval" default:"20s"`
	} `yaml:"feed"`
	AssetQuotes struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
		Days    int           `yaml:"days" default:"45"`
	} `yaml:"asset_quotes"`
	Narrative struct {
		Provider      string        `yaml:"provider" default:"gemini"`
		GeminiModel   string        `yaml:"gemini_model" default:"gemini-2.5-flash"`
		ClaudeModel   string        `yaml:"claude_model" default:"claude-sonnet-4-5"`
		ClaudeURL     string        `yaml:"claude_url" default:"https://api.anthropic.com/v1/messages"`
		GeminiAPIKey  string        `yaml:"gemini_api_key"`
		ClaudeAPIKey  string        `yaml:"claude_api_key"`
		Timeout       time.Duration `yaml:"timeout" default:"30s"`
		MaxTokens     int           `yaml:"max_tokens" default:"1000"`
		Temperature   float64       `yaml:"temperature" default:"0.7"`
		RatePerMinute float64       `yaml:"rate_per_minute" default:"2"`
	} `yaml:"narrative"`
}

// envOverrides carries secrets and deployment switches read from the environment.
type envOverrides struct {
	Environment        string   `envconfig:"ENVIRONMENT"`
	NarrativeProvider  string   `envconfig:"NARRATIVE_PROVIDER"`
	GeminiAPIKey       string   `envconfig:"GEMINI_API_KEY"`
	ClaudeAPIKey       string   `envconfig:"CLAUDE_API_KEY"`
	DatabaseDSN        string   `envconfig:"DATABASE_DSN"`
	RedisPassword      string   `envconfig:"REDIS_PASSWORD"`
	ClickHousePassword string   `envconfig:"CLICKHOUSE_PASSWORD"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	FeedAPIKey         string   `envconfig:"FEED_API_KEY"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies defaults, decodes YAML and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	var env envOverrides
	if err := envconfig.Process("FXC", &env); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	c.applyEnv(env)

	return c, nil
}

func (c *Config) applyEnv(env envOverrides) {
	if env.Environment != "" {
		c.Environment = env.Environment
	}
	if env.NarrativeProvider != "" {
		c.Narrative.Provider = strings.ToLower(env.NarrativeProvider)
	}
	if env.GeminiAPIKey != "" {
		c.Narrative.GeminiAPIKey = env.GeminiAPIKey
	}
	if env.ClaudeAPIKey != "" {
		c.Narrative.ClaudeAPIKey = env.ClaudeAPIKey
	}
	if env.DatabaseDSN != "" {
		c.Database.DSN = env.DatabaseDSN
	}
	if env.RedisPassword != "" {
		c.Redis.Password = env.RedisPassword
	}
	if env.ClickHousePassword != "" {
		c.ClickHouse.Password = env.ClickHousePassword
	}
	if len(env.KafkaBrokers) > 0 {
		c.Kafka.Brokers = env.KafkaBrokers
	}
	if env.FeedAPIKey != "" {
		c.Feed.APIKey = env.FeedAPIKey
	}
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Location resolves the instrument timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Instrument.Timezone)
}

// Validate checks the instrument and session calendar. Any error here is fatal.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Instrument.Symbol == "" {
		return fmt.Errorf("instrument.symbol is required")
	}
	if c.Instrument.PipSize <= 0 {
		return fmt.Errorf("instrument.pip_size must be positive")
	}
	if c.Instrument.Timezone == "" {
		return fmt.Errorf("instrument.timezone is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("instrument.timezone: %w", err)
	}
	if len(c.Sessions) == 0 {
		return fmt.Errorf("sessions cannot be empty")
	}
	seen := make(map[string]struct{}, len(c.Sessions))
	for i, s := range c.Sessions {
		if s.ID == "" {
			return fmt.Errorf("sessions[%d].id is required", i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("sessions[%d].id %q is duplicated", i, s.ID)
		}
		seen[s.ID] = struct{}{}
		start, err := util.ParseClock(s.Start)
		if err != nil {
			return fmt.Errorf("sessions[%d].start: %w", i, err)
		}
		end, err := util.ParseClock(s.End)
		if err != nil {
			return fmt.Errorf("sessions[%d].end: %w", i, err)
		}
		if start == end {
			return fmt.Errorf("sessions[%d] %q has an empty window", i, s.ID)
		}
		for _, d := range s.Holidays {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("sessions[%d].holidays: %w", i, err)
			}
		}
	}
	for _, t := range c.Scheduler.NarrativeTimes {
		if _, err := util.ParseClock(t); err != nil {
			return fmt.Errorf("scheduler.narrative_times: %w", err)
		}
	}
	return nil
}

// ValidateNarrative checks the narrative provider and its API key.
func (c *Config) ValidateNarrative() error {
	switch c.Narrative.Provider {
	case "gemini":
		if c.Narrative.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not configured")
		}
	case "claude":
		if c.Narrative.ClaudeAPIKey == "" {
			return fmt.Errorf("CLAUDE_API_KEY is not configured")
		}
	default:
		return fmt.Errorf("narrative.provider must be 'gemini' or 'claude', got '%s'", c.Narrative.Provider)
	}
	return nil
}
