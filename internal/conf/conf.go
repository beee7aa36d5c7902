package conf

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/extract"
)

// Config represents application configuration.
// Priority: ENV > YAML (CONFIG_PATH) > env-default tags.
type Config struct {
	Feishu   FeishuConfig   `yaml:"feishu"`
	Keepa    KeepaConfig    `yaml:"keepa"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Bot      BotConfig      `yaml:"bot"`
	Bundle   BundleConfig   `yaml:"bundle"`
	Sheet    SheetConfig    `yaml:"sheet"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Report   ReportConfig   `yaml:"report"`
	Redis    RedisConfig    `yaml:"redis"`
	API      APIConfig      `yaml:"api"`
	Log      LogConfig      `yaml:"log"`
	Files    FilesConfig    `yaml:"files"`

	Debug bool `yaml:"debug" env:"DEBUG" env-default:"false"`

	// Derived at load time
	Persona  domain.Persona     `yaml:"-" env:"-"`
	Channels extract.ChannelMap `yaml:"-" env:"-"`
	Location *time.Location     `yaml:"-" env:"-"`
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string `yaml:"app_id" env:"FEISHU_APP_ID"`
	AppSecret string `yaml:"app_secret" env:"FEISHU_APP_SECRET"`
}

// KeepaConfig contains pricing lookup configuration
type KeepaConfig struct {
	APIKey  string        `yaml:"api_key" env:"KEEPA_API_KEY"`
	Domain  int           `yaml:"domain" env:"KEEPA_DOMAIN" env-default:"5"`
	Timeout time.Duration `yaml:"timeout" env:"KEEPA_TIMEOUT" env-default:"15s"`
}

// OpenAIConfig contains chat completion configuration
type OpenAIConfig struct {
	APIKey      string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL     string `yaml:"base_url" env:"OPENAI_BASE_URL"`
	Model       string `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	ReportModel string `yaml:"report_model" env:"NAGISA_MODEL_DAILY" env-default:"gpt-4o"`
}

// BotConfig contains the bot identity and trigger words
type BotConfig struct {
	Name         string   `yaml:"name" env:"BOT_NAME" env-default:"ナギサ"`
	OwnerIDs     []string `yaml:"owner_ids" env:"NAGISA_OWNER_IDS" env-separator:","`
	CallNames    []string `yaml:"call_names" env:"BOT_CALL_NAMES" env-separator:"," env-default:"ナギサ"`
	CallPrefixes []string `yaml:"call_prefixes" env:"BOT_CALL_PREFIXES" env-separator:"," env-default:"nagisa:"`
}

// BundleConfig contains message bundling timings
type BundleConfig struct {
	Inactivity   time.Duration `yaml:"inactivity" env:"BUNDLE_INACTIVITY" env-default:"20s"`
	MaxWindow    time.Duration `yaml:"max_window" env:"BUNDLE_MAX_WINDOW" env-default:"120s"`
	PollInterval time.Duration `yaml:"poll_interval" env:"BUNDLE_POLL_INTERVAL" env-default:"1s"`
}

// Sheet backends
const (
	SheetBackendGoogle   = "google"
	SheetBackendSQLite   = "sqlite"
	SheetBackendPostgres = "postgres"
)

// SheetConfig contains product sheet configuration
type SheetConfig struct {
	Backend       string        `yaml:"backend" env:"SHEET_BACKEND" env-default:"sqlite"`
	Disabled      bool          `yaml:"disabled" env:"NAGISA_DISABLE_SHEETS" env-default:"false"`
	AppendTimeout time.Duration `yaml:"append_timeout" env:"SHEET_APPEND_TIMEOUT" env-default:"12s"`

	GoogleCredentials string `yaml:"google_credentials" env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleSheetID     string `yaml:"google_sheet_id" env:"GOOGLE_SHEET_ID"`
	Worksheet         string `yaml:"worksheet" env:"SHEET_WORKSHEET" env-default:"products"`

	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"data/products.db"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
}

// ScheduleConfig contains daily job times
type ScheduleConfig struct {
	Timezone   string `yaml:"timezone" env:"APP_TIMEZONE" env-default:"Asia/Tokyo"`
	DigestTime string `yaml:"digest_time" env:"DIGEST_TIME" env-default:"08:30"`
	ReportTime string `yaml:"report_time" env:"REPORT_TIME" env-default:"08:35"`
}

// ReportConfig contains digest and report targeting
type ReportConfig struct {
	DigestChatID   string   `yaml:"digest_chat_id" env:"DIGEST_CHANNEL_ID"`
	DigestChatName string   `yaml:"digest_chat_name" env:"DIGEST_CHANNEL_NAME" env-default:"bot-log"`
	ReportChatID   string   `yaml:"report_chat_id" env:"REPORT_CHANNEL_ID"`
	SummaryChats   []string `yaml:"summary_chats" env:"SUMMARY_CHANNELS" env-separator:","`
	FallbackAll    bool     `yaml:"fallback_all" env:"REPORT_FALLBACK_ALL" env-default:"false"`
	Debug          bool     `yaml:"debug" env:"REPORT_DEBUG" env-default:"false"`
	Window         string   `yaml:"window" env:"REPORT_WINDOW" env-default:"yesterday"`
}

// RedisConfig enables cross-restart event de-duplication when URL is set
type RedisConfig struct {
	URL string        `yaml:"url" env:"REDIS_URL"`
	TTL time.Duration `yaml:"ttl" env:"DEDUP_TTL" env-default:"5m"`
}

// APIConfig contains the admin HTTP API configuration
type APIConfig struct {
	Addr string `yaml:"addr" env:"API_ADDR" env-default:":8080"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	JSON  bool   `yaml:"json" env:"LOG_JSON" env-default:"false"`
}

// FilesConfig points at the auxiliary config files
type FilesConfig struct {
	Persona     string `yaml:"persona" env:"PERSONA_CONFIG_PATH"`
	SalonMemory string `yaml:"salon_memory" env:"SALON_MEMORY_PATH" env-default:"configs/salon_memory.md"`
	ChannelMap  string `yaml:"channel_map" env:"CHANNEL_MAP_PATH" env-default:"configs/channel_map.yaml"`
}

// Load reads .env, then the optional YAML file named by CONFIG_PATH, then
// the environment, and resolves the derived persona, channel map and zone.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve() error {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return &ConfigError{Field: "APP_TIMEZONE", Message: err.Error()}
	}
	c.Location = loc

	persona, err := LoadPersona(c.Files.Persona, c.Files.SalonMemory, c.Bot.Name)
	if err != nil {
		return fmt.Errorf("config: persona: %w", err)
	}
	c.Persona = persona

	channels, err := LoadChannelMap(c.Files.ChannelMap)
	if err != nil {
		return fmt.Errorf("config: channel map: %w", err)
	}
	c.Channels = channels
	return nil
}

// Validate checks what the chat bridge cannot run without
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.Bundle.Inactivity <= 0 || c.Bundle.MaxWindow <= 0 || c.Bundle.PollInterval <= 0 {
		return &ConfigError{Field: "BUNDLE_*", Message: "durations must be positive"}
	}
	switch c.Sheet.Backend {
	case SheetBackendGoogle:
		if !c.Sheet.Disabled && (c.Sheet.GoogleCredentials == "" || c.Sheet.GoogleSheetID == "") {
			return &ConfigError{Field: "GOOGLE_SERVICE_ACCOUNT_JSON/GOOGLE_SHEET_ID", Message: "required for google backend"}
		}
	case SheetBackendPostgres:
		if !c.Sheet.Disabled && c.Sheet.DatabaseURL == "" {
			return &ConfigError{Field: "DATABASE_URL", Message: "required for postgres backend"}
		}
	case SheetBackendSQLite:
	default:
		return &ConfigError{Field: "SHEET_BACKEND", Message: "unknown backend " + c.Sheet.Backend}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
