// Package config provides application configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when neither --config nor CONFIG_FILE names a file.
const DefaultFile = "triage.yaml"

// Generation backends.
const (
	BackendNone   = ""
	BackendOpenAI = "openai"
	BackendGRPC   = "grpc"
)

// Config holds all application configuration.
type Config struct {
	Port       string           `yaml:"port"`
	AppEnv     string           `yaml:"app_env"`
	LogLevel   string           `yaml:"log_level"`
	DryRun     bool             `yaml:"dry_run"`
	Zendesk    ZendeskConfig    `yaml:"zendesk"`
	Triage     TriageConfig     `yaml:"triage"`
	Reply      ReplyConfig      `yaml:"reply"`
	Origin     OriginConfig     `yaml:"origin"`
	Generation GenerationConfig `yaml:"generation"`
	Journal    JournalConfig    `yaml:"journal"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Ops        OpsConfig        `yaml:"ops"`
}

// ZendeskConfig holds ticket-system credentials.
type ZendeskConfig struct {
	Subdomain       string `yaml:"subdomain"`
	Email           string `yaml:"email"`
	APIToken        string `yaml:"api_token"`
	TrackingFieldID string `yaml:"tracking_field_id"`
}

// TriageConfig controls the polling passes.
type TriageConfig struct {
	PollIntervalSec    int    `yaml:"poll_interval_sec"`
	PageSize           int    `yaml:"page_size"`
	DraftTag           string `yaml:"draft_tag"`
	DraftPrefix        string `yaml:"draft_prefix"`
	ReplacementSentTag string `yaml:"replacement_sent_tag"`
}

// ReplyConfig holds the wording knobs of composed messages.
type ReplyConfig struct {
	BrandName           string `yaml:"brand_name"`
	SignatureName       string `yaml:"signature_name"`
	CarrierLinkTemplate string `yaml:"carrier_link_template"`
}

// OriginConfig configures origin classification.
type OriginConfig struct {
	StorefrontSources []string `yaml:"storefront_sources"`
	StorefrontPhrase  string   `yaml:"storefront_phrase"`
	MarketplaceTokens []string `yaml:"marketplace_subject_tokens"`
}

// GenerationConfig selects the optional text-generation backend.
type GenerationConfig struct {
	Backend       string `yaml:"backend"`
	OpenAIKey     string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	GrpcAddress   string `yaml:"grpc_address"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// JournalConfig controls the SQLite operator journal.
type JournalConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// KafkaConfig controls the event stream. No brokers disables it.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EventsTopic string   `yaml:"events_topic"`
	PassesTopic string   `yaml:"passes_topic"`
}

// OpsConfig controls the operator HTTP surface.
type OpsConfig struct {
	Token          string   `yaml:"token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	FeedBacklog    int      `yaml:"feed_backlog"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:     "10000",
		LogLevel: "info",
		Triage: TriageConfig{
			PollIntervalSec:    35,
			PageSize:           40,
			DraftTag:           "chat_suggested_draft",
			DraftPrefix:        "Suggested reply (review before sending):",
			ReplacementSentTag: "replacement_sent",
		},
		Reply: ReplyConfig{
			BrandName:           "Divitize",
			SignatureName:       "Noe",
			CarrierLinkTemplate: "https://t.17track.net/en#nums=%s",
		},
		Origin: OriginConfig{
			StorefrontSources: []string{"web_form", "contact_form"},
			StorefrontPhrase:  "You received a new message from your online store's contact form.",
			MarketplaceTokens: []string{"Amazon", "QR"},
		},
		Generation: GenerationConfig{
			OpenAIModel:   "gpt-4o-mini",
			OpenAIBaseURL: "https://api.openai.com/v1",
			TimeoutSec:    30,
		},
		Journal: JournalConfig{
			Enabled:       true,
			DBPath:        "./data/triage.db",
			RetentionDays: 30,
		},
		Kafka: KafkaConfig{
			EventsTopic: "triage-events",
			PassesTopic: "triage-passes",
		},
		Ops: OpsConfig{
			AllowedOrigins: []string{"*"},
			FeedBacklog:    50,
		},
	}
}

// Load builds the configuration. path names the YAML file; when empty,
// CONFIG_FILE or DefaultFile is used and a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = getEnv("CONFIG_FILE", DefaultFile)
		explicit = path != DefaultFile
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DryRun = getEnvBool("DRY_RUN", c.DryRun)

	c.Zendesk.Subdomain = getEnv("ZENDESK_SUBDOMAIN", c.Zendesk.Subdomain)
	c.Zendesk.Email = getEnv("ZENDESK_EMAIL", c.Zendesk.Email)
	c.Zendesk.APIToken = getEnv("ZENDESK_API_TOKEN", c.Zendesk.APIToken)
	c.Zendesk.TrackingFieldID = getEnv("Z_TRACKING_FIELD", c.Zendesk.TrackingFieldID)

	c.Triage.PollIntervalSec = getEnvInt("POLL_INTERVAL_SEC", c.Triage.PollIntervalSec)
	c.Triage.PageSize = getEnvInt("TICKET_PAGE_SIZE", c.Triage.PageSize)
	c.Triage.DraftTag = getEnv("DRAFT_TAG", c.Triage.DraftTag)
	c.Triage.DraftPrefix = getEnv("DRAFT_PREFIX", c.Triage.DraftPrefix)
	c.Triage.ReplacementSentTag = getEnv("REPLACEMENT_SENT_TAG", c.Triage.ReplacementSentTag)

	c.Reply.BrandName = getEnv("BRAND_NAME", c.Reply.BrandName)
	c.Reply.SignatureName = getEnv("SIGNATURE_NAME", c.Reply.SignatureName)
	c.Reply.CarrierLinkTemplate = getEnv("CARRIER_LINK_TEMPLATE", c.Reply.CarrierLinkTemplate)

	c.Origin.StorefrontSources = getEnvList("STOREFRONT_SOURCES", c.Origin.StorefrontSources)
	c.Origin.StorefrontPhrase = getEnv("STOREFRONT_PHRASE", c.Origin.StorefrontPhrase)
	c.Origin.MarketplaceTokens = getEnvList("MARKETPLACE_SUBJECT_TOKENS", c.Origin.MarketplaceTokens)

	c.Generation.Backend = getEnv("GENERATION_BACKEND", c.Generation.Backend)
	c.Generation.OpenAIKey = getEnv("OPENAI_API_KEY", c.Generation.OpenAIKey)
	c.Generation.OpenAIModel = getEnv("OPENAI_MODEL", c.Generation.OpenAIModel)
	c.Generation.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.Generation.OpenAIBaseURL)
	c.Generation.GrpcAddress = getEnv("GENERATION_GRPC_ADDR", c.Generation.GrpcAddress)
	c.Generation.TimeoutSec = getEnvInt("GENERATION_TIMEOUT_SEC", c.Generation.TimeoutSec)

	c.Journal.Enabled = getEnvBool("JOURNAL_ENABLED", c.Journal.Enabled)
	c.Journal.DBPath = getEnv("DB_PATH", c.Journal.DBPath)
	c.Journal.RetentionDays = getEnvInt("JOURNAL_RETENTION_DAYS", c.Journal.RetentionDays)

	c.Kafka.Brokers = getEnvList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.EventsTopic = getEnv("KAFKA_TOPIC", c.Kafka.EventsTopic)
	c.Kafka.PassesTopic = getEnv("KAFKA_PASSES_TOPIC", c.Kafka.PassesTopic)

	c.Ops.Token = getEnv("OPS_TOKEN", c.Ops.Token)
	c.Ops.AllowedOrigins = getEnvList("OPS_ALLOWED_ORIGINS", c.Ops.AllowedOrigins)
	c.Ops.FeedBacklog = getEnvInt("FEED_BACKLOG", c.Ops.FeedBacklog)
}

func (c *Config) normalize() {
	c.Zendesk.Subdomain = strings.TrimSpace(c.Zendesk.Subdomain)
	c.Zendesk.Email = strings.TrimSpace(c.Zendesk.Email)
	c.Zendesk.APIToken = strings.TrimSpace(c.Zendesk.APIToken)
	c.Zendesk.TrackingFieldID = strings.TrimSpace(c.Zendesk.TrackingFieldID)
	c.Generation.OpenAIKey = strings.TrimSpace(c.Generation.OpenAIKey)

	backend := strings.ToLower(strings.TrimSpace(c.Generation.Backend))
	if backend == "none" {
		backend = BackendNone
	}
	c.Generation.Backend = backend
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Zendesk.Subdomain == "" {
		return fmt.Errorf("ZENDESK_SUBDOMAIN cannot be empty")
	}
	if c.Zendesk.Email == "" {
		return fmt.Errorf("ZENDESK_EMAIL cannot be empty")
	}
	if c.Zendesk.APIToken == "" {
		return fmt.Errorf("ZENDESK_API_TOKEN cannot be empty")
	}
	if c.Zendesk.TrackingFieldID == "" {
		return fmt.Errorf("Z_TRACKING_FIELD cannot be empty")
	}
	if c.Triage.PollIntervalSec <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SEC must be > 0")
	}
	if c.Triage.PageSize <= 0 || c.Triage.PageSize > 100 {
		return fmt.Errorf("TICKET_PAGE_SIZE must be between 1 and 100")
	}
	if c.Triage.ReplacementSentTag == "" {
		return fmt.Errorf("REPLACEMENT_SENT_TAG cannot be empty")
	}

	switch c.Generation.Backend {
	case BackendNone:
	case BackendOpenAI:
		if c.Generation.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when GENERATION_BACKEND=openai")
		}
	case BackendGRPC:
		if c.Generation.GrpcAddress == "" {
			return fmt.Errorf("GENERATION_GRPC_ADDR is required when GENERATION_BACKEND=grpc")
		}
	default:
		return fmt.Errorf("unknown GENERATION_BACKEND %q", c.Generation.Backend)
	}

	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty when the journal is enabled")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.EventsTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC cannot be empty when KAFKA_BROKERS is set")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// PollInterval is the time between pass starts.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Triage.PollIntervalSec) * time.Second
}

// Retention is how long journal rows are kept. Zero keeps them forever.
func (c *Config) Retention() time.Duration {
	if c.Journal.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.Journal.RetentionDays) * 24 * time.Hour
}

// GenerationTimeout bounds one generation call.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvList reads a comma-separated list. Blank entries are dropped; a
// set but blank variable yields an empty list.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
