package config

import (
	"os"
	"strings"
	"time"

	"github.com/BearBump/BrickSync/internal/logger"
	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Logger    logger.Config   `yaml:"logger"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	BrickSync BrickSyncConfig `yaml:"bricksync"`
	BrickLink PlatformConfig  `yaml:"bricklink"`
	BrickOwl  PlatformConfig  `yaml:"brickowl"`
	Shippo    PlatformConfig  `yaml:"shippo"`
}

type KafkaConfig struct {
	Host                 string `yaml:"host"`
	Port                 int    `yaml:"port"`
	OrderSyncedTopicName string `yaml:"order_synced_topic_name"`
}

func (k KafkaConfig) Enabled() bool { return k.Host != "" }

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (r RedisConfig) Enabled() bool { return r.Host != "" }

type BrickSyncConfig struct {
	WorkerHTTPAddr  string `yaml:"worker_http_addr"`
	CredentialsPath string `yaml:"credentials_path"`

	// Sandbox wires in-memory platforms instead of the live APIs.
	Sandbox bool `yaml:"sandbox"`
	// RunOnce executes a single pass and exits (cron).
	RunOnce        bool `yaml:"run_once"`
	ShippoTestMode bool `yaml:"shippo_test_mode"`

	// Scheduling. Defaults: 300s interval, backoff 60/300/900/1800 seconds.
	PollIntervalMinSeconds int `yaml:"poll_interval_min_seconds"`
	PollIntervalMaxSeconds int `yaml:"poll_interval_max_seconds"`
	Backoff1Seconds        int `yaml:"backoff_1_seconds"`
	Backoff2Seconds        int `yaml:"backoff_2_seconds"`
	Backoff3Seconds        int `yaml:"backoff_3_seconds"`
	Backoff4Seconds        int `yaml:"backoff_4_seconds"`

	LockTTLSeconds     int `yaml:"lock_ttl_seconds"`
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`

	// Requests per minute per platform account; 0 disables throttling.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// PlatformConfig overrides adapter defaults. Empty fields keep them.
type PlatformConfig struct {
	BaseURL         string   `yaml:"base_url"`
	ReadyStatuses   []string `yaml:"ready_statuses"`
	PreShipStatuses []string `yaml:"pre_ship_statuses"`
	// ListStatuses narrows the order listing where the platform supports it.
	ListStatuses       []string `yaml:"list_statuses"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
}

func (c *Config) HTTPTimeout() time.Duration {
	if c.BrickSync.HTTPTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.BrickSync.HTTPTimeoutSeconds) * time.Second
}

// RateLimit returns the per-minute limit for a platform, falling back to the
// global one.
func (c *Config) RateLimit(p PlatformConfig) int64 {
	if p.RateLimitPerMinute > 0 {
		return int64(p.RateLimitPerMinute)
	}
	return int64(c.BrickSync.RateLimitPerMinute)
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal YAML")
	}
	return &config, nil
}

const (
	KeyBrickLinkConsumerKey    = "bricklink_consumer_key"
	KeyBrickLinkConsumerSecret = "bricklink_consumer_secret"
	KeyBrickLinkTokenValue     = "bricklink_token_value"
	KeyBrickLinkTokenSecret    = "bricklink_token_secret"
	KeyBrickOwl                = "brickowl"
	KeyShippoLive              = "shippo_live"
	KeyShippo                  = "shippo"
	KeyShippoTest              = "shippo_test"
)

// Credentials is the flat key-value secrets file (api_keys.json).
type Credentials map[string]string

// LoadCredentials reads the credentials file. JSON is a subset of YAML, so
// the YAML decoder reads it as is.
func LoadCredentials(filename string) (Credentials, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read credentials file")
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, errors.Wrap(err, "failed to parse credentials file")
	}
	if creds == nil {
		creds = Credentials{}
	}
	return creds, nil
}

func (c Credentials) Validate(testMode bool) error {
	required := []string{
		KeyBrickLinkConsumerKey,
		KeyBrickLinkConsumerSecret,
		KeyBrickLinkTokenValue,
		KeyBrickLinkTokenSecret,
		KeyBrickOwl,
	}
	var missing []string
	for _, k := range required {
		if !c.has(k) {
			missing = append(missing, k)
		}
	}
	if c.ShippoKey(testMode) == "" {
		if testMode {
			missing = append(missing, KeyShippoTest)
		} else {
			missing = append(missing, KeyShippoLive+" (or "+KeyShippo+")")
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("credentials: missing keys %s", strings.Join(missing, ", "))
	}
	return nil
}

// ShippoKey picks the test token, or the live one: shippo_live first, then
// the older shippo key.
func (c Credentials) ShippoKey(testMode bool) string {
	keys := []string{KeyShippoLive, KeyShippo}
	if testMode {
		keys = []string{KeyShippoTest}
	}
	for _, k := range keys {
		if c.has(k) {
			return strings.TrimSpace(c[k])
		}
	}
	return ""
}

func (c Credentials) has(key string) bool {
	return strings.TrimSpace(c[key]) != ""
}
