package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
logger:
  level: "debug"
  format: "console"
kafka:
  host: "localhost"
  port: 9092
  order_synced_topic_name: "orders.synced"
redis:
  host: "localhost"
  port: 6379
bricksync:
  worker_http_addr: ":8082"
  credentials_path: "api_keys.json"
  shippo_test_mode: true
  poll_interval_min_seconds: 240
  poll_interval_max_seconds: 360
  rate_limit_per_minute: 60
bricklink:
  ready_statuses: ["PACKED", "READY"]
  list_statuses: ["PAID", "PACKED"]
brickowl:
  base_url: "http://localhost:9001/v1"
  rate_limit_per_minute: 30
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logger.Level)
	require.Equal(t, "orders.synced", cfg.Kafka.OrderSyncedTopicName)
	require.True(t, cfg.Kafka.Enabled())
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8082", cfg.BrickSync.WorkerHTTPAddr)
	require.True(t, cfg.BrickSync.ShippoTestMode)
	require.Equal(t, 360, cfg.BrickSync.PollIntervalMaxSeconds)
	require.Equal(t, []string{"PACKED", "READY"}, cfg.BrickLink.ReadyStatuses)
	require.Equal(t, "http://localhost:9001/v1", cfg.BrickOwl.BaseURL)

	require.Equal(t, int64(60), cfg.RateLimit(cfg.BrickLink))
	require.Equal(t, int64(30), cfg.RateLimit(cfg.BrickOwl))
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	require.False(t, cfg.BrickSync.Sandbox)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")

	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("bricksync: [1, 2"), 0o600))
	_, err = LoadConfig(p)
	require.ErrorContains(t, err, "failed to unmarshal YAML")
}

const credentialsJSON = `{
  "bricklink_consumer_key": "ck",
  "bricklink_consumer_secret": "cs",
  "bricklink_token_value": "tv",
  "bricklink_token_secret": "ts",
  "brickowl": "bo",
  "shippo": "shippo_live_x",
  "shippo_test": "shippo_test_x"
}`

func writeCreds(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "api_keys.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadCredentials(t *testing.T) {
	creds, err := LoadCredentials(writeCreds(t, credentialsJSON))
	require.NoError(t, err)
	require.NoError(t, creds.Validate(false))
	require.NoError(t, creds.Validate(true))
	require.Equal(t, "shippo_live_x", creds.ShippoKey(false))
	require.Equal(t, "shippo_test_x", creds.ShippoKey(true))
	require.Equal(t, "ck", creds[KeyBrickLinkConsumerKey])
}

func TestCredentials_ShippoLiveKey(t *testing.T) {
	creds, err := LoadCredentials(writeCreds(t, `{
  "bricklink_consumer_key": "ck",
  "bricklink_consumer_secret": "cs",
  "bricklink_token_value": "tv",
  "bricklink_token_secret": "ts",
  "brickowl": "bo",
  "shippo_live": "shippo_live_x",
  "shippo_test": "shippo_test_x"
}`))
	require.NoError(t, err)
	require.NoError(t, creds.Validate(false))
	require.Equal(t, "shippo_live_x", creds.ShippoKey(false))
	require.Equal(t, "shippo_test_x", creds.ShippoKey(true))

	// shippo_live wins over the older key
	creds[KeyShippo] = "shippo_old"
	require.Equal(t, "shippo_live_x", creds.ShippoKey(false))

	creds[KeyShippoLive] = " "
	require.Equal(t, "shippo_old", creds.ShippoKey(false))

	delete(creds, KeyShippo)
	err = creds.Validate(false)
	require.ErrorContains(t, err, "shippo_live")
}

func TestCredentials_Validate_Missing(t *testing.T) {
	creds, err := LoadCredentials(writeCreds(t, `{"brickowl": "bo", "shippo_test": "x", "bricklink_token_value": " "}`))
	require.NoError(t, err)

	err = creds.Validate(true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bricklink_consumer_key")
	require.Contains(t, err.Error(), "bricklink_token_value")
	require.NotContains(t, err.Error(), "shippo")

	err = creds.Validate(false)
	require.Contains(t, err.Error(), "shippo")
}

func TestLoadCredentials_Errors(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorContains(t, err, "failed to read credentials file")

	creds, err := LoadCredentials(writeCreds(t, ""))
	require.NoError(t, err)
	require.Error(t, creds.Validate(false))
}
