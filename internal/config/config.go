package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every configuration key to form its env var.
const EnvPrefix = "ADVERTHIDE_"

type Config struct {
	DatabaseURL   string // ADVERTHIDE_DATABASE_URL (required)
	DBDriver      string // ADVERTHIDE_DB_DRIVER (default "postgres"; or "mysql")
	TablePrefix   string // ADVERTHIDE_TABLE_PREFIX (host table prefix, e.g. "jos_")
	PluginElement string // ADVERTHIDE_PLUGIN_ELEMENT (default "adverthiding")
	PluginFolder  string // ADVERTHIDE_PLUGIN_FOLDER (default "system")

	HTTPAddr   string // ADVERTHIDE_HTTP_ADDR (default ":8080")
	AdminToken string // ADVERTHIDE_ADMIN_TOKEN (optional, empty = no request is admin)
	NATSURL    string // ADVERTHIDE_NATS_URL (optional, empty = no events)
	RedisAddr  string // ADVERTHIDE_REDIS_ADDR (optional, empty = in-process lock)
	SentryDSN  string // ADVERTHIDE_SENTRY_DSN (optional)

	RateLimit      float64 // ADVERTHIDE_RATE_LIMIT (API requests per second per client; default 0 = unlimited)
	RateLimitBurst int     // ADVERTHIDE_RATE_LIMIT_BURST (default 5)

	AfterDemoteCommand string        // ADVERTHIDE_AFTER_DEMOTE_COMMAND (optional shell command run after each demotion)
	AfterDemoteTimeout time.Duration // ADVERTHIDE_AFTER_DEMOTE_TIMEOUT (default 30s)

	ScheduleInterval time.Duration // ADVERTHIDE_SCHEDULE_INTERVAL (default 0 = request-driven only)
	LockTTL          time.Duration // ADVERTHIDE_LOCK_TTL (default 5m)
	FieldCacheTTL    time.Duration // ADVERTHIDE_FIELD_CACHE_TTL (default 10m; 0 = no caching)

	// Audit settings
	AuditFile       string // ADVERTHIDE_AUDIT_FILE (append JSONL when set)
	AuditS3Bucket   string // ADVERTHIDE_AUDIT_S3_BUCKET (enables S3 when set)
	AuditS3Endpoint string // ADVERTHIDE_AUDIT_S3_ENDPOINT (custom endpoint for MinIO)
	AuditS3Region   string // ADVERTHIDE_AUDIT_S3_REGION (default "us-east-1")
	AuditS3Prefix   string // ADVERTHIDE_AUDIT_S3_PREFIX (default "adverthide/audit/")
	AuditGitRepo    string // ADVERTHIDE_AUDIT_GIT_REPO (enables git when set; path to clone)
	AuditGitDir     string // ADVERTHIDE_AUDIT_GIT_DIR (default "audit")
	AuditGitBranch  string // ADVERTHIDE_AUDIT_GIT_BRANCH (default "main")

	LogLevel  string // ADVERTHIDE_LOG_LEVEL (default "info")
	LogFormat string // ADVERTHIDE_LOG_FORMAT (default "text"; or "json")
}

// keys lists every recognized configuration key, lowercase, without prefix.
// The same names are used in the optional TOML file.
var keys = []string{
	"database_url", "db_driver", "table_prefix", "plugin_element", "plugin_folder",
	"http_addr", "admin_token", "nats_url", "redis_addr", "sentry_dsn",
	"rate_limit", "rate_limit_burst",
	"after_demote_command", "after_demote_timeout",
	"schedule_interval", "lock_ttl", "field_cache_ttl",
	"audit_file", "audit_s3_bucket", "audit_s3_endpoint", "audit_s3_region", "audit_s3_prefix",
	"audit_git_repo", "audit_git_dir", "audit_git_branch",
	"log_level", "log_format",
}

// Load reads configuration from ADVERTHIDE_* env vars. When
// ADVERTHIDE_CONFIG_FILE names a TOML or YAML file, its values are used for
// keys the environment leaves unset.
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv(EnvPrefix + "CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	get := func(key, fallback string) string {
		if v := os.Getenv(EnvPrefix + strings.ToUpper(key)); v != "" {
			return v
		}
		if v, ok := file[key]; ok && v != "" {
			return v
		}
		return fallback
	}

	c := &Config{
		DatabaseURL:        get("database_url", ""),
		DBDriver:           get("db_driver", "postgres"),
		TablePrefix:        get("table_prefix", ""),
		PluginElement:      get("plugin_element", "adverthiding"),
		PluginFolder:       get("plugin_folder", "system"),
		HTTPAddr:           get("http_addr", ":8080"),
		AdminToken:         get("admin_token", ""),
		NATSURL:            get("nats_url", ""),
		RedisAddr:          get("redis_addr", ""),
		SentryDSN:          get("sentry_dsn", ""),
		AfterDemoteCommand: get("after_demote_command", ""),
		AuditFile:          get("audit_file", ""),
		AuditS3Bucket:      get("audit_s3_bucket", ""),
		AuditS3Endpoint:    get("audit_s3_endpoint", ""),
		AuditS3Region:      get("audit_s3_region", "us-east-1"),
		AuditS3Prefix:      get("audit_s3_prefix", "adverthide/audit/"),
		AuditGitRepo:       get("audit_git_repo", ""),
		AuditGitDir:        get("audit_git_dir", "audit"),
		AuditGitBranch:     get("audit_git_branch", "main"),
		LogLevel:           get("log_level", "info"),
		LogFormat:          get("log_format", "text"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("%sDATABASE_URL is required", EnvPrefix)
	}
	switch c.DBDriver {
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("%sDB_DRIVER: unsupported driver %q (must be postgres or mysql)", EnvPrefix, c.DBDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%sLOG_FORMAT: unsupported format %q (must be text or json)", EnvPrefix, c.LogFormat)
	}

	for _, d := range []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"schedule_interval", "0", &c.ScheduleInterval},
		{"lock_ttl", "5m", &c.LockTTL},
		{"field_cache_ttl", "10m", &c.FieldCacheTTL},
		{"after_demote_timeout", "30s", &c.AfterDemoteTimeout},
	} {
		v, err := time.ParseDuration(get(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", EnvPrefix, strings.ToUpper(d.key), err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%s%s: must not be negative", EnvPrefix, strings.ToUpper(d.key))
		}
		*d.dst = v
	}
	if c.LockTTL == 0 {
		return nil, fmt.Errorf("%sLOCK_TTL: must be positive", EnvPrefix)
	}

	if c.RateLimit, err = strconv.ParseFloat(get("rate_limit", "0"), 64); err != nil || c.RateLimit < 0 {
		return nil, fmt.Errorf("%sRATE_LIMIT: want a non-negative number, got %q", EnvPrefix, get("rate_limit", "0"))
	}
	if c.RateLimitBurst, err = strconv.Atoi(get("rate_limit_burst", "5")); err != nil || c.RateLimitBurst < 1 {
		return nil, fmt.Errorf("%sRATE_LIMIT_BURST: want a positive integer, got %q", EnvPrefix, get("rate_limit_burst", "5"))
	}

	return c, nil
}

// loadFile decodes a flat TOML file, or YAML for .yaml and .yml, into string
// values keyed by config key. An empty path yields no values.
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}

	values := make(map[string]string, len(raw))
	var unknown []string
	for k, v := range raw {
		if !known[k] {
			unknown = append(unknown, k)
			continue
		}
		switch x := v.(type) {
		case string:
			values[k] = x
		case int, int64, float64, bool:
			values[k] = fmt.Sprint(x)
		default:
			return nil, fmt.Errorf("config file %s: %s must be a scalar", path, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(unknown, ", "))
	}
	return values, nil
}
