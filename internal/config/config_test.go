package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearAllEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvPrefix+"CONFIG_FILE", "")
	for _, key := range keys {
		t.Setenv(EnvPrefix+strings.ToUpper(key), "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	return writeFileAs(t, "adverthide.toml", content)
}

func writeFileAs(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantDriver   string
		wantHTTPAddr string
		wantNATSURL  string
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:         "Defaults",
			env:          map[string]string{"ADVERTHIDE_DATABASE_URL": "postgres://localhost/joomla"},
			wantDriver:   "postgres",
			wantHTTPAddr: ":8080",
		},
		{
			name: "Custom",
			env: map[string]string{
				"ADVERTHIDE_DATABASE_URL": "joomla:secret@tcp(db:3306)/site",
				"ADVERTHIDE_DB_DRIVER":    "mysql",
				"ADVERTHIDE_HTTP_ADDR":    ":3000",
				"ADVERTHIDE_NATS_URL":     "nats://localhost:4222",
			},
			wantDriver:   "mysql",
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
		},
		{
			name: "UnknownDriver",
			env: map[string]string{
				"ADVERTHIDE_DATABASE_URL": "sqlite://x",
				"ADVERTHIDE_DB_DRIVER":    "sqlite",
			},
			wantErr: true,
		},
		{
			name: "UnknownLogFormat",
			env: map[string]string{
				"ADVERTHIDE_DATABASE_URL": "postgres://localhost/joomla",
				"ADVERTHIDE_LOG_FORMAT":   "xml",
			},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseURL != tc.env["ADVERTHIDE_DATABASE_URL"] {
				t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, tc.env["ADVERTHIDE_DATABASE_URL"])
			}
			if cfg.DBDriver != tc.wantDriver {
				t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, tc.wantDriver)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
		})
	}
}

func TestLoad_PluginDefaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("ADVERTHIDE_DATABASE_URL", "postgres://localhost/joomla")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PluginElement != "adverthiding" || cfg.PluginFolder != "system" {
		t.Errorf("plugin identity = %s/%s", cfg.PluginElement, cfg.PluginFolder)
	}
	if cfg.TablePrefix != "" {
		t.Errorf("TablePrefix = %q, want empty", cfg.TablePrefix)
	}
	if cfg.ScheduleInterval != 0 {
		t.Errorf("ScheduleInterval = %v, want 0", cfg.ScheduleInterval)
	}
	if cfg.LockTTL != 5*time.Minute {
		t.Errorf("LockTTL = %v, want 5m", cfg.LockTTL)
	}
	if cfg.FieldCacheTTL != 10*time.Minute {
		t.Errorf("FieldCacheTTL = %v, want 10m", cfg.FieldCacheTTL)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log = %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.AfterDemoteCommand != "" || cfg.AfterDemoteTimeout != 30*time.Second {
		t.Errorf("after demote = %q/%v, want empty/30s", cfg.AfterDemoteCommand, cfg.AfterDemoteTimeout)
	}
}

func TestLoad_Durations(t *testing.T) {
	for _, tc := range []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{"ScheduleInterval", "ADVERTHIDE_SCHEDULE_INTERVAL", "90s", false},
		{"InvalidSchedule", "ADVERTHIDE_SCHEDULE_INTERVAL", "soon", true},
		{"NegativeLock", "ADVERTHIDE_LOCK_TTL", "-1m", true},
		{"ZeroLock", "ADVERTHIDE_LOCK_TTL", "0s", true},
		{"NoCache", "ADVERTHIDE_FIELD_CACHE_TTL", "0s", false},
		{"HookTimeout", "ADVERTHIDE_AFTER_DEMOTE_TIMEOUT", "2m", false},
		{"InvalidHookTimeout", "ADVERTHIDE_AFTER_DEMOTE_TIMEOUT", "-5s", true},
		{"RateLimit", "ADVERTHIDE_RATE_LIMIT", "0.5", false},
		{"NegativeRateLimit", "ADVERTHIDE_RATE_LIMIT", "-1", true},
		{"InvalidRateLimit", "ADVERTHIDE_RATE_LIMIT", "fast", true},
		{"ZeroBurst", "ADVERTHIDE_RATE_LIMIT_BURST", "0", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv("ADVERTHIDE_DATABASE_URL", "postgres://localhost/joomla")
			t.Setenv(tc.key, tc.value)

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.name == "ScheduleInterval" && cfg.ScheduleInterval != 90*time.Second {
				t.Errorf("ScheduleInterval = %v, want 90s", cfg.ScheduleInterval)
			}
			if tc.name == "NoCache" && cfg.FieldCacheTTL != 0 {
				t.Errorf("FieldCacheTTL = %v, want 0", cfg.FieldCacheTTL)
			}
			if tc.name == "RateLimit" && (cfg.RateLimit != 0.5 || cfg.RateLimitBurst != 5) {
				t.Errorf("rate limit = %v burst %d, want 0.5 burst 5", cfg.RateLimit, cfg.RateLimitBurst)
			}
			if tc.name == "HookTimeout" && cfg.AfterDemoteTimeout != 2*time.Minute {
				t.Errorf("AfterDemoteTimeout = %v, want 2m", cfg.AfterDemoteTimeout)
			}
		})
	}
}

func TestLoad_AuditDefaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("ADVERTHIDE_DATABASE_URL", "postgres://localhost/joomla")
	t.Setenv("ADVERTHIDE_AUDIT_S3_BUCKET", "audit-bucket")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AuditS3Bucket != "audit-bucket" {
		t.Errorf("AuditS3Bucket = %q", cfg.AuditS3Bucket)
	}
	if cfg.AuditS3Region != "us-east-1" {
		t.Errorf("AuditS3Region = %q, want us-east-1", cfg.AuditS3Region)
	}
	if cfg.AuditS3Prefix != "adverthide/audit/" {
		t.Errorf("AuditS3Prefix = %q", cfg.AuditS3Prefix)
	}
	if cfg.AuditGitDir != "audit" || cfg.AuditGitBranch != "main" {
		t.Errorf("git = %s@%s", cfg.AuditGitDir, cfg.AuditGitBranch)
	}
}

func TestLoad_File(t *testing.T) {
	clearAllEnv(t)
	path := writeFile(t, `
database_url = "postgres://file/joomla"
table_prefix = "jos_"
schedule_interval = "15m"
http_addr = ":9000"
`)
	t.Setenv("ADVERTHIDE_CONFIG_FILE", path)
	t.Setenv("ADVERTHIDE_HTTP_ADDR", ":7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/joomla" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.TablePrefix != "jos_" {
		t.Errorf("TablePrefix = %q", cfg.TablePrefix)
	}
	if cfg.ScheduleInterval != 15*time.Minute {
		t.Errorf("ScheduleInterval = %v", cfg.ScheduleInterval)
	}
	// Env wins over the file.
	if cfg.HTTPAddr != ":7000" {
		t.Errorf("HTTPAddr = %q, want :7000", cfg.HTTPAddr)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("ADVERTHIDE_CONFIG_FILE", writeFileAs(t, "adverthide.yaml", `
database_url: mysql://file/joomla
db_driver: mysql
rate_limit: 2
rate_limit_burst: 10
lock_ttl: 1m
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBDriver != "mysql" || cfg.DatabaseURL != "mysql://file/joomla" {
		t.Errorf("database = %s %s", cfg.DBDriver, cfg.DatabaseURL)
	}
	if cfg.RateLimit != 2 || cfg.RateLimitBurst != 10 {
		t.Errorf("rate limit = %v burst %d", cfg.RateLimit, cfg.RateLimitBurst)
	}
	if cfg.LockTTL != time.Minute {
		t.Errorf("LockTTL = %v", cfg.LockTTL)
	}
}

func TestLoad_YAMLFileErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{"UnknownKey", "database_url: x\ncolour: blue\n"},
		{"Nested", "database:\n  url: x\n"},
		{"Syntax", "database_url: [unclosed\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv("ADVERTHIDE_CONFIG_FILE", writeFileAs(t, "adverthide.yml", tc.content))
			if _, err := Load(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{"UnknownKey", `database_url = "x"` + "\n" + `colour = "blue"`},
		{"Table", "[database]\nurl = \"x\""},
		{"Syntax", `database_url = `},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv("ADVERTHIDE_CONFIG_FILE", writeFile(t, tc.content))
			if _, err := Load(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("ADVERTHIDE_DATABASE_URL", "postgres://localhost/joomla")
	t.Setenv("ADVERTHIDE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}
