package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/alfredjeanlab/adverthide/internal/audit"
	"github.com/alfredjeanlab/adverthide/internal/config"
	"github.com/alfredjeanlab/adverthide/internal/events"
	"github.com/alfredjeanlab/adverthide/internal/hooks"
	"github.com/alfredjeanlab/adverthide/internal/lock"
	"github.com/alfredjeanlab/adverthide/internal/model"
	"github.com/alfredjeanlab/adverthide/internal/store"
	"github.com/alfredjeanlab/adverthide/internal/store/mysql"
	"github.com/alfredjeanlab/adverthide/internal/store/postgres"
	"github.com/alfredjeanlab/adverthide/internal/updater"
)

// newLogger builds the process logger from the configured level and format.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("%sLOG_LEVEL: %w", config.EnvPrefix, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// loadConfig loads the configuration and installs its logger as the default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore connects to the configured database. Migrations are not run.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "mysql":
		return mysql.New(cfg.DatabaseURL, cfg.TablePrefix)
	default:
		return postgres.New(cfg.DatabaseURL, cfg.TablePrefix)
	}
}

// runtime bundles an Updater with the resources it holds open.
type runtime struct {
	updater   *updater.Updater
	store     store.Store
	publisher events.Publisher
	closers   []func()
}

// Close releases everything in reverse order of acquisition.
func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// newRuntime wires the store, lock, notifiers, events and audit trail into an
// Updater according to cfg. extra publishers receive every event alongside
// NATS. Optional integrations that fail to start are logged and skipped;
// only the database is required.
func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...events.Publisher) (*runtime, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{store: st}
	rt.closers = append(rt.closers, func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}
	})

	notifiers := updater.Multi{updater.LogNotifier{Logger: logger}}

	pubs := events.MultiPublisher(extra)
	if cfg.AfterDemoteCommand != "" {
		pubs = append(pubs, &hooks.DemotionHook{
			Command: cfg.AfterDemoteCommand,
			Timeout: cfg.AfterDemoteTimeout,
			Logger:  logger,
		})
		logger.Info("demotion hook enabled", "timeout", cfg.AfterDemoteTimeout)
	}
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("events disabled", "nats_url", cfg.NATSURL, "err", err)
		} else {
			pubs = append(pubs, pub)
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		}
	}
	var publisher events.Publisher = &events.NoopPublisher{}
	if len(pubs) > 0 {
		publisher = pubs
		notifiers = append(notifiers, updater.EventNotifier{Publisher: pubs, Logger: logger})
	}
	rt.publisher = publisher
	rt.closers = append(rt.closers, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
	})

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Error("sentry disabled", "err", err)
		} else {
			notifiers = append(notifiers, updater.SentryNotifier{Hub: sentry.CurrentHub()})
			rt.closers = append(rt.closers, func() { sentry.Flush(2 * time.Second) })
			logger.Info("sentry enabled")
		}
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rl, err := lock.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			rt.Close()
			return nil, err
		}
		locker = rl
		rt.closers = append(rt.closers, func() { _ = rl.Close() })
		logger.Info("redis tick lock enabled", "addr", cfg.RedisAddr)
	}

	rt.updater = updater.New(st, updater.Config{
		Element:       cfg.PluginElement,
		Folder:        cfg.PluginFolder,
		Locker:        locker,
		LockTTL:       cfg.LockTTL,
		FieldCacheTTL: cfg.FieldCacheTTL,
		Notifier:      notifiers,
		Publisher:     publisher,
		Audit:         newAuditTrail(ctx, cfg, logger),
		Logger:        logger,
	})
	return rt, nil
}

// newAuditTrail builds the audit destinations enabled in cfg.
func newAuditTrail(ctx context.Context, cfg *config.Config, logger *slog.Logger) *audit.Trail {
	var dests []audit.Destination
	if cfg.AuditFile != "" {
		dests = append(dests, audit.NewFileDestination(cfg.AuditFile))
		logger.Info("audit file destination enabled", "path", cfg.AuditFile)
	}
	if cfg.AuditS3Bucket != "" {
		s3Dest, err := audit.NewS3Destination(ctx, cfg.AuditS3Bucket, cfg.AuditS3Prefix, cfg.AuditS3Region, cfg.AuditS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 audit destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("audit S3 destination enabled", "bucket", cfg.AuditS3Bucket, "prefix", cfg.AuditS3Prefix)
		}
	}
	if cfg.AuditGitRepo != "" {
		dests = append(dests, audit.NewGitDestination(cfg.AuditGitRepo, cfg.AuditGitDir, cfg.AuditGitBranch))
		logger.Info("audit git destination enabled", "repo", cfg.AuditGitRepo, "dir", cfg.AuditGitDir)
	}
	return audit.NewTrail(logger, dests...)
}

// parseCategories reads a --categories flag value such as "5, 9".
func parseCategories(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid category id %q", part)
		}
		ids = append(ids, id)
	}
	return model.NormalizeCategories(ids), nil
}
