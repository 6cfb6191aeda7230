package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"monthcal/internal/config"
	appLog "monthcal/internal/log"
	"monthcal/internal/store"
	"monthcal/internal/ui"
	"monthcal/internal/web"
)

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	snapshot   bool
}

func main() {
	appLog.Info("monthcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
		conf.WithDataDir("./cache")
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"storage", conf.Storage.Driver,
		"snapshot_cron", conf.Snapshot.Cron,
		"ics_feeds", len(conf.ICSFeeds),
		"basic_auth", conf.BasicAuth != nil,
		"snapshot_once", flags.snapshot,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storage, closeStorage, err := openStorage(ctx, conf.Storage)
	if err != nil {
		appLog.Error("failed to open storage", err, "driver", conf.Storage.Driver)
		os.Exit(1)
	}
	defer closeStorage()

	st, err := store.Open(ctx, storage, store.Options{Location: conf.Location()})
	if err != nil {
		appLog.Error("failed to load events", err, "driver", conf.Storage.Driver)
		os.Exit(1)
	}

	srv, err := web.NewServer(conf, ui.NewController(st))
	if err != nil {
		appLog.Error("failed to create web server", err)
		os.Exit(1)
	}

	if flags.snapshot {
		if err := snapshotOnce(ctx, conf, srv); err != nil {
			appLog.Error("snapshot failed", err)
			os.Exit(1)
		}
		return
	}

	if conf.Snapshot.Cron != "" {
		c := cron.New(cron.WithLocation(conf.Location()))
		if _, err := c.AddFunc(conf.Snapshot.Cron, func() { captureSnapshot(ctx, conf) }); err != nil {
			appLog.Error("failed to schedule snapshot", err, "cron", conf.Snapshot.Cron)
			os.Exit(1)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		appLog.Info("snapshot schedule started", "cron", conf.Snapshot.Cron, "output", conf.Snapshot.Output)
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("monthcal exiting")
}

// openStorage builds the Storage selected in cfg and a matching close func.
func openStorage(ctx context.Context, cfg config.StorageConfig) (store.Storage, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemoryStorage(), func() {}, nil
	case config.DriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		pg, err := store.OpenPostgres(connectCtx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		appLog.Info("using file storage", "path", cfg.Path)
		return store.NewFileStorage(cfg.Path), func() {}, nil
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/monthcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging; keep data under ./cache")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Capture one PNG of the month view and exit")

	flag.Parse()

	return cfg
}
