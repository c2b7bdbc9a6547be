package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/async"
	"github.com/alanbriolat/nowplaying-dl/database"
	"github.com/alanbriolat/nowplaying-dl/internal/boltdb"
	"github.com/alanbriolat/nowplaying-dl/internal/session"
	"github.com/alanbriolat/nowplaying-dl/page/browser"
	"github.com/alanbriolat/nowplaying-dl/page/snapshot"
)

var (
	appConfig *nowplaying_dl.Config
	appLogger *zap.Logger
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "nowplaying-dl",
		Usage: "download the track currently playing in a web music player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "read configuration from `FILE`",
				EnvVars: []string{"NOWPLAYING_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "cdp",
				Usage: "attach to a running browser at `URL` (e.g. http://localhost:9222)",
			},
			&cli.StringFlag{
				Name:  "page-url",
				Usage: "player page `URL`, used to select the browser tab or to fetch the page",
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "read player state from a saved HTML `FILE` instead of a browser",
			},
			&cli.StringFlag{
				Name:  "storage",
				Usage: "JSON `FILE` with the page's localStorage, used with --snapshot or --page-url",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var cfg *nowplaying_dl.Config
			var err error
			if path := c.String("config"); path != "" {
				cfg, err = nowplaying_dl.LoadConfigFrom(path)
			} else {
				cfg, err = nowplaying_dl.LoadConfig()
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if v := c.String("cdp"); v != "" {
				cfg.Browser.CDPEndpoint = v
			}
			if v := c.String("page-url"); v != "" {
				cfg.Player.URLPrefix = v
			}
			if c.Bool("verbose") {
				cfg.Log.Level = "debug"
			}
			logger, err := newLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			appConfig = cfg
			appLogger = logger
			return nil
		},
		After: func(c *cli.Context) error {
			if appLogger != nil {
				_ = appLogger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			downloadCommand(),
			fileNameCommand(),
			infoCommand(),
			linkCommand(),
			historyCommand(),
			serveCommand(),
		},
		Action:          runDownload,
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.RunContext(ctx, os.Args) })

	select {
	case err := <-result:
		if err != nil {
			// Standard log still works if the logger was never built
			log.Fatal(err.Error())
		}
	case <-ctx.Done():
		zap.L().Error(ctx.Err().Error())
		stop()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)
	return logger, nil
}

// openPage picks the page source: a live browser tab, a saved snapshot, or the page fetched over HTTP.
func openPage(c *cli.Context, cfg *nowplaying_dl.Config) (nowplaying_dl.PageState, func(), error) {
	noop := func() {}
	switch {
	case cfg.Browser.CDPEndpoint != "":
		page, err := browser.Connect(browser.Options{
			CDPEndpoint: cfg.Browser.CDPEndpoint,
			URLPrefix:   cfg.Player.URLPrefix,
			Selectors:   cfg.Player.Selectors,
			TargetDir:   cfg.Download.Dir,
		})
		if err != nil {
			return nil, noop, err
		}
		return page, func() {
			if err := page.Close(); err != nil {
				zap.S().Warnf("failed to close browser connection: %v", err)
			}
		}, nil
	case c.String("snapshot") != "":
		provider, err := snapshot.NewFileProvider(c.String("snapshot"), c.String("storage"), cfg.Player.URLPrefix, cfg.Player.Selectors)
		if err != nil {
			return nil, noop, err
		}
		return provider, noop, nil
	case cfg.Player.URLPrefix != "":
		provider, err := snapshot.NewRemoteProvider(nil, cfg.Player.URLPrefix, c.String("storage"), cfg.Player.Selectors)
		if err != nil {
			return nil, noop, err
		}
		return provider, noop, nil
	default:
		return nil, noop, fmt.Errorf("no player page: use --cdp, --snapshot or --page-url")
	}
}

func openHistory(cfg *nowplaying_dl.Config) (nowplaying_dl.HistoryStore, error) {
	if cfg.History.Backend == nowplaying_dl.HistoryBackendNone {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0700); err != nil {
		return nil, err
	}
	switch cfg.History.Backend {
	case nowplaying_dl.HistoryBackendBolt:
		return boltdb.New(cfg.History.Path)
	case nowplaying_dl.HistoryBackendSQLite:
		return database.NewDatabase(cfg.History.Path)
	case nowplaying_dl.HistoryBackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

// withSession builds a session for the configured page and history, runs f, and tears everything down.
func withSession(c *cli.Context, registry *prometheus.Registry, f func(s *session.Session) error) error {
	cfg := appConfig
	page, closePage, err := openPage(c, cfg)
	if err != nil {
		return err
	}
	defer closePage()

	store, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	config := session.DefaultConfig
	config.Page = page
	config.TargetDir = cfg.Download.Dir
	config.CacheKey = cfg.Player.CacheKey
	config.HistoryLimit = cfg.History.Limit
	config.TagMP3 = cfg.Download.TagMP3
	if store != nil {
		config.History = store
	}
	if registry != nil {
		config.Registerer = registry
	}
	s, err := session.New(config)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			zap.S().Warnf("failed to close session: %v", err)
		}
	}()
	return f(s)
}

// withHistory opens only the history store, for commands that never touch the page.
func withHistory(c *cli.Context, f func(r *session.Recorder) error) error {
	cfg := appConfig
	store, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	r := session.NewRecorder(store, cfg.History.Limit)
	defer func() {
		if err := r.Close(); err != nil {
			zap.S().Warnf("failed to close history: %v", err)
		}
	}()
	return f(r)
}
