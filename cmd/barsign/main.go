package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"barsign/internal/capture"
	"barsign/internal/config"
	appLog "barsign/internal/log"
	"barsign/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
	captureURL string
	logLevel   string
}

func main() {
	appLog.Info("barsign starting", "version", "0.1.0")

	flags := parseFlags()
	appLog.SetLevel(appLog.ParseLevel(flags.logLevel))

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"window_days", conf.WindowDays,
		"items_per_slide", conf.ItemsPerSlide,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	server := web.NewServer(conf, flags.debug)

	refresh := func() {
		refreshCtx, refreshCancel := context.WithTimeout(ctx, 2*time.Minute)
		defer refreshCancel()

		if err := server.Refresh(refreshCtx); err != nil {
			appLog.Error("refresh failed", err)
			return
		}
		if flags.captureURL != "" {
			if err := capture.BoardPNG(refreshCtx, capture.Options{
				URL:        flags.captureURL,
				OutputPath: server.PreviewPath(),
			}); err != nil {
				appLog.Error("preview capture failed", err)
			}
		}
	}

	// Initial refresh so the first playlist request is served warm.
	refresh()

	if flags.once {
		appLog.Info("single refresh complete, exiting")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	go func() {
		if err := web.StartServer(ctx, server); err != nil {
			appLog.Error("HTTP server stopped", err)
			cancel()
		}
	}()

	<-ctx.Done()

	// Give in-flight work a moment before exiting.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("barsign exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/barsign/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh cycle and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Use local cache paths and verbose behavior")
	flag.StringVar(&cfg.captureURL, "capture-url", "", "Board page URL to capture into preview.png after each refresh")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug, info, error")

	flag.Parse()

	return cfg
}
