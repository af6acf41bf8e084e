package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/previewd/internal/config"
	"git.home.luguber.info/inful/previewd/internal/daemon"
	"git.home.luguber.info/inful/previewd/internal/metrics"
	"git.home.luguber.info/inful/previewd/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"previewd.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Daemon struct {
	} `cmd:"" help:"Run the live preview daemon"`

	Clean struct {
		All bool `help:"Evict every session regardless of age"`
	} `cmd:"" help:"Sweep expired session workspaces once and exit"`

	Version struct {
	} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	config.LoadDotEnv()

	switch ctx.Command() {
	case "daemon":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "clean":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runClean(cfg, CLI.Clean.All); err != nil {
			slog.Error("Clean failed", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println(version.String())
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(CLI.Config)
}

func runDaemon(cfg *config.Config) error {
	if !CLI.Verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, metrics.NewPrometheusRecorder(nil))
	if err != nil {
		return err
	}
	return d.Run(ctx)
}
