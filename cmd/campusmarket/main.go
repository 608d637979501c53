// Campusmarket is the command-line client of the campus marketplace. It keeps
// a local SQLite cache of listings, bids, orders, and notifications in sync
// with the marketplace API and serves every screen from that cache when the
// network is down.
//
// Usage:
//
//	campusmarket setup                          # interactive first-run wizard
//	campusmarket sync-once [--config <path>]    # bootstrap + one refresh pass
//	campusmarket daemon [--config <path>]       # refresh on the poll interval
//	campusmarket items [--category N] [--search q] [--seller id]
//	campusmarket item <id>                      # cached listing detail
//	campusmarket bids <item>                    # cached leaderboard
//	campusmarket bid <item> <amount>            # place a bid
//	campusmarket list --title ... [flags]       # create a listing
//	campusmarket notifications [--unread] [--mark-read id] [--mark-all]
//	campusmarket status                         # show config and cache state
//	campusmarket devserver [--addr :8080]       # in-memory marketplace API
//	campusmarket version                        # print version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/campusmarket/campusmarket/internal/config"
	"github.com/campusmarket/campusmarket/internal/devserver"
	"github.com/campusmarket/campusmarket/internal/repository"
	"github.com/campusmarket/campusmarket/internal/setup"
	"github.com/campusmarket/campusmarket/internal/store"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the subcommand named by args[0].
func run(args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "setup":
		return runSetup(rest)
	case "sync-once":
		return runSync(rest, false)
	case "daemon":
		return runSync(rest, true)
	case "items":
		return runItems(rest)
	case "item":
		return runItem(rest)
	case "bids":
		return runBids(rest)
	case "bid":
		return runBid(rest)
	case "list":
		return runList(rest)
	case "notifications":
		return runNotifications(rest)
	case "status":
		return runStatus(rest)
	case "devserver":
		return runDevServer(rest)
	case "version":
		fmt.Println("campusmarket", version)
		return nil
	case "help", "-h", "--help":
		return printUsage()
	}

	return fmt.Errorf("unknown command %q, run 'campusmarket help' for usage", cmd)
}

// printUsage shows help and suggests setup if no config exists.
func printUsage() error {
	cfgPath, _ := config.DefaultPath()
	_, cfgErr := os.Stat(cfgPath)

	fmt.Fprintln(os.Stderr, "campusmarket: offline-first client for the campus marketplace")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  campusmarket setup                         Interactive first-run wizard")
	fmt.Fprintln(os.Stderr, "  campusmarket sync-once                     Fill the cache with one refresh pass")
	fmt.Fprintln(os.Stderr, "  campusmarket daemon                        Refresh on the poll interval")
	fmt.Fprintln(os.Stderr, "  campusmarket items [--category N] [--search q] [--seller id]")
	fmt.Fprintln(os.Stderr, "                                             Browse listings")
	fmt.Fprintln(os.Stderr, "  campusmarket item <id>                     Show one listing")
	fmt.Fprintln(os.Stderr, "  campusmarket bids <item>                   Show the bid leaderboard")
	fmt.Fprintln(os.Stderr, "  campusmarket bid <item> <amount>           Place a bid")
	fmt.Fprintln(os.Stderr, "  campusmarket list --title ... [flags]      Create a listing")
	fmt.Fprintln(os.Stderr, "  campusmarket notifications [--unread] [--mark-read id] [--mark-all]")
	fmt.Fprintln(os.Stderr, "  campusmarket status                        Show config and cache state")
	fmt.Fprintln(os.Stderr, "  campusmarket devserver [--addr :8080]      Run an in-memory marketplace")
	fmt.Fprintln(os.Stderr, "  campusmarket version                       Print version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Every command accepts --config <path> and --verbose.")

	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "No config file found. Run 'campusmarket setup' to get started.")
	}

	os.Exit(1)
	return nil // unreachable
}

// --- Subcommands -------------------------------------------------------------

// runSetup launches the interactive setup wizard.
func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	cfgPath, _ := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	_, err := setup.NewWizard(os.Stdin, os.Stdout, *cfgPath, nil, logger).Run(ctx)
	return err
}

// runSync handles both "daemon" and "sync-once".
func runSync(args []string, daemon bool) error {
	name := "sync-once"
	if daemon {
		name = "daemon"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := openApp(ctx, *cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer a.Close()

	// The cache must stay usable offline, so an unreachable marketplace is
	// only a warning here.
	a.log.Info("pinging marketplace", "url", a.cfg.APIURL)
	if err := a.client.Ping(ctx); err != nil {
		a.log.Warn("marketplace unreachable, serving from cache", "url", a.cfg.APIURL, "error", err)
	}

	// --- First-run bootstrap -------------------------------------------------

	if _, err := repository.NewBootstrap(a.items, a.store, a.log, os.Stdout).Run(ctx); err != nil {
		return fmt.Errorf("first-run bootstrap: %w", err)
	}

	// --- Sync engine ---------------------------------------------------------

	engine := repository.NewEngine(a.items, a.orders, a.notes, a.cfg.UserID, a.cfg.PollInterval, a.log)

	if !daemon {
		a.log.Info("running single sync pass")
		_, err := engine.RunOnce(ctx)
		return err
	}

	a.log.Info("daemon starting", "poll_interval", a.cfg.PollInterval, "user_id", a.cfg.UserID)
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sync engine: %w", err)
	}
	a.log.Info("shutdown complete")
	return nil
}

// runStatus prints the configuration and cache state.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath, _ := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("campusmarket status")
	fmt.Println("-------------------")

	dbPath, _ := store.DefaultDBPath()
	if _, err := os.Stat(*cfgPath); err == nil {
		if cfg, loadErr := config.Load(*cfgPath); loadErr == nil {
			fmt.Printf("  Config:    %s\n", *cfgPath)
			fmt.Printf("  API URL:   %s\n", cfg.APIURL)
			fmt.Printf("  User:      %s\n", orDash(cfg.UserID))
			fmt.Printf("  Poll:      %s\n", cfg.PollInterval)
			fmt.Printf("  Telemetry: %s\n", telemetryState(cfg))
			dbPath = cfg.DBPath
		} else {
			fmt.Printf("  Config:    %s (invalid: %v)\n", *cfgPath, loadErr)
		}
	} else {
		fmt.Printf("  Config:    not found (%s)\n", *cfgPath)
	}

	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("  Cache DB:  %s (%s)\n", dbPath, humanSize(info.Size()))
	} else {
		fmt.Printf("  Cache DB:  not found\n")
	}
	return nil
}

// runDevServer serves an in-memory marketplace API for local use.
func runDevServer(args []string) error {
	fs := flag.NewFlagSet("devserver", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	token := fs.String("token", "", "require this bearer token")
	demo := fs.Bool("demo", false, "seed a few demo listings")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv := devserver.New(logger, devserver.WithToken(*token))
	if *demo {
		srv.SeedDemo()
	}
	return srv.ListenAndServe(ctx, *addr)
}

// --- helpers -----------------------------------------------------------------

// commonFlags registers --config and --verbose on fs.
func commonFlags(fs *flag.FlagSet) (cfgPath *string, verbose *bool) {
	defaultCfg, _ := config.DefaultPath()
	cfgPath = fs.String("config", defaultCfg, "path to config.yaml")
	verbose = fs.Bool("verbose", false, "enable debug logging")
	return cfgPath, verbose
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

func telemetryState(cfg *config.Config) string {
	if cfg.Telemetry == nil {
		return "disabled"
	}
	return cfg.Telemetry.OTLPEndpoint
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
