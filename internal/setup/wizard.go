package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/campusmarket/campusmarket/internal/config"
	"github.com/campusmarket/campusmarket/internal/marketplace"
)

// PingFunc checks that the marketplace at apiURL answers.
type PingFunc func(ctx context.Context, apiURL, token string, logger *slog.Logger) error

// PingMarketplace is the default PingFunc: a marketplace client health check
// with the client's startup retry.
func PingMarketplace(ctx context.Context, apiURL, token string, logger *slog.Logger) error {
	c, err := marketplace.NewClient(apiURL, token, 10*time.Second, logger)
	if err != nil {
		return err
	}
	return c.Ping(ctx)
}

// Wizard guides the user through first-run configuration.
type Wizard struct {
	prompt  *Prompter
	logger  *slog.Logger
	w       io.Writer
	cfgPath string
	ping    PingFunc
}

// NewWizard creates a Wizard that writes its result to cfgPath.
func NewWizard(r io.Reader, w io.Writer, cfgPath string, ping PingFunc, logger *slog.Logger) *Wizard {
	if ping == nil {
		ping = PingMarketplace
	}
	return &Wizard{
		prompt:  NewPrompter(r, w),
		logger:  logger,
		w:       w,
		cfgPath: cfgPath,
		ping:    ping,
	}
}

// Run executes the wizard: marketplace connection, account, sync settings,
// optional telemetry, then save. It returns the saved config, or nil if the
// user kept an existing file.
func (wiz *Wizard) Run(ctx context.Context) (*config.Config, error) {
	fmt.Fprintf(wiz.w, "\nWelcome to campusmarket setup!\n")
	fmt.Fprintf(wiz.w, "This wizard writes %s.\n\n", wiz.cfgPath)

	if _, statErr := os.Stat(wiz.cfgPath); statErr == nil {
		idx, err := wiz.prompt.Select("A config file already exists", []string{"Keep it", "Overwrite it"})
		if err != nil {
			return nil, fmt.Errorf("choosing whether to overwrite: %w", err)
		}
		if idx == 0 {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return nil, nil //nolint:nilnil // nothing written
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	// Step 1: marketplace connection.
	fmt.Fprintf(wiz.w, "Step 1/4: Marketplace connection\n")

	apiURL := wiz.prompt.String("API URL", "http://localhost:8080")
	token := wiz.prompt.Optional("API token")

	fmt.Fprintf(wiz.w, "  Connecting to the marketplace...")
	if err := wiz.ping(ctx, apiURL, token, wiz.logger); err != nil {
		fmt.Fprintf(wiz.w, " failed\n")
		if !wiz.prompt.Confirm("Save anyway and start offline?", false) {
			return nil, fmt.Errorf("cannot reach the marketplace at %s: %w", apiURL, err)
		}
	} else {
		fmt.Fprintf(wiz.w, " ok\n")
	}
	fmt.Fprintf(wiz.w, "\n")

	// Step 2: account.
	fmt.Fprintf(wiz.w, "Step 2/4: Account\n")
	userID := wiz.prompt.String("Your marketplace user ID", "")
	fmt.Fprintf(wiz.w, "\n")

	// Step 3: sync.
	fmt.Fprintf(wiz.w, "Step 3/4: Sync\n")
	poll := wiz.prompt.Duration("Refresh interval for the daemon", time.Minute, 10*time.Second, time.Hour)
	timeout := wiz.prompt.Duration("Request timeout", 15*time.Second, time.Second, 2*time.Minute)
	workers := wiz.prompt.Int("Concurrent screen loads", 4, 1, 64)
	fmt.Fprintf(wiz.w, "\n")

	// Step 4: telemetry and save.
	fmt.Fprintf(wiz.w, "Step 4/4: Telemetry and save\n")
	cfg := &config.Config{
		APIURL:         apiURL,
		APIToken:       token,
		UserID:         userID,
		RequestTimeout: timeout,
		PollInterval:   poll,
		Workers:        workers,
	}
	if wiz.prompt.Confirm("Export traces and metrics to an OTLP collector?", false) {
		cfg.Telemetry = &config.TelemetryConfig{
			OTLPEndpoint: wiz.prompt.String("Collector gRPC endpoint", "localhost:4317"),
			Insecure:     wiz.prompt.Confirm("Connect without TLS?", true),
		}
	}

	if err := config.Save(wiz.cfgPath, cfg); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	wiz.logger.Info("config written", "path", wiz.cfgPath)

	fmt.Fprintf(wiz.w, "  Config written to %s\n\n", wiz.cfgPath)
	fmt.Fprintf(wiz.w, "Next steps:\n")
	fmt.Fprintf(wiz.w, "  campusmarket sync-once   fill the local cache\n")
	fmt.Fprintf(wiz.w, "  campusmarket items       browse listings\n")
	fmt.Fprintf(wiz.w, "  campusmarket daemon      keep the cache fresh\n\n")
	return cfg, nil
}
