package setup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/campusmarket/campusmarket/internal/config"
	"github.com/campusmarket/campusmarket/internal/devserver"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func lines(ls ...string) io.Reader {
	return strings.NewReader(strings.Join(ls, "\n") + "\n")
}

func TestPrompter_StringDefaultAndRequired(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(lines("", "", "value"), &out)

	if got := p.String("Name", "dflt"); got != "dflt" {
		t.Errorf("String with default = %q, want dflt", got)
	}
	if got := p.String("Required", ""); got != "value" {
		t.Errorf("String required = %q, want value", got)
	}
	if !strings.Contains(out.String(), "required") {
		t.Errorf("output missing required notice:\n%s", out.String())
	}
}

func TestPrompter_DurationRetriesOutOfRange(t *testing.T) {
	p := NewPrompter(lines("5s", "soon", "90s"), io.Discard)
	if got := p.Duration("Interval", time.Minute, 10*time.Second, time.Hour); got != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", got)
	}
}

func TestPrompter_IntDefaultOnEOF(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), io.Discard)
	if got := p.Int("Workers", 4, 1, 64); got != 4 {
		t.Errorf("Int = %d, want default 4", got)
	}
}

func TestPrompter_Select(t *testing.T) {
	p := NewPrompter(lines("0", "3", "2"), io.Discard)
	idx, err := p.Select("Pick", []string{"a", "b"})
	if err != nil || idx != 1 {
		t.Errorf("Select = %d, %v; want 1, nil", idx, err)
	}
}

func TestPrompter_Confirm(t *testing.T) {
	p := NewPrompter(lines("", "yes", "n"), io.Discard)
	if !p.Confirm("q", true) {
		t.Error("Enter with defaultYes should confirm")
	}
	if !p.Confirm("q", false) {
		t.Error("yes should confirm")
	}
	if p.Confirm("q", true) {
		t.Error("n should decline")
	}
}

func TestWizard_WritesConfigAgainstDevServer(t *testing.T) {
	srv := httptest.NewServer(devserver.New(testLogger).Handler())
	defer srv.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	in := lines(
		srv.URL, // API URL
		"",      // token
		"u-42",  // user id
		"2m",    // poll interval
		"",      // request timeout (default)
		"2",     // workers
		"n",     // telemetry
	)
	var out bytes.Buffer
	cfg, err := NewWizard(in, &out, cfgPath, nil, testLogger).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	if cfg == nil {
		t.Fatal("Run returned nil config")
	}

	loaded, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if loaded.APIURL != srv.URL || loaded.UserID != "u-42" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.PollInterval != 2*time.Minute || loaded.RequestTimeout != 15*time.Second || loaded.Workers != 2 {
		t.Errorf("sync settings = %v / %v / %d", loaded.PollInterval, loaded.RequestTimeout, loaded.Workers)
	}
	if loaded.Telemetry != nil {
		t.Error("Telemetry should be nil")
	}
}

func TestWizard_UnreachableDeclined(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	ping := func(context.Context, string, string, *slog.Logger) error { return errors.New("connection refused") }

	_, err := NewWizard(lines("http://nowhere:1", "", "n"), io.Discard, cfgPath, ping, testLogger).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when the marketplace is unreachable")
	}
	if _, statErr := os.Stat(cfgPath); statErr == nil {
		t.Error("config written despite declining")
	}
}

func TestWizard_UnreachableSavedOfflineWithTelemetry(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	ping := func(context.Context, string, string, *slog.Logger) error { return errors.New("connection refused") }
	in := lines("https://market.example.edu", "tok", "y", "me", "", "", "", "y", "", "")

	cfg, err := NewWizard(in, io.Discard, cfgPath, ping, testLogger).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cfg.APIToken != "tok" || cfg.Telemetry == nil || cfg.Telemetry.OTLPEndpoint != "localhost:4317" || !cfg.Telemetry.Insecure {
		t.Errorf("cfg = %+v telemetry = %+v", cfg, cfg.Telemetry)
	}
}

func TestWizard_KeepsExistingConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("api_url: http://x\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewWizard(lines("1"), io.Discard, cfgPath, nil, testLogger).Run(context.Background())
	if err != nil || cfg != nil {
		t.Errorf("Run = %v, %v; want nil, nil", cfg, err)
	}
	data, _ := os.ReadFile(cfgPath)
	if string(data) != "api_url: http://x\n" {
		t.Errorf("existing config modified: %q", data)
	}
}
