package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/minios-linux/xctrans/config"
	"github.com/minios-linux/xctrans/translate"
	"github.com/minios-linux/xctrans/xcstrings"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{
			name:    "clamps below zero",
			percent: -10,
			width:   4,
			want:    colorRed + "░░░░" + colorReset + "   0%",
		},
		{
			name:    "mid range uses yellow",
			percent: 50,
			width:   4,
			want:    colorYellow + "██░░" + colorReset + "  50%",
		},
		{
			name:    "clamps above hundred",
			percent: 120,
			width:   4,
			want:    colorGreen + "████" + colorReset + " 100%",
		},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLangHelpers(t *testing.T) {
	codes := []string{"de", "pt-BR", "zh-Hant"}
	if got := langColumnWidth(codes); got != len("zh-Hant") {
		t.Fatalf("langColumnWidth() = %d, want %d", got, len("zh-Hant"))
	}

	cell := langCell("pt-BR", 7)
	if !strings.Contains(cell, "🇧🇷") || !strings.HasSuffix(cell, "pt-BR  ") {
		t.Fatalf("langCell(pt-BR) = %q, want flag and padded code", cell)
	}
	if got := langCell("", 2); !strings.HasSuffix(got, "? ") {
		t.Fatalf("langCell(empty) = %q, want placeholder", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Привет, мир", 6); got != "Привет…" {
		t.Fatalf("truncate() = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
}

func TestClassifyEvent(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		ev   translate.Event
		want progressKind
	}{
		{"summary", translate.Event{Status: translate.StatusError, Err: boom}, progressIgnore},
		{"planning", translate.Event{Status: translate.StatusInProgress, Planned: 4}, progressPlanned},
		{"translated", translate.Event{Status: translate.StatusInProgress, Text: "Hello", Lang: "fr"}, progressDone},
		{"failed task", translate.Event{Status: translate.StatusInProgress, Text: "Hello", Lang: "fr", Err: boom}, progressFailed},
		{"file error", translate.Event{Status: translate.StatusInProgress, File: "a.xliff", Err: boom}, progressWarning},
		{"message", translate.Event{Status: translate.StatusInProgress, Message: "scanning"}, progressNote},
	}
	for _, tt := range tests {
		if got := classifyEvent(tt.ev); got != tt.want {
			t.Errorf("%s: classifyEvent() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cmd := newTranslateCmd()
	err := cmd.Flags().Parse([]string{
		"--lang", "ja, de,ja",
		"--provider", "Ollama",
		"--model", "qwen2.5",
		"--concurrency", "3",
		"--timeout", "90s",
		"--cache", "auto",
		"--xliff-skip-translated",
	})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	cfg := config.Default()
	cfg.Provider.Proxy = "http://from-file:3128"
	if err := applyFlags(cfg, cmd.Flags(), readArgs(t, cmd)); err != nil {
		t.Fatalf("applyFlags() error: %v", err)
	}

	if diff := cmp.Diff([]string{"ja", "de"}, cfg.Languages); diff != "" {
		t.Errorf("Languages mismatch (-want +got):\n%s", diff)
	}
	if cfg.Provider.Kind != "ollama" || cfg.Provider.Model != "qwen2.5" || cfg.Provider.Timeout != 90*time.Second {
		t.Errorf("Provider = %+v", cfg.Provider)
	}
	if cfg.Provider.Proxy != "http://from-file:3128" {
		t.Errorf("unset flag overrode file value: proxy = %q", cfg.Provider.Proxy)
	}
	if cfg.Concurrency != 3 || !cfg.XLIFFSkipTranslated || cfg.RewriteAll {
		t.Errorf("cfg = %+v", cfg)
	}
	if !strings.HasSuffix(cfg.Cache, filepath.Join("xctrans", "cache.db")) {
		t.Errorf("Cache = %q, want the default cache path", cfg.Cache)
	}
}

func TestApplyFlagsRejectsInvalidValues(t *testing.T) {
	cases := [][]string{
		{"--provider", "bard"},
		{"--concurrency", "0"},
		{"--lang", "de,not a tag!"},
		{"--lang", " , "},
	}
	for _, args := range cases {
		cmd := newTranslateCmd()
		if err := cmd.Flags().Parse(args); err != nil {
			t.Fatalf("Parse(%v) error: %v", args, err)
		}
		if err := applyFlags(config.Default(), cmd.Flags(), readArgs(t, cmd)); err == nil {
			t.Errorf("applyFlags(%v) succeeded, want error", args)
		}
	}
}

// readArgs rebuilds translateArgs from a parsed translate command.
func readArgs(t *testing.T, cmd *cobra.Command) translateArgs {
	t.Helper()
	f := cmd.Flags()
	var a translateArgs
	a.langs, _ = f.GetString("lang")
	a.rewriteAll, _ = f.GetBool("rewrite-all")
	a.skipTranslated, _ = f.GetBool("xliff-skip-translated")
	a.concurrency, _ = f.GetInt("concurrency")
	a.provider, _ = f.GetString("provider")
	a.model, _ = f.GetString("model")
	a.baseURL, _ = f.GetString("base-url")
	a.apiKey, _ = f.GetString("api-key")
	a.prompt, _ = f.GetString("prompt")
	a.cache, _ = f.GetString("cache")
	a.dryRun, _ = f.GetBool("dry-run")
	a.timeout, _ = f.GetDuration("timeout")
	a.maxRetries, _ = f.GetInt("max-retries")
	a.rps, _ = f.GetFloat64("rps")
	a.proxy, _ = f.GetString("proxy")
	return a
}

const cliCatalog = `{"sourceLanguage":"en","strings":{"Hello":{"localizations":{}},"42":{}}}`

func TestTranslateCommandEndToEnd(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XCTRANS_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-cli" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "Bonjour"}}},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "Localizable.xcstrings")
	if err := os.WriteFile(path, []byte(cliCatalog), 0644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	root.SetArgs([]string{
		"--log-level", "off",
		"translate",
		"--provider", "openai",
		"--base-url", srv.URL,
		"--api-key", "sk-cli",
		"--lang", "fr",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	// "42" is numeric and passes through without a request.
	if got := calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
	c, err := xcstrings.ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loc, _ := c.Localization("Hello", "fr"); loc.Value != "Bonjour" || loc.State != "translated" {
		t.Errorf("Hello/fr = %+v", loc)
	}
	if loc, _ := c.Localization("42", "fr"); loc.Value != "42" {
		t.Errorf("42/fr = %+v", loc)
	}
}

func TestTranslateCommandFailsWhenEveryFileFails(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "broken.xcstrings"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	root.SetArgs([]string{"--log-level", "off", "translate", "--dry-run"})
	if err := root.Execute(); err != errFailed {
		t.Fatalf("Execute() error = %v, want errFailed", err)
	}
}

func TestTranslateCommandDryRunNeedsNoKey(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XCTRANS_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "Localizable.xcstrings")
	if err := os.WriteFile(path, []byte(cliCatalog), 0644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	root.SetArgs([]string{"--log-level", "off", "translate", "--dry-run", "--lang", "de"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != cliCatalog {
		t.Error("dry run modified the catalog")
	}
}

func TestTranslateCommandMissingKey(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XCTRANS_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(t.TempDir())

	root := newRootCmd()
	root.SetArgs([]string{"--log-level", "off", "translate", "--provider", "openai"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "auth login --provider openai") {
		t.Fatalf("Execute() error = %v, want missing credential hint", err)
	}
}
