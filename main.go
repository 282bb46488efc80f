// xctrans translates Xcode string catalogs (.xcstrings) and XLIFF exports
// (.xliff) with an LLM translation provider.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/xctrans/cache"
	"github.com/minios-linux/xctrans/config"
	"github.com/minios-linux/xctrans/discover"
	"github.com/minios-linux/xctrans/i18n"
	"github.com/minios-linux/xctrans/langs"
	"github.com/minios-linux/xctrans/logging"
	"github.com/minios-linux/xctrans/provider"
	"github.com/minios-linux/xctrans/settings"
	"github.com/minios-linux/xctrans/translate"
	"github.com/minios-linux/xctrans/xcstrings"
	"github.com/minios-linux/xctrans/xliff"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	configPath string
	logLevel   string
	logFormat  string
)

// errFailed reports a run whose terminal status was "error". Details have
// already been printed.
var errFailed = errors.New("translation failed")

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xctrans",
		Short: i18n.T("Translate Xcode string catalogs and XLIFF files with AI"),
		Long: i18n.T(`xctrans translates Xcode string catalogs (.xcstrings) and XLIFF
exports (.xliff) with an LLM translation provider.

Directories are searched recursively. Every file is processed concurrently
and independently: a file that cannot be read, parsed or written does not
stop the others.

Commands:
  translate   Translate missing entries in place
  status      Show per-file and per-language translation progress
  auth        Manage provider API keys

Providers:
  openai      OpenAI (or any OpenAI-compatible endpoint via --base-url)
  ollama      Local Ollama server, no key needed
  gemini      Google Gemini API
  anthropic   Anthropic Messages API`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(logLevel, logFormat, os.Stderr)
		},
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&configPath, "config", "", i18n.T("Project file (default: ./.xctrans.yaml when present)"))
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", i18n.T("Log level: debug, info, warn, error, off"))
	root.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, i18n.T("Log format: console or json"))

	root.AddCommand(
		newTranslateCmd(),
		newStatusCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			logError("%v", err)
		}
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  i18n.T("Display version, commit hash, and build date."),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xctrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// loadConfig reads --config, or the project file of the working directory.
func loadConfig() (*config.File, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(".")
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	langs          string
	rewriteAll     bool
	concurrency    int
	provider       string
	model          string
	baseURL        string
	apiKey         string
	timeout        time.Duration
	maxRetries     int
	rps            float64
	proxy          string
	prompt         string
	skipTranslated bool
	cache          string
	dryRun         bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate [paths...]",
		Short: i18n.T("Translate string catalogs and XLIFF files in place"),
		Long: i18n.T(`Translate every .xcstrings and .xliff file found under the given paths
(default: the current directory).

String catalogs are translated into the configured target languages; entries
that already have a localization are kept unless --rewrite-all is given.
XLIFF units are translated into their file's target-language.

Examples:
  # Translate an Xcode project with OpenAI
  xctrans translate ./MyApp

  # Only German and Japanese, with a local model
  xctrans translate --provider ollama --model qwen2.5:14b --lang de,ja ./MyApp

  # Refresh an XLIFF export but keep existing targets
  xctrans translate --xliff-skip-translated ./Export/fr.xliff

  # Show what would be translated
  xctrans translate --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runTranslate(cmd.Context(), cmd.Flags(), a, args)
		},
	}

	// Target selection
	cmd.Flags().StringVar(&a.langs, "lang", "", i18n.T("Target languages for string catalogs (comma-separated)"))
	cmd.Flags().BoolVar(&a.rewriteAll, "rewrite-all", false, i18n.T("Re-translate entries that already have a translation"))
	cmd.Flags().BoolVar(&a.skipTranslated, "xliff-skip-translated", false, i18n.T("Keep XLIFF units that already have a target"))

	// Provider selection
	cmd.Flags().StringVar(&a.provider, "provider", "", i18n.T("Provider: openai, ollama, gemini, anthropic"))
	cmd.Flags().StringVar(&a.model, "model", "", i18n.T("Model name (default: provider's default)"))
	cmd.Flags().StringVar(&a.baseURL, "base-url", "", i18n.T("Custom API base URL"))
	cmd.Flags().StringVar(&a.apiKey, "api-key", "", i18n.T("API key (or XCTRANS_API_KEY env var)"))
	cmd.Flags().StringVar(&a.prompt, "prompt", "", i18n.T("Custom system prompt ({{sourceLang}} and {{targetLang}} placeholders)"))

	// Execution
	cmd.Flags().IntVar(&a.concurrency, "concurrency", config.DefaultConcurrency, i18n.T("Translations in flight per file"))
	cmd.Flags().StringVar(&a.cache, "cache", "", i18n.T("Translation cache database (\"auto\" for the user data directory)"))
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, i18n.T("Show what would be translated without calling the provider"))

	// Network
	cmd.Flags().DurationVar(&a.timeout, "timeout", 0, i18n.T("Request timeout (0 = provider default)"))
	cmd.Flags().IntVar(&a.maxRetries, "max-retries", 0, i18n.T("Retries per request on rate limits and server errors (0 = default)"))
	cmd.Flags().Float64Var(&a.rps, "rps", 0, i18n.T("Maximum requests per second (0 = unlimited)"))
	cmd.Flags().StringVar(&a.proxy, "proxy", "", i18n.T("HTTP/HTTPS proxy URL"))

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"openai\tOpenAI or compatible endpoint",
			"ollama\tOllama local server",
			"gemini\tGoogle Gemini API",
			"anthropic\tAnthropic Messages API",
		}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("lang", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		out := make([]string, 0, len(langs.DefaultTargets))
		for _, code := range langs.DefaultTargets {
			out = append(out, code+"\t"+langs.DisplayName(code))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// applyFlags overlays the flags that were set on the command line onto the
// project configuration.
func applyFlags(cfg *config.File, flags *pflag.FlagSet, a translateArgs) error {
	set := flags.Changed

	if set("lang") {
		codes, err := langs.Normalize(langs.Split(a.langs))
		if err != nil {
			return err
		}
		if len(codes) == 0 {
			return errors.New(i18n.T("--lang needs at least one language"))
		}
		cfg.Languages = codes
	}
	if set("rewrite-all") {
		cfg.RewriteAll = a.rewriteAll
	}
	if set("xliff-skip-translated") {
		cfg.XLIFFSkipTranslated = a.skipTranslated
	}
	if set("concurrency") {
		if a.concurrency < 1 {
			return fmt.Errorf(i18n.T("--concurrency must be at least 1, got %d"), a.concurrency)
		}
		cfg.Concurrency = a.concurrency
	}
	if set("provider") {
		kind := strings.ToLower(a.provider)
		if !provider.ValidKind(kind) {
			return fmt.Errorf(i18n.T("unknown provider %q (supported: %s)"), a.provider, strings.Join(provider.Kinds, ", "))
		}
		cfg.Provider.Kind = kind
	}
	if set("model") {
		cfg.Provider.Model = a.model
	}
	if set("base-url") {
		cfg.Provider.BaseURL = a.baseURL
	}
	if set("timeout") {
		cfg.Provider.Timeout = a.timeout
	}
	if set("max-retries") {
		cfg.Provider.MaxRetries = a.maxRetries
	}
	if set("rps") {
		cfg.Provider.RequestsPerSecond = a.rps
	}
	if set("proxy") {
		cfg.Provider.Proxy = a.proxy
	}
	if set("prompt") {
		cfg.Prompt = a.prompt
	}
	if set("cache") {
		cfg.Cache = a.cache
	}
	if cfg.Cache == "auto" {
		p, err := settings.DefaultCachePath()
		if err != nil {
			return err
		}
		cfg.Cache = p
	}
	return nil
}

// newTranslator builds the provider client, attaching the cache when one is
// configured. The returned close function releases the cache.
func newTranslator(cfg *config.File, apiKey string) (*provider.Client, func(), error) {
	pc := cfg.ProviderConfig()
	pc.APIKey = settings.ResolveAPIKey(pc.Kind, apiKey)
	if pc.BaseURL == "" {
		pc.BaseURL = settings.GetBaseURL(pc.Kind)
	}

	opts := []provider.Option{provider.WithLogger(log.Logger)}
	closeFn := func() {}
	if cfg.Cache != "" {
		c, err := cache.Open(cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf(i18n.T("opening cache: %w"), err)
		}
		if n, err := c.Len(context.Background()); err == nil {
			log.Debug().Str("path", cfg.Cache).Int("entries", n).Msg("translation cache opened")
		}
		opts = append(opts, provider.WithCache(c))
		closeFn = func() {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("closing cache")
			}
		}
	}

	client, err := provider.New(pc, opts...)
	if err != nil {
		closeFn()
		if errors.Is(err, provider.ErrNoCredential) {
			return nil, nil, fmt.Errorf(i18n.T("%w\n\nStore a key with:\n  xctrans auth login --provider %s\n\nor pass --api-key / set %s"),
				err, pc.Kind, settings.EnvAPIKey)
		}
		return nil, nil, err
	}
	return client, closeFn, nil
}

func runTranslate(ctx context.Context, flags *pflag.FlagSet, a translateArgs, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, flags, a); err != nil {
		return err
	}

	// A dry run never calls the provider, so it needs no credential.
	var tr translate.Translator
	if !a.dryRun {
		client, closeFn, err := newTranslator(cfg, a.apiKey)
		if err != nil {
			return err
		}
		defer closeFn()
		tr = client
		logInfo(i18n.T("Provider: %s, model: %s"), client.Kind(), client.Model())
	}

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, finishing current translations..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	stream := translate.NewStream()
	done := renderProgress(stream.Events(), logging.IsTerminal(os.Stderr))

	orch := translate.New(tr, translate.Options{
		Languages:      cfg.Languages,
		RewriteAll:     cfg.RewriteAll,
		SkipTranslated: cfg.XLIFFSkipTranslated,
		Concurrency:    cfg.Concurrency,
		DryRun:         a.dryRun,
		Stream:         stream,
	})
	rep, runErr := orch.Run(ctx, paths)
	stream.Close()
	<-done

	printReport(rep, a.dryRun)
	if rep.Status == translate.StatusError {
		if runErr != nil {
			logError("%v", runErr)
		}
		return errFailed
	}
	return nil
}

// progressKind says how a stream event moves the progress display.
type progressKind int

const (
	progressIgnore  progressKind = iota
	progressPlanned              // grows the bar's total
	progressDone                 // one task settled successfully
	progressFailed               // one task settled with an error
	progressWarning              // error not tied to a task
	progressNote
)

// classifyEvent maps an event to its progressKind. A failed task carries
// both Text and Err, so Err is checked first.
func classifyEvent(ev translate.Event) progressKind {
	switch {
	case ev.Status != translate.StatusInProgress:
		// The terminal summary is printed by printReport.
		return progressIgnore
	case ev.Planned > 0:
		return progressPlanned
	case ev.Err != nil && ev.Text != "":
		return progressFailed
	case ev.Err != nil:
		return progressWarning
	case ev.Text != "":
		return progressDone
	default:
		return progressNote
	}
}

// renderProgress consumes events until the stream closes. On a terminal it
// drives a progress bar sized by the planning events; otherwise every event
// becomes a log line.
func renderProgress(events <-chan translate.Event, interactive bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		if !interactive {
			for ev := range events {
				switch classifyEvent(ev) {
				case progressIgnore:
				case progressFailed, progressWarning:
					logWarning("%s", ev.Message)
				default:
					logInfo("%s", ev.Message)
				}
			}
			return
		}

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetDescription(i18n.T("[cyan]planning[reset]")),
			progressbar.OptionClearOnFinish(),
		)
		total := 0
		for ev := range events {
			switch classifyEvent(ev) {
			case progressPlanned:
				total += ev.Planned
				bar.ChangeMax(total)
			case progressFailed:
				_ = bar.Clear()
				logWarning("%s", ev.Message)
				_ = bar.Add(1)
			case progressWarning:
				_ = bar.Clear()
				logWarning("%s", ev.Message)
			case progressDone:
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] %s", ev.Lang, truncate(ev.Text, 30)))
				_ = bar.Add(1)
			}
		}
		_ = bar.Finish()
	}()
	return done
}

// printReport prints the run summary and every task failure.
func printReport(rep translate.Report, dryRun bool) {
	if dryRun {
		planned := 0
		for _, fr := range rep.Files {
			planned += fr.Planned
		}
		logInfo(i18n.N("%d file, %d strings to translate", "%d files, %d strings to translate", len(rep.Files)),
			len(rep.Files), planned)
		return
	}

	if len(rep.Failures) > 0 {
		logWarning(i18n.N("%d translation failed:", "%d translations failed:", len(rep.Failures)), len(rep.Failures))
		for _, f := range rep.Failures {
			fmt.Fprintf(os.Stderr, "  %s [%s] %q: %v\n", f.File, f.Task.TargetLang, truncate(f.Task.Text, 40), f.Err)
		}
	}
	for _, err := range rep.FileErrors {
		logError("%v", err)
	}

	written := 0
	for _, fr := range rep.Files {
		if fr.Written {
			written++
		}
	}
	switch rep.Status {
	case translate.StatusError:
		logError("%s", i18n.T("Translation failed"))
	default:
		logSuccess(i18n.T("Translation complete: %d strings translated, %d files written"), rep.Translated, written)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// ---------------------------------------------------------------------------
// status (read-only: per-file translation progress)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var langList string

	cmd := &cobra.Command{
		Use:   "status [paths...]",
		Short: i18n.T("Show translation progress of catalogs and XLIFF files"),
		Long: i18n.T(`Show per-file translation progress. String catalogs are reported per
target language, XLIFF files per <file> element. Does not modify any files.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if langList != "" {
				codes, err := langs.Normalize(langs.Split(langList))
				if err != nil {
					return err
				}
				cfg.Languages = codes
			}
			return runStatus(args, cfg.Languages)
		},
	}

	cmd.Flags().StringVar(&langList, "lang", "", i18n.T("Languages to report for string catalogs (comma-separated)"))
	return cmd
}

func runStatus(paths, languages []string) error {
	var exts []string
	for _, f := range translate.Formats() {
		exts = append(exts, f.Ext)
	}
	files, derr := discover.Find(paths, exts...)
	if derr != nil {
		logWarning("%v", derr)
	}
	if len(files) == 0 {
		if derr != nil {
			return errFailed
		}
		logInfo("%s", i18n.T("No .xcstrings or .xliff files found"))
		return nil
	}

	for _, path := range files {
		fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, path, colorReset)
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

		var err error
		if discover.HasExt(path, xcstrings.Ext) {
			err = showCatalogStatus(path, languages)
		} else {
			err = showXLIFFStatus(path)
		}
		if err != nil {
			logError("%v", err)
		}
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

func showCatalogStatus(path string, languages []string) error {
	c, err := xcstrings.ParseFile(path)
	if err != nil {
		return err
	}
	total, missing := c.Stats(languages)
	fmt.Fprintf(os.Stderr, i18n.T("String catalog, source %s, %d translatable strings")+"\n\n", c.SourceLanguage(), total)
	if total == 0 {
		return nil
	}

	codes := make([]string, 0, len(languages))
	for _, lang := range languages {
		if lang != c.SourceLanguage() {
			codes = append(codes, lang)
		}
	}
	width := langColumnWidth(codes)
	for _, lang := range codes {
		done := total - missing[lang]
		fmt.Fprintf(os.Stderr, "  %s %s %5d/%d\n", langCell(lang, width), progressBar(done*100/total, 20), done, total)
	}
	return nil
}

func showXLIFFStatus(path string) error {
	d, err := xliff.ParseFile(path)
	if err != nil {
		return err
	}
	stats := d.Stats()
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].TargetLang < stats[j].TargetLang })

	codes := make([]string, 0, len(stats))
	for _, fs := range stats {
		codes = append(codes, fs.TargetLang)
	}
	width := langColumnWidth(codes)
	for _, fs := range stats {
		percent := 100
		if fs.Units > 0 {
			percent = fs.Translated * 100 / fs.Units
		}
		name := fs.Original
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(os.Stderr, "  %s %s %5d/%d  %s\n", langCell(fs.TargetLang, width), progressBar(percent, 20), fs.Translated, fs.Units, name)
	}
	return nil
}

// progressBar renders a coloured bar followed by the percentage.
func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset + fmt.Sprintf(" %3d%%", percent)
}

// langColumnWidth returns the width of the widest language code.
func langColumnWidth(codes []string) int {
	w := 0
	for _, c := range codes {
		w = max(w, len(c))
	}
	return w
}

// langCell renders a language code padded to width, prefixed by its flag.
func langCell(code string, width int) string {
	if code == "" {
		code = "?"
	}
	flag := langs.Resolve(code).Flag
	if flag == "" {
		flag = "  "
	}
	return fmt.Sprintf("%s %-*s", flag, width, code)
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: i18n.T("Manage provider API keys"),
		Long: i18n.T(`Manage API keys for the translation providers.

Keys are stored in auth.json in the xctrans data directory with 0600
permissions. A key given with --api-key or the XCTRANS_API_KEY environment
variable always takes precedence.

Examples:
  xctrans auth login --provider openai     Store an OpenAI API key
  xctrans auth logout --provider gemini    Remove the Gemini key
  xctrans auth logout                      Remove all keys
  xctrans auth list                        Show stored keys`),
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)
	return cmd
}

// providerHelp is shown by auth login.
var providerHelp = map[string]struct {
	name    string
	helpURL string
}{
	provider.KindOpenAI:    {"OpenAI", "https://platform.openai.com/api-keys"},
	provider.KindOllama:    {"Ollama", ""},
	provider.KindGemini:    {"Google Gemini", "https://aistudio.google.com/apikey"},
	provider.KindAnthropic: {"Anthropic", "https://console.anthropic.com/settings/keys"},
}

func newAuthLoginCmd() *cobra.Command {
	var (
		kind    string
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: i18n.T("Store an API key for a provider"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !provider.ValidKind(kind) {
				return fmt.Errorf(i18n.T("unknown provider %q (supported: %s)"), kind, strings.Join(provider.Kinds, ", "))
			}
			return authLogin(kind, baseURL, bufio.NewScanner(os.Stdin))
		},
	}

	cmd.Flags().StringVar(&kind, "provider", provider.KindOpenAI, i18n.T("Provider to store the key for"))
	cmd.Flags().StringVar(&baseURL, "base-url", "", i18n.T("Custom endpoint to use with this key"))
	return cmd
}

func authLogin(kind, baseURL string, in *bufio.Scanner) error {
	info := providerHelp[kind]

	fmt.Fprintf(os.Stderr, "\n%s%s: %s%s\n", colorBlue, info.name, i18n.T("API key setup"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	if info.helpURL != "" {
		fmt.Fprintf(os.Stderr, "  %s %s%s%s\n\n", i18n.T("Get your API key from:"), colorGreen, info.helpURL, colorReset)
	}

	existing := settings.GetAPIKey(kind)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  %s %s%s%s\n", i18n.T("Current key:"), colorYellow, settings.MaskKey(existing), colorReset)
		fmt.Fprint(os.Stderr, "  "+i18n.T("Enter new key to replace, or press Enter to keep: "))
	} else {
		fmt.Fprint(os.Stderr, "  "+i18n.T("Enter API key: "))
	}

	if !in.Scan() {
		return errors.New(i18n.T("no input received"))
	}
	key := strings.TrimSpace(in.Text())
	if key == "" {
		if existing != "" && baseURL == "" {
			logInfo("%s", i18n.T("Keeping existing key"))
			return nil
		}
		if existing == "" && provider.NeedsKey(kind) {
			return errors.New(i18n.T("no API key provided"))
		}
		key = existing
	}

	if err := settings.SetAPIKeyWithBaseURL(kind, key, baseURL); err != nil {
		return fmt.Errorf(i18n.T("saving API key: %w"), err)
	}
	logSuccess(i18n.T("%s API key saved"), info.name)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: i18n.T("Remove stored API keys"),
		Long: i18n.T(`Remove the stored key of one provider, or of all providers when
--provider is not given.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("%s", i18n.T("All stored credentials removed"))
				return nil
			}
			if !provider.ValidKind(kind) {
				return fmt.Errorf(i18n.T("unknown provider %q (supported: %s)"), kind, strings.Join(provider.Kinds, ", "))
			}
			if err := settings.Remove(kind); err != nil {
				return err
			}
			logSuccess(i18n.T("%s credentials removed"), kind)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "provider", "", i18n.T("Provider to logout (default: all)"))
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return settings.Load().Providers(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   i18n.T("Show stored API keys"),
		Run: func(cmd *cobra.Command, args []string) {
			store := settings.Load()

			fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Stored Credentials"), colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			for _, kind := range provider.Kinds {
				entry := store[kind]
				switch {
				case entry != nil && entry.Key != "":
					status := fmt.Sprintf("%s%s%s (%s)", colorGreen, i18n.T("configured"), colorReset, settings.MaskKey(entry.Key))
					if entry.BaseURL != "" {
						status += fmt.Sprintf("\n  %14s %s", "", entry.BaseURL)
					}
					fmt.Fprintf(os.Stderr, "  %-14s %s\n", kind, status)
				case !provider.NeedsKey(kind):
					fmt.Fprintf(os.Stderr, "  %-14s %s\n", kind, i18n.T("no key needed"))
				default:
					fmt.Fprintf(os.Stderr, "  %-14s %s%s%s\n", kind, colorRed, i18n.T("not configured"), colorReset)
				}
			}

			fmt.Fprintf(os.Stderr, "\n  %s%s%s\n", colorYellow, i18n.T("Environment Variables"), colorReset)
			for _, env := range []string{settings.EnvAPIKey, "OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY"} {
				if v := os.Getenv(env); v != "" {
					fmt.Fprintf(os.Stderr, "  %-18s %s%s%s\n", env, colorGreen, settings.MaskKey(v), colorReset)
				} else {
					fmt.Fprintf(os.Stderr, "  %-18s %s%s%s\n", env, colorRed, i18n.T("not set"), colorReset)
				}
			}
			fmt.Fprintf(os.Stderr, "\n  %s %s\n\n", i18n.T("File:"), settings.FilePath())
		},
	}
}
