// Package config loads the optional project file .xctrans.yaml. Values from
// the file are defaults; command-line flags override them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/xctrans/langs"
	"github.com/minios-linux/xctrans/provider"
)

// FileName is the project configuration file looked up in the project root.
const FileName = ".xctrans.yaml"

// DefaultConcurrency is the chunk size used when the file does not set one.
const DefaultConcurrency = 10

// ---------------------------------------------------------------------------
// .xctrans.yaml structures
// ---------------------------------------------------------------------------

// File is the top-level structure of .xctrans.yaml.
//
// Example:
//
//	languages: [de, fr, ja]
//	concurrency: 8
//	provider:
//	  kind: ollama
//	  model: qwen2.5:14b
//	  timeout: 2m
//	cache: .xctrans/cache.db
type File struct {
	// Languages is the target list for string catalogs.
	Languages []string `yaml:"languages,omitempty"`
	// Concurrency is the number of translations in flight per file.
	Concurrency int `yaml:"concurrency,omitempty"`
	// RewriteAll re-translates entries that are already translated.
	RewriteAll bool `yaml:"rewrite_all,omitempty"`
	// XLIFFSkipTranslated leaves XLIFF units with a filled target alone.
	XLIFFSkipTranslated bool `yaml:"xliff_skip_translated,omitempty"`

	Provider Provider `yaml:"provider,omitempty"`

	// Prompt overrides the system prompt template.
	Prompt string `yaml:"prompt,omitempty"`
	// Cache is the translation cache database path. Relative paths are
	// resolved against the directory holding the file.
	Cache string `yaml:"cache,omitempty"`

	// Path is where the file was loaded from; empty for defaults.
	Path string `yaml:"-"`
}

// Provider selects and tunes the translation backend. API keys are never
// read from the project file; see the settings package.
type Provider struct {
	Kind              string        `yaml:"kind,omitempty"`
	BaseURL           string        `yaml:"base_url,omitempty"`
	Model             string        `yaml:"model,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	MaxRetries        int           `yaml:"max_retries,omitempty"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	Proxy             string        `yaml:"proxy,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *File {
	return &File{
		Languages:   append([]string(nil), langs.DefaultTargets...),
		Concurrency: DefaultConcurrency,
		Provider:    Provider{Kind: provider.KindOpenAI},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads FileName from dir. A missing file is not an error: the
// defaults are returned with an empty Path.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the file at path, filling unset fields with
// their defaults.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Path = path

	if err := f.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// normalize applies defaults and validates every field.
func (f *File) normalize() error {
	if len(f.Languages) == 0 {
		f.Languages = append([]string(nil), langs.DefaultTargets...)
	} else {
		codes, err := langs.Normalize(f.Languages)
		if err != nil {
			return fmt.Errorf("languages: %w", err)
		}
		f.Languages = codes
	}

	switch {
	case f.Concurrency < 0:
		return fmt.Errorf("concurrency must not be negative, got %d", f.Concurrency)
	case f.Concurrency == 0:
		f.Concurrency = DefaultConcurrency
	}

	p := &f.Provider
	if p.Kind == "" {
		p.Kind = provider.KindOpenAI
	}
	if !provider.ValidKind(p.Kind) {
		return fmt.Errorf("provider: unknown kind %q (valid: %s)", p.Kind, strings.Join(provider.Kinds, ", "))
	}
	if p.Timeout < 0 {
		return fmt.Errorf("provider: timeout must not be negative, got %s", p.Timeout)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("provider: max_retries must not be negative, got %d", p.MaxRetries)
	}
	if p.RequestsPerSecond < 0 {
		return fmt.Errorf("provider: requests_per_second must not be negative, got %g", p.RequestsPerSecond)
	}

	if f.Cache != "" && f.Path != "" && !filepath.IsAbs(f.Cache) {
		f.Cache = filepath.Join(filepath.Dir(f.Path), f.Cache)
	}
	return nil
}

// ProviderConfig converts the file's provider section into a client
// configuration. The API key is left empty.
func (f *File) ProviderConfig() provider.Config {
	return provider.Config{
		Kind:              f.Provider.Kind,
		BaseURL:           f.Provider.BaseURL,
		Model:             f.Provider.Model,
		Proxy:             f.Provider.Proxy,
		Timeout:           f.Provider.Timeout,
		MaxRetries:        f.Provider.MaxRetries,
		RequestsPerSecond: f.Provider.RequestsPerSecond,
		Prompt:            f.Prompt,
	}
}

// Save writes f to path in YAML form.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
