package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDataDirAndFilePathUseXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error: %v", err)
	}
	wantDir := filepath.Join(tmp, "xctrans")
	if dir != wantDir {
		t.Fatalf("DataDir() = %q, want %q", dir, wantDir)
	}

	wantPath := filepath.Join(tmp, "xctrans", "auth.json")
	if got := FilePath(); got != wantPath {
		t.Fatalf("FilePath() = %q, want %q", got, wantPath)
	}

	cachePath, err := DefaultCachePath()
	if err != nil {
		t.Fatalf("DefaultCachePath() error: %v", err)
	}
	if want := filepath.Join(tmp, "xctrans", "cache.db"); cachePath != want {
		t.Fatalf("DefaultCachePath() = %q, want %q", cachePath, want)
	}
}

func TestSaveLoadRemoveLifecycle(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store := Store{
		"openai": {Key: "sk-123456789"},
		"ollama": {Key: "local", BaseURL: "http://gpu:11434/v1"},
	}
	if err := Save(store); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	path := filepath.Join(tmp, "xctrans", "auth.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat auth.json: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("auth.json mode = %o, want 600", info.Mode().Perm())
	}

	loaded := Load()
	if diff := cmp.Diff(store, loaded); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
	if got := loaded.Providers(); !cmp.Equal(got, []string{"ollama", "openai"}) {
		t.Fatalf("Providers() = %v", got)
	}
	if got := GetBaseURL("ollama"); got != "http://gpu:11434/v1" {
		t.Fatalf("GetBaseURL(ollama) = %q", got)
	}

	if err := Remove("openai"); err != nil {
		t.Fatalf("Remove(openai) error: %v", err)
	}
	if got := GetAPIKey("openai"); got != "" {
		t.Fatalf("GetAPIKey after remove = %q, want empty", got)
	}
	if got := GetAPIKey("ollama"); got != "local" {
		t.Fatalf("ollama key should remain after removing openai, got %q", got)
	}

	if err := Remove("missing-provider"); err != nil {
		t.Fatalf("Remove(missing) should be no-op, got: %v", err)
	}

	if err := RemoveAll(); err != nil {
		t.Fatalf("RemoveAll() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("auth.json should be removed, stat err=%v", err)
	}
	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() after RemoveAll should be empty, got=%#v", got)
	}
}

func TestLoadIgnoresCorruptFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir := filepath.Join(tmp, "xctrans")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "auth.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() = %#v, want empty store", got)
	}
}

func TestResolveAPIKeyPriority(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)
	t.Setenv(EnvAPIKey, "")
	t.Setenv("OPENAI_API_KEY", "")

	if err := SetAPIKey("openai", "stored-key"); err != nil {
		t.Fatalf("SetAPIKey() error: %v", err)
	}
	if got := ResolveAPIKey("openai", ""); got != "stored-key" {
		t.Fatalf("stored key expected, got %q", got)
	}

	t.Setenv("OPENAI_API_KEY", "provider-env")
	if got := ResolveAPIKey("openai", ""); got != "provider-env" {
		t.Fatalf("provider env should win over store, got %q", got)
	}

	t.Setenv(EnvAPIKey, "xctrans-env")
	if got := ResolveAPIKey("openai", ""); got != "xctrans-env" {
		t.Fatalf("%s should win over provider env, got %q", EnvAPIKey, got)
	}

	if got := ResolveAPIKey("openai", "flag-key"); got != "flag-key" {
		t.Fatalf("flag should win, got %q", got)
	}
}

func TestEnvVarForProviderAndMaskKey(t *testing.T) {
	cases := map[string]string{
		"openai":    "OPENAI_API_KEY",
		"gemini":    "GEMINI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"ollama":    "",
		"unknown":   "",
	}
	for provider, want := range cases {
		if got := EnvVarForProvider(provider); got != want {
			t.Fatalf("EnvVarForProvider(%q) = %q, want %q", provider, got, want)
		}
	}

	if got := MaskKey("short"); got != "****" {
		t.Fatalf("MaskKey(short) = %q, want ****", got)
	}
	if got := MaskKey("12345678"); got != "****" {
		t.Fatalf("MaskKey(8 chars) = %q, want ****", got)
	}
	if got := MaskKey("123456789"); got != "1234...6789" {
		t.Fatalf("MaskKey(9 chars) = %q, want 1234...6789", got)
	}
}
