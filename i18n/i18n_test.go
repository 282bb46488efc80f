package i18n

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvUILang, "")
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestPreferencesOrder(t *testing.T) {
	clearLocaleEnv(t)
	t.Setenv(EnvUILang, "de")
	t.Setenv("LANGUAGE", "fr_FR:ru")
	t.Setenv("LANG", "pt_BR.UTF-8")

	want := []string{"de", "fr_FR", "ru", "pt_BR.UTF-8"}
	if diff := cmp.Diff(want, preferences()); diff != "" {
		t.Fatalf("preferences() mismatch (-want +got):\n%s", diff)
	}
}

func TestMatch(t *testing.T) {
	supported := []string{"en", "ru"}
	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"region and encoding stripped", []string{"ru_RU.UTF-8"}, "ru"},
		{"later LANGUAGE entry used", []string{"fr_FR", "ru"}, "ru"},
		{"C and POSIX ignored", []string{"C", "POSIX", "ru_UA@euro"}, "ru"},
		{"unsupported falls back", []string{"de_DE"}, "en"},
		{"garbage ignored", []string{"!!", ""}, "en"},
		{"nothing set", nil, "en"},
	}
	for _, tt := range tests {
		if got := match(tt.prefs, supported); got != tt.want {
			t.Errorf("%s: match(%q) = %q, want %q", tt.name, tt.prefs, got, tt.want)
		}
	}
}

func TestInitHonoursOverride(t *testing.T) {
	old, oldActive := po, active
	t.Cleanup(func() { po, active = old, oldActive })

	clearLocaleEnv(t)
	t.Setenv("LANG", "en_US.UTF-8")
	t.Setenv(EnvUILang, "ru")
	Init("")
	if Language() != "ru" {
		t.Fatalf("Language() = %q, want ru", Language())
	}
	if got := T("Translation failed"); got != "Перевод не удался" {
		t.Fatalf("T() = %q, want Russian translation", got)
	}

	t.Setenv(EnvUILang, "")
	t.Setenv("LANG", "de_DE.UTF-8")
	Init("")
	if Language() != "en" {
		t.Fatalf("Language() = %q, want en", Language())
	}
	if got := T("Translation failed"); got != "Translation failed" {
		t.Fatalf("T() = %q, want passthrough", got)
	}
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("Hello"); got != "Hello" {
		t.Fatalf("T fallback = %q, want %q", got, "Hello")
	}

	if got := N("file", "files", 1); got != "file" {
		t.Fatalf("N singular fallback = %q, want %q", got, "file")
	}

	if got := N("file", "files", 2); got != "files" {
		t.Fatalf("N plural fallback = %q, want %q", got, "files")
	}
}

func TestEmbeddedRussianCatalog(t *testing.T) {
	old, oldActive := po, active
	t.Cleanup(func() { po, active = old, oldActive })

	Init("ru")

	if got := T("Translation failed"); got != "Перевод не удался" {
		t.Fatalf("T(ru) = %q, want Russian translation", got)
	}
	if got := T("untranslated message"); got != "untranslated message" {
		t.Fatalf("T(missing) = %q, want passthrough", got)
	}
	if got := N("%d translation failed:", "%d translations failed:", 5); got != "Не удалось %d переводов:" {
		t.Fatalf("N(ru, 5) = %q", got)
	}
	if got := N("%d translation failed:", "%d translations failed:", 3); got != "Не удались %d перевода:" {
		t.Fatalf("N(ru, 3) = %q", got)
	}
}
