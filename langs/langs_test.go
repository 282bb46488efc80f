package langs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

func TestDefaultTargets(t *testing.T) {
	if len(DefaultTargets) != 50 {
		t.Fatalf("len(DefaultTargets) = %d, want 50", len(DefaultTargets))
	}
	seen := make(map[string]bool)
	for _, c := range DefaultTargets {
		if seen[c] {
			t.Errorf("duplicate code %q", c)
		}
		seen[c] = true
		if _, err := language.Parse(c); err != nil {
			t.Errorf("code %q does not parse: %v", c, err)
		}
	}
	for _, c := range []string{"es-419", "zh-Hans", "zh-Hant", "zh-HK", "pt-BR", "es-US"} {
		if !seen[c] {
			t.Errorf("missing %q", c)
		}
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]string{" fr ", "zh-Hans", "fr", "", "pt-BR"})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	want := []string{"fr", "zh-Hans", "pt-BR"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}

	if _, err := Normalize([]string{"fr", "not a language"}); err == nil {
		t.Error("Normalize() accepted an invalid code")
	}
}

func TestSplit(t *testing.T) {
	if got := Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if diff := cmp.Diff([]string{"fr", "de"}, Split("fr,de")); diff != "" {
		t.Errorf("Split() mismatch:\n%s", diff)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "fr", want: "French"},
		{in: "de", want: "German"},
		{in: "ja", want: "Japanese"},
		{in: "%%", want: "%%"},
	}
	for _, tc := range cases {
		if got := DisplayName(tc.in); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("region flag", func(t *testing.T) {
		got := Resolve("pt_BR")
		if got.Flag != "🇧🇷" {
			t.Fatalf("unexpected flag: %#v", got)
		}
		if got.Native == "" {
			t.Fatalf("missing native name: %#v", got)
		}
	})

	t.Run("inferred region", func(t *testing.T) {
		got := Resolve("fr")
		if got.Name != "French" || got.Flag != "🇫🇷" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("%%")
		if got.Name != "%%" || got.Flag != "" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}
