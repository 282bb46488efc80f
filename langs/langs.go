// Package langs provides the default target language list and language
// display metadata (English and native names, emoji flags) used by the
// translator prompts and the CLI.
package langs

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultTargets is the fixed list of languages string catalogs are
// translated into when no list is configured. Codes use Xcode's spelling.
var DefaultTargets = []string{
	"ar", "ca", "cs", "da", "de", "el", "es", "es-419", "fi", "fr",
	"fr-CA", "he", "hi", "hr", "hu", "id", "it", "ja", "ko", "ms",
	"nb", "nl", "pl", "pt-BR", "pt-PT", "ro", "ru", "sk", "sv", "th",
	"tr", "uk", "vi", "zh-Hans", "zh-Hant", "zh-HK", "bn", "bg", "kn", "kk",
	"lt", "ml", "mr", "or", "pa", "sl", "es-US", "ta", "te", "ur",
}

// Meta describes language display metadata.
type Meta struct {
	Code   string
	Name   string // English name
	Native string // name in the language itself
	Flag   string
}

// Normalize trims and de-duplicates codes, keeping their spelling (catalog
// keys must match exactly). A code that is not a valid BCP 47 tag is an
// error.
func Normalize(codes []string) ([]string, error) {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		if _, err := language.Parse(c); err != nil {
			return nil, fmt.Errorf("invalid language code %q: %w", c, err)
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// Split parses a comma-separated language list as given on the command line.
func Split(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	return strings.Split(list, ",")
}

// DisplayName returns the English name of code, or code itself when it is
// not a known language.
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// Resolve returns best-effort display metadata for code. Underscored
// variants such as pt_BR are accepted.
func Resolve(code string) Meta {
	m := Meta{Code: code, Name: code}
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return m
	}
	if name := display.English.Tags().Name(tag); name != "" {
		m.Name = name
	}
	m.Native = display.Self.Name(tag)
	m.Flag = flag(tag)
	return m
}

// flag builds the regional-indicator emoji for the tag's (possibly
// inferred) country.
func flag(tag language.Tag) string {
	region, conf := tag.Region()
	if conf == language.No || !region.IsCountry() {
		return ""
	}
	code := region.String()
	if len(code) != 2 {
		return ""
	}
	var sb strings.Builder
	for _, r := range code {
		sb.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return sb.String()
}
