// Package i18n localizes the xctrans command line itself.
//
// Message catalogs are gettext .po files embedded under
// locales/{lang}/LC_MESSAGES/xctrans.po. Init picks the catalog that best
// matches the user's preferences; T and N look messages up in it and pass
// the msgid through when nothing matches.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

//go:embed all:locales
var locales embed.FS

const domain = "xctrans"

// EnvUILang overrides the interface language regardless of the locale
// environment.
const EnvUILang = "XCTRANS_UI_LANG"

// fallback is the language msgids are written in.
const fallback = "en"

var (
	po     *gotext.Locale
	active = fallback
)

// Init loads the catalog for lang. An empty lang is resolved from
// XCTRANS_UI_LANG and then the gettext variables LANGUAGE (every entry of
// the list), LC_ALL, LC_MESSAGES and LANG. Languages without an embedded
// catalog fall back to English.
func Init(lang string) {
	prefs := []string{lang}
	if lang == "" {
		prefs = preferences()
	}
	active = match(prefs, available())
	if active == fallback {
		po = nil
		return
	}
	po = gotext.NewLocaleFSWithPath(active, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the catalog chosen by the last Init.
func Language() string { return active }

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms using the catalog's plural
// formula, or English rules without a catalog.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// ---------------------------------------------------------------------------
// Language selection
// ---------------------------------------------------------------------------

// preferences lists candidate locales from the environment, most preferred
// first.
func preferences() []string {
	var out []string
	if v := os.Getenv(EnvUILang); v != "" {
		out = append(out, v)
	}
	if v := os.Getenv("LANGUAGE"); v != "" {
		out = append(out, strings.Split(v, ":")...)
	}
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(env); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// available returns the embedded catalog directories with English first.
func available() []string {
	dirs := []string{fallback}
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return dirs
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != fallback {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}

// match picks the entry of supported that best serves prefs. POSIX locale
// names such as "pt_BR.UTF-8@euro" are accepted; C and POSIX are ignored.
func match(prefs, supported []string) string {
	var want []language.Tag
	for _, p := range prefs {
		if tag, ok := parseLocale(p); ok {
			want = append(want, tag)
		}
	}
	if len(want) == 0 {
		return fallback
	}

	tags := make([]language.Tag, 0, len(supported))
	names := make([]string, 0, len(supported))
	for _, s := range supported {
		if tag, ok := parseLocale(s); ok {
			tags = append(tags, tag)
			names = append(names, s)
		}
	}
	if len(tags) == 0 {
		return fallback
	}
	_, idx, conf := language.NewMatcher(tags).Match(want...)
	if conf == language.No {
		return fallback
	}
	return names[idx]
}

func parseLocale(s string) (language.Tag, bool) {
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}
