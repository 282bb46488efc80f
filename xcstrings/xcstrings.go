// Package xcstrings implements reading, planning and writing of Xcode string
// catalogs (.xcstrings).
//
// A string catalog is a JSON document:
//
//	{
//	  "sourceLanguage" : "en",
//	  "strings" : {
//	    "Hello" : {
//	      "comment" : "Greeting",
//	      "localizations" : {
//	        "fr" : { "stringUnit" : { "state" : "translated", "value" : "Bonjour" } }
//	      }
//	    }
//	  },
//	  "version" : "1.0"
//	}
//
// Round-trip fidelity: every field, including ones this package does not
// know about, is kept in document order. Only missing localizations are
// added (or, with RewriteAll, replaced).
package xcstrings

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/minios-linux/xctrans/catalog"
)

// Ext is the file extension of string catalogs.
const Ext = ".xcstrings"

// Localization states written by Xcode.
const (
	StateNew        = "new"
	StateTranslated = "translated"
)

// Localization is the stringUnit of one language of an entry.
type Localization struct {
	State string
	Value string
	// Plural is set when the localization uses variations or substitutions
	// instead of a single stringUnit.
	Plural bool
}

// Catalog is a parsed string catalog.
type Catalog struct {
	mu             sync.Mutex
	root           *node
	strings        *node
	sourceLanguage string
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a string catalog from disk.
func ParseFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses string catalog content.
func Parse(data []byte) (*Catalog, error) {
	root, err := decodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrMalformedCatalog, err)
	}
	if root.kind != kindObject {
		return nil, fmt.Errorf("%w: top-level value is not an object", catalog.ErrMalformedCatalog)
	}

	src, ok := root.field("sourceLanguage").str()
	if !ok {
		return nil, fmt.Errorf("%w: missing sourceLanguage", catalog.ErrMalformedCatalog)
	}

	strs := root.field("strings")
	if strs == nil {
		strs = newObject()
		root.set("strings", strs)
	}
	if strs.kind != kindObject {
		return nil, fmt.Errorf("%w: strings is not an object", catalog.ErrMalformedCatalog)
	}
	for _, key := range strs.keys {
		entry := strs.fields[key]
		if entry.kind != kindObject {
			return nil, fmt.Errorf("%w: entry %q is not an object", catalog.ErrMalformedCatalog, key)
		}
		if locs := entry.field("localizations"); locs != nil && locs.kind != kindObject {
			return nil, fmt.Errorf("%w: localizations of %q is not an object", catalog.ErrMalformedCatalog, key)
		}
	}

	return &Catalog{root: root, strings: strs, sourceLanguage: src}, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// SourceLanguage returns the catalog's authoring language.
func (c *Catalog) SourceLanguage() string { return c.sourceLanguage }

// Keys returns all entry keys in document order.
func (c *Catalog) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.strings.keys...)
}

// ShouldTranslate reports whether the entry may be translated. Entries
// without an explicit "shouldTranslate": false are translatable.
func (c *Catalog) ShouldTranslate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return shouldTranslate(c.strings.field(key))
}

// SourceText returns the text an entry is translated from: the
// source-language value while its state is "new", otherwise the key.
func (c *Catalog) SourceText(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceText(key, c.strings.field(key))
}

// Localization returns the localization of key for lang.
func (c *Catalog) Localization(key, lang string) (Localization, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc := c.strings.field(key).field("localizations").field(lang)
	if loc == nil {
		return Localization{}, false
	}
	return readLocalization(loc), true
}

// Stats returns the number of translatable entries and, per language, how
// many of them still lack a localization.
func (c *Catalog) Stats(languages []string) (total int, missing map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	missing = make(map[string]int, len(languages))
	for _, key := range c.strings.keys {
		entry := c.strings.fields[key]
		if !shouldTranslate(entry) || c.sourceText(key, entry) == "" {
			continue
		}
		total++
		locs := entry.field("localizations")
		for _, lang := range languages {
			if lang == c.sourceLanguage {
				continue
			}
			if locs.field(lang) == nil {
				missing[lang]++
			}
		}
	}
	return total, missing
}

func shouldTranslate(entry *node) bool {
	flag := entry.field("shouldTranslate")
	return flag == nil || string(flag.raw) != "false"
}

func (c *Catalog) sourceText(key string, entry *node) string {
	unit := entry.field("localizations").field(c.sourceLanguage).field("stringUnit")
	if state, _ := unit.field("state").str(); state == StateNew {
		if v, _ := unit.field("value").str(); v != "" {
			return v
		}
	}
	return key
}

func readLocalization(loc *node) Localization {
	unit := loc.field("stringUnit")
	state, _ := unit.field("state").str()
	value, _ := unit.field("value").str()
	return Localization{
		State:  state,
		Value:  value,
		Plural: hasPluralForms(loc),
	}
}

func hasPluralForms(loc *node) bool {
	return loc.field("variations") != nil || loc.field("substitutions") != nil
}

// ---------------------------------------------------------------------------
// Planning and merge-back
// ---------------------------------------------------------------------------

// Plan returns one task per (entry, language) pair that needs translation.
// Entries are visited in key order and languages in opts.Languages order.
// Entries with shouldTranslate=false or an empty source text are skipped, as
// is the catalog's own source language.
func (c *Catalog) Plan(opts catalog.PlanOptions) []catalog.Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	var tasks []catalog.Task
	for _, key := range c.strings.keys {
		entry := c.strings.fields[key]
		if !shouldTranslate(entry) {
			continue
		}
		text := c.sourceText(key, entry)
		if text == "" {
			continue
		}

		locs := entry.field("localizations")
		seen := make(map[string]bool, len(opts.Languages))
		for _, lang := range opts.Languages {
			if lang == c.sourceLanguage || seen[lang] {
				continue
			}
			seen[lang] = true
			if loc := locs.field(lang); loc != nil {
				if !opts.RewriteAll || hasPluralForms(loc) {
					continue
				}
			}
			tasks = append(tasks, catalog.Task{
				Text:       text,
				SourceLang: c.sourceLanguage,
				TargetLang: lang,
				Ref:        catalog.Ref{Key: key},
			})
		}
	}
	return tasks
}

// Apply stores a translated stringUnit for the task's key and language.
func (c *Catalog) Apply(t catalog.Task, translated string) {
	c.Set(t.Ref.Key, t.TargetLang, StateTranslated, translated)
}

// Set writes localizations[lang] = {stringUnit: {state, value}} for key.
// It returns false if the catalog has no such key.
func (c *Catalog) Set(key, lang, state, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.strings.field(key)
	if entry == nil {
		return false
	}
	locs := entry.field("localizations")
	if locs == nil {
		locs = newObject()
		entry.set("localizations", locs)
	}

	unit := newObject()
	unit.set("state", newString(state))
	unit.set("value", newString(value))
	loc := newObject()
	loc.set("stringUnit", unit)
	locs.set(lang, loc)
	return true
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the catalog in Xcode's layout.
func (c *Catalog) Marshal() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf bytes.Buffer
	c.root.encode(&buf, 0)
	return buf.Bytes(), nil
}
