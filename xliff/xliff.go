// Package xliff implements reading, planning and writing of XLIFF 1.2
// documents as exported by Xcode (.xliff).
//
// The document is kept as an XML tree, so everything translation does not
// touch (headers, notes, comments, attribute order, whitespace) is written
// back as it was read.
package xliff

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/minios-linux/xctrans/catalog"
)

// Ext is the file extension of XLIFF exports.
const Ext = ".xliff"

// StateTranslated is the target state written for machine translations.
const StateTranslated = "translated"

// Document is a parsed XLIFF document.
type Document struct {
	mu    sync.Mutex
	doc   *etree.Document
	units []*unit
}

type unit struct {
	el         *etree.Element
	file       string
	sourceLang string
	targetLang string
}

// FileStats summarises one <file> element.
type FileStats struct {
	Original   string
	SourceLang string
	TargetLang string
	Units      int
	Translated int
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses an XLIFF document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses XLIFF content. Units are collected from every file/body in
// document order, including units nested in <group> elements.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrMalformedDocument, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "xliff" {
		return nil, fmt.Errorf("%w: root element is not <xliff>", catalog.ErrMalformedDocument)
	}

	d := &Document{doc: doc}
	for _, file := range root.SelectElements("file") {
		body := file.SelectElement("body")
		if body == nil {
			continue
		}
		original := file.SelectAttrValue("original", "")
		src := file.SelectAttrValue("source-language", "")
		tgt := file.SelectAttrValue("target-language", "")
		for _, el := range body.FindElements(".//trans-unit") {
			d.units = append(d.units, &unit{el: el, file: original, sourceLang: src, targetLang: tgt})
		}
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Len returns the number of trans-units in the document.
func (d *Document) Len() int { return len(d.units) }

// Source returns the source text of the i-th unit.
func (d *Document) Source(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return textOf(d.units[i].el.SelectElement("source"))
}

// Target returns the target text and state of the i-th unit. ok is false when
// the unit has no <target>.
func (d *Document) Target(i int) (text, state string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	target := d.units[i].el.SelectElement("target")
	if target == nil {
		return "", "", false
	}
	return textOf(target), target.SelectAttrValue("state", ""), true
}

// Stats returns per-file unit counts.
func (d *Document) Stats() []FileStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	var stats []FileStats
	idx := make(map[*etree.Element]int)
	for _, u := range d.units {
		file := fileOf(u.el)
		i, ok := idx[file]
		if !ok {
			i = len(stats)
			idx[file] = i
			stats = append(stats, FileStats{Original: u.file, SourceLang: u.sourceLang, TargetLang: u.targetLang})
		}
		if !translatable(u.el) {
			continue
		}
		stats[i].Units++
		if textOf(u.el.SelectElement("target")) != "" {
			stats[i].Translated++
		}
	}
	return stats
}

func fileOf(el *etree.Element) *etree.Element {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.Tag == "file" {
			return p
		}
	}
	return nil
}

func translatable(el *etree.Element) bool {
	return el.SelectAttrValue("translate", "yes") != "no" && textOf(el.SelectElement("source")) != ""
}

// textOf returns the concatenated character data of el and its descendants.
func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				sb.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return sb.String()
}

// ---------------------------------------------------------------------------
// Planning and merge-back
// ---------------------------------------------------------------------------

// Plan returns one task per trans-unit in document order. The language pair
// comes from the enclosing <file>; opts.Languages is not consulted. Units of
// files without a target-language, units marked translate="no" and units with
// an empty source are skipped. With SkipTranslated (and without RewriteAll)
// units whose target already has text are skipped as well.
func (d *Document) Plan(opts catalog.PlanOptions) []catalog.Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	var tasks []catalog.Task
	for i, u := range d.units {
		if u.targetLang == "" || !translatable(u.el) {
			continue
		}
		if opts.SkipTranslated && !opts.RewriteAll && textOf(u.el.SelectElement("target")) != "" {
			continue
		}
		tasks = append(tasks, catalog.Task{
			Text:       textOf(u.el.SelectElement("source")),
			SourceLang: u.sourceLang,
			TargetLang: u.targetLang,
			Ref:        catalog.Ref{Index: i},
		})
	}
	return tasks
}

// Apply writes the translation into the unit's <target>.
func (d *Document) Apply(t catalog.Task, translated string) {
	d.SetTarget(t.Ref.Index, StateTranslated, translated)
}

// SetTarget replaces the content of the i-th unit's <target>, creating it
// right after <source> when missing, and sets its state attribute.
func (d *Document) SetTarget(i int, state, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := d.units[i].el
	target := el.SelectElement("target")
	if target == nil {
		target = newTarget(el)
	}
	target.Child = nil
	target.SetText(text)
	target.CreateAttr("state", state)
}

// newTarget inserts an empty <target> after <source>, repeating the
// indentation that precedes <source>.
func newTarget(unitEl *etree.Element) *etree.Element {
	target := etree.NewElement("target")
	source := unitEl.SelectElement("source")
	if source == nil {
		unitEl.AddChild(target)
		return target
	}
	target.Space = source.Space

	pos := source.Index() + 1
	if prev := source.Index() - 1; prev >= 0 {
		if ws, ok := unitEl.Child[prev].(*etree.CharData); ok && ws.IsWhitespace() {
			unitEl.InsertChildAt(pos, etree.NewText(ws.Data))
			pos++
		}
	}
	unitEl.InsertChildAt(pos, target)
	return target
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the document.
func (d *Document) Marshal() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.WriteToBytes()
}
