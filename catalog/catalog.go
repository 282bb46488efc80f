// Package catalog defines the translation unit model shared by every
// catalog format: the tasks a parsed file yields, the options that drive
// planning, and the Document capability set each format implements.
package catalog

import "errors"

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrMalformedCatalog is returned when a string catalog cannot be parsed.
	ErrMalformedCatalog = errors.New("malformed string catalog")
	// ErrMalformedDocument is returned when an XLIFF document cannot be parsed.
	ErrMalformedDocument = errors.New("malformed XLIFF document")
)

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// Ref points back to the place a translation is written to. String catalogs
// use Key (together with Task.TargetLang); XLIFF documents use Index.
type Ref struct {
	Key   string
	Index int
}

// Task is one unit of outbound translation work.
type Task struct {
	Text       string
	SourceLang string
	TargetLang string
	Ref        Ref
}

// PlanOptions controls which units of a document are selected.
type PlanOptions struct {
	// Languages is the fixed target language list (string catalogs only;
	// XLIFF files declare their own target language).
	Languages []string
	// RewriteAll re-translates units that already have a translation.
	RewriteAll bool
	// SkipTranslated makes XLIFF planning skip units whose target is
	// already filled. String catalogs always skip present localizations
	// unless RewriteAll is set.
	SkipTranslated bool
}

// Document is a parsed catalog file.
//
// Apply may be called concurrently for tasks returned by one Plan call.
type Document interface {
	Plan(opts PlanOptions) []Task
	Apply(t Task, translated string)
	Marshal() ([]byte, error)
}

// Format describes a catalog file format.
type Format struct {
	// Name is a short identifier ("xcstrings", "xliff").
	Name string
	// Ext is the file extension including the dot, matched case-insensitively.
	Ext string
	// Parse decodes raw file content.
	Parse func(data []byte) (Document, error)
}
