// Package translate runs the translation pipeline: discovery of catalog
// files, per-file parse, plan, bounded concurrent execution and atomic
// write-back, with progress reported on an event Stream.
package translate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/xctrans/catalog"
	"github.com/minios-linux/xctrans/discover"
	"github.com/minios-linux/xctrans/xcstrings"
	"github.com/minios-linux/xctrans/xliff"
)

// ---------------------------------------------------------------------------
// Formats
// ---------------------------------------------------------------------------

// StringCatalog is the Xcode string catalog format.
var StringCatalog = catalog.Format{
	Name: "xcstrings",
	Ext:  xcstrings.Ext,
	Parse: func(data []byte) (catalog.Document, error) {
		c, err := xcstrings.Parse(data)
		if err != nil {
			return nil, err
		}
		return c, nil
	},
}

// XLIFF is the XLIFF 1.2 interchange format.
var XLIFF = catalog.Format{
	Name: "xliff",
	Ext:  xliff.Ext,
	Parse: func(data []byte) (catalog.Document, error) {
		d, err := xliff.Parse(data)
		if err != nil {
			return nil, err
		}
		return d, nil
	},
}

// Formats returns every supported format.
func Formats() []catalog.Format {
	return []catalog.Format{StringCatalog, XLIFF}
}

// FormatFor returns the format whose extension matches path.
func FormatFor(path string) (catalog.Format, bool) {
	for _, f := range Formats() {
		if discover.HasExt(path, f.Ext) {
			return f, true
		}
	}
	return catalog.Format{}, false
}

// ---------------------------------------------------------------------------
// Errors and results
// ---------------------------------------------------------------------------

// File-level operations reported by FileError.
const (
	OpRead  = "read"
	OpParse = "parse"
	OpWrite = "write"
)

// FileError is a fatal failure of one file. Other files are unaffected.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// FileResult is the outcome of one file.
type FileResult struct {
	Path       string
	Format     string
	Planned    int
	Translated int
	Failures   []TaskFailure
	Written    bool
	Err        error
}

// Report summarises a run.
type Report struct {
	Files      []FileResult
	Translated int
	Failures   []TaskFailure
	// FileErrors holds discovery errors followed by file-level errors.
	FileErrors []error
	// Status is the terminal status emitted on the stream.
	Status Status
}

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// Options controls a run.
type Options struct {
	// Languages is the fixed target list for string catalogs.
	Languages []string
	// RewriteAll re-translates units that already have a translation.
	RewriteAll bool
	// SkipTranslated makes XLIFF planning skip units with a filled target.
	SkipTranslated bool
	// Concurrency is the per-file chunk size (default 10).
	Concurrency int
	// DryRun plans without translating or writing.
	DryRun bool
	// Stream receives progress events; may be nil.
	Stream *Stream
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Orchestrator processes every discovered file concurrently. Files settle
// independently: a file that cannot be read, parsed or written does not
// stop the others.
type Orchestrator struct {
	tr   Translator
	opts Options
	log  zerolog.Logger
}

// New returns an orchestrator that translates with tr.
func New(tr Translator, opts Options) *Orchestrator {
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}
	return &Orchestrator{tr: tr, opts: opts, log: l}
}

// Run discovers files of every registered format under paths and processes
// them. The returned error is the first file-level error (in discovery
// order) once every file has settled, or the discovery error when no file
// was found.
func (o *Orchestrator) Run(ctx context.Context, paths []string) (Report, error) {
	var exts []string
	for _, f := range Formats() {
		exts = append(exts, f.Ext)
	}
	return o.run(ctx, paths, exts)
}

// RunFormat is Run restricted to a single format.
func (o *Orchestrator) RunFormat(ctx context.Context, f catalog.Format, paths []string) (Report, error) {
	return o.run(ctx, paths, []string{f.Ext})
}

func (o *Orchestrator) run(ctx context.Context, paths, exts []string) (Report, error) {
	var rep Report

	files, derr := discover.Find(paths, exts...)
	if derr != nil {
		for _, err := range unjoin(derr) {
			o.log.Error().Err(err).Msg("discovery failed")
			o.opts.Stream.Emit(Event{Status: StatusInProgress, Message: err.Error(), Err: err})
			rep.FileErrors = append(rep.FileErrors, err)
		}
	}
	o.log.Debug().Int("files", len(files)).Msg("discovered catalog files")

	rep.Files = make([]FileResult, len(files))
	var g errgroup.Group
	for i, path := range files {
		g.Go(func() error {
			rep.Files[i] = o.processFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	var firstErr error
	failedFiles := 0
	for _, fr := range rep.Files {
		rep.Translated += fr.Translated
		rep.Failures = append(rep.Failures, fr.Failures...)
		if fr.Err != nil {
			failedFiles++
			rep.FileErrors = append(rep.FileErrors, fr.Err)
			if firstErr == nil {
				firstErr = fr.Err
			}
		}
	}
	if firstErr == nil && len(files) == 0 {
		firstErr = derr
	}
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	switch {
	case len(files) > 0 && failedFiles == len(files):
		rep.Status = StatusError
	case len(files) == 0 && derr != nil:
		rep.Status = StatusError
	default:
		rep.Status = StatusDone
	}

	msg := fmt.Sprintf("%d files, %d translated, %d failed", len(files), rep.Translated, len(rep.Failures))
	ev := Event{Status: rep.Status, Message: msg}
	if rep.Status == StatusError {
		ev.Err = firstErr
	}
	o.opts.Stream.Emit(ev)
	return rep, firstErr
}

// processFile runs read, parse, plan, execute and write-back for one file.
func (o *Orchestrator) processFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}
	l := o.log.With().Str("file", path).Logger()

	fail := func(op string, err error) FileResult {
		res.Err = &FileError{Path: path, Op: op, Err: err}
		l.Error().Err(err).Str("op", op).Msg("file failed")
		o.opts.Stream.Emit(Event{Status: StatusInProgress, Message: res.Err.Error(), File: path, Err: res.Err})
		return res
	}

	f, ok := FormatFor(path)
	if !ok {
		return fail(OpParse, discover.ErrNotCatalog)
	}
	res.Format = f.Name

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(OpRead, err)
	}
	doc, err := f.Parse(data)
	if err != nil {
		return fail(OpParse, err)
	}

	tasks := doc.Plan(catalog.PlanOptions{
		Languages:      o.opts.Languages,
		RewriteAll:     o.opts.RewriteAll,
		SkipTranslated: o.opts.SkipTranslated,
	})
	res.Planned = len(tasks)
	l.Info().Str("format", f.Name).Int("tasks", len(tasks)).Msg("planned")

	o.opts.Stream.Emit(Event{
		Status:  StatusInProgress,
		Message: fmt.Sprintf("%s: %d to translate", path, len(tasks)),
		File:    path,
		Planned: len(tasks),
	})
	if o.opts.DryRun || len(tasks) == 0 {
		return res
	}

	exec := &Executor{
		Translator:  o.tr,
		Concurrency: o.opts.Concurrency,
		Stream:      o.opts.Stream,
		Logger:      l,
	}
	er := exec.Run(ctx, path, doc, tasks)
	res.Translated = er.Applied
	res.Failures = er.Failures

	// Nothing changed: leave the file untouched.
	if er.Applied == 0 {
		return res
	}

	out, err := doc.Marshal()
	if err != nil {
		return fail(OpWrite, err)
	}
	// Replace the link target, not a symlink met during discovery.
	dest, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fail(OpWrite, err)
	}
	if err := atomic.WriteFile(dest, bytes.NewReader(out)); err != nil {
		return fail(OpWrite, err)
	}
	res.Written = true
	l.Info().Int("translated", er.Applied).Int("failed", len(er.Failures)).Msg("written")
	return res
}

// unjoin splits an errors.Join result into its parts.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
