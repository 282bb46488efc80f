package translate

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/xctrans/catalog"
)

// DefaultConcurrency is the chunk size used when none is configured.
const DefaultConcurrency = 10

// Translator translates one text. *provider.Client implements it.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// TaskFailure records a task whose translation failed. Its location in the
// document is left unmodified.
type TaskFailure struct {
	File string
	Task catalog.Task
	Err  error
}

func (f TaskFailure) Error() string {
	return fmt.Sprintf("%s: %q -> %s: %v", f.File, f.Task.Text, f.Task.TargetLang, f.Err)
}

func (f TaskFailure) Unwrap() error { return f.Err }

// ExecResult is the outcome of executing a document's tasks.
type ExecResult struct {
	Applied  int
	Failures []TaskFailure
	// Cancelled is set when the context ended before every chunk ran.
	Cancelled bool
}

// ---------------------------------------------------------------------------
// Executor
// ---------------------------------------------------------------------------

// Executor runs tasks against a Translator in consecutive chunks of at most
// Concurrency tasks. Every task of a chunk runs in its own goroutine and the
// chunk is joined before the next one starts, so no more than Concurrency
// translations are ever in flight. A failed task never cancels its siblings.
type Executor struct {
	Translator  Translator
	Concurrency int
	Stream      *Stream
	Logger      zerolog.Logger
}

func (e *Executor) chunkSize() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return DefaultConcurrency
}

// Run translates tasks and applies every successful result to doc. file is
// only used to label events and log entries. When ctx ends, chunks not yet
// started are skipped; results already applied stay in doc.
func (e *Executor) Run(ctx context.Context, file string, doc catalog.Document, tasks []catalog.Task) ExecResult {
	var res ExecResult
	var applied atomic.Int64

	for _, chunk := range splitChunks(tasks, e.chunkSize()) {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		errs := make([]error, len(chunk))
		var g errgroup.Group
		for i, task := range chunk {
			g.Go(func() error {
				out, err := e.Translator.Translate(ctx, task.Text, task.SourceLang, task.TargetLang)
				if err != nil {
					errs[i] = err
					return nil
				}
				doc.Apply(task, out)
				applied.Add(1)
				e.Stream.Emit(Event{
					Status:  StatusInProgress,
					Message: fmt.Sprintf("translating: %s to %s", task.Text, task.TargetLang),
					File:    file,
					Lang:    task.TargetLang,
					Text:    task.Text,
				})
				return nil
			})
		}
		_ = g.Wait()

		for i, err := range errs {
			if err == nil {
				continue
			}
			task := chunk[i]
			e.Logger.Warn().
				Err(err).
				Str("file", file).
				Str("text", task.Text).
				Str("lang", task.TargetLang).
				Msg("translation failed")
			e.Stream.Emit(Event{
				Status:  StatusInProgress,
				Message: fmt.Sprintf("failed: %s to %s", task.Text, task.TargetLang),
				File:    file,
				Lang:    task.TargetLang,
				Text:    task.Text,
				Err:     err,
			})
			res.Failures = append(res.Failures, TaskFailure{File: file, Task: task, Err: err})
		}
	}

	res.Applied = int(applied.Load())
	return res
}

// splitChunks divides items into consecutive chunks of the given size.
func splitChunks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
