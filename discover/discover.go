// Package discover resolves input paths (files or directories) to the
// catalog files they contain.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotCatalog is wrapped by PathError when an input path is neither a
// directory nor a file with a wanted extension.
var ErrNotCatalog = errors.New("neither a catalog file nor a directory")

// PathError reports an input path that could not be resolved.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *PathError) Unwrap() error { return e.Err }

// Find returns the files under paths whose extension matches one of exts
// (case-insensitive, dot included). Directories are walked recursively in
// lexical order; non-matching files met during the walk are skipped.
//
// A top-level path that is neither a directory nor a matching file produces a
// *PathError. Such errors are joined and returned together with every file
// that was found, so one bad path does not hide its siblings.
func Find(paths []string, exts ...string) ([]string, error) {
	var (
		files []string
		errs  []error
	)
	for _, p := range paths {
		found, err := findOne(p, exts)
		files = append(files, found...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return files, errors.Join(errs...)
}

// HasExt reports whether path ends in one of exts, ignoring case.
func HasExt(path string, exts ...string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func findOne(path string, exts []string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() && HasExt(path, exts...) {
			return []string{path}, nil
		}
		return nil, &PathError{Path: path, Err: ErrNotCatalog}
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return err
			}
			// Unreadable subdirectories are skipped.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !HasExt(p, exts...) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			st, err := os.Stat(p)
			if err != nil || !st.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return files, &PathError{Path: path, Err: fmt.Errorf("walking directory: %w", err)}
	}
	return files, nil
}
