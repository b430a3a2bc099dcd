// Package ledger persists tweet ids as newline-delimited, append-only text
// files. A ledger is used either as a cursor (only the last line matters)
// or as a set (membership only, duplicates tolerated).
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File is one ledger on disk. Every write opens, appends and closes the
// file so no handle is held between operations.
type File struct {
	path string
}

func Open(path string) *File { return &File{path: path} }

func (f *File) Path() string { return f.path }

// Exists reports whether the ledger file is present.
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Append adds id as a new line, creating the file and its directory when needed.
func (f *File) Append(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("ledger: empty id")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.WriteString(id + "\n"); err != nil {
		_ = fh.Close()
		return fmt.Errorf("ledger append %s: %w", f.path, err)
	}
	return fh.Close()
}

// Touch creates the ledger empty when it does not exist yet.
func (f *File) Touch() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return fh.Close()
}

// Lines returns the non-blank lines in file order.
// A missing file is reported with an error wrapping os.ErrNotExist.
func (f *File) Lines() ([]string, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	var out []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// Last returns the most recent id, or "" when the file is missing or empty.
func (f *File) Last() (string, error) {
	lines, err := f.Lines()
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[len(lines)-1], nil
}

// Set loads the ledger for membership tests. Unlike Last, a missing file is an error.
func (f *File) Set() (Set, error) {
	lines, err := f.Lines()
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", f.path, err)
	}
	s := make(Set, len(lines))
	for _, l := range lines {
		s[l] = struct{}{}
	}
	return s, nil
}

// Set is an in-memory set of tweet ids.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id string) { s[id] = struct{}{} }
