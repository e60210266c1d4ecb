// Package loader reads the sections of ini-style configuration files.
//
// Files ending in .toml are parsed as TOML, where every top-level table is a
// section. Everything else is parsed as INI, with indented continuation
// lines so multi-line values such as addopts survive intact. Section values
// are always raw strings; typing them is up to the caller.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileSystem is the file access the loader needs.
// Tests substitute an in-memory implementation.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Section is the key/value content of one section.
type Section map[string]string

// File is a parsed configuration file.
type File struct {
	Path string

	sections map[string]Section
	lists    map[string]map[string][]string
	order    []string
}

// Has reports whether the file defines section name.
func (f *File) Has(name string) bool {
	_, ok := f.sections[name]
	return ok
}

// Section returns the named section, or nil.
func (f *File) Section(name string) Section {
	return f.sections[name]
}

// Lists returns the array values of the named section, keyed like the
// section. Only TOML files carry arrays; the flattened strings in Section
// lose element boundaries.
func (f *File) Lists(name string) map[string][]string {
	out := make(map[string][]string, len(f.lists[name]))
	for k, v := range f.lists[name] {
		out[k] = slices.Clone(v)
	}
	return out
}

// Sections returns the section names in file order.
func (f *File) Sections() []string {
	return slices.Clone(f.order)
}

func (f *File) add(name string, s Section) {
	if f.sections == nil {
		f.sections = make(map[string]Section)
	}
	if _, ok := f.sections[name]; !ok {
		f.order = append(f.order, name)
	}
	f.sections[name] = s
}

func (f *File) addList(section, key string, elems []string) {
	if f.lists == nil {
		f.lists = make(map[string]map[string][]string)
	}
	if f.lists[section] == nil {
		f.lists[section] = make(map[string][]string)
	}
	f.lists[section][key] = elems
}

// Load parses the file at path, choosing the format by extension.
func Load(fsys FileSystem, path string) (*File, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return parseTOML(path, data)
	}
	return parseINI(path, data)
}

// Exists reports whether path names a regular file.
func Exists(fsys FileSystem, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && !info.IsDir()
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
