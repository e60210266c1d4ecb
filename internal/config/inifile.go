package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/distill/internal/config/loader"
)

// Section names looked up in ini files.
const (
	iniSection      = "distill"
	setupCfgSection = "tool:distill"
)

// iniBasenames are searched in each directory, in order.
var iniBasenames = []string{"distill.ini", "distill.toml", "tox.ini", "setup.cfg"}

// rootMarkers identify a project root when no ini file is found.
var rootMarkers = []string{"setup.py", "go.mod"}

// iniSetup is the outcome of ini discovery.
type iniSetup struct {
	rootDir string
	iniFile string
	cfg     loader.Section
	lists   map[string][]string
}

// setupFinder locates the ini file and rootdir for an invocation.
type setupFinder struct {
	fs     loader.FileSystem
	cwd    string
	getenv func(string) string
	warn   func(code, message string)
}

func (f *setupFinder) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(f.cwd, p)
}

func (f *setupFinder) isDir(p string) bool {
	info, err := f.fs.Stat(p)
	return err == nil && info.IsDir()
}

func (f *setupFinder) exists(p string) bool {
	_, err := f.fs.Stat(p)
	return err == nil
}

// determine resolves the ini file and rootdir. inifile is the -c value,
// args the positional and unrecognized arguments, and rootdirArg the
// --rootdir value.
func (f *setupFinder) determine(inifile string, args []string, rootdirArg string) (iniSetup, error) {
	dirs := f.dirsFromArgs(args)

	var setup iniSetup
	if inifile != "" {
		path := f.abs(inifile)
		file, err := loader.Load(f.fs, path)
		if err != nil {
			return setup, &UsageError{Msg: "could not read inifile " + inifile, Err: err}
		}
		setup.iniFile = path
		name, _ := f.pickSection(file, filepath.Base(path), true)
		setup.cfg, setup.lists = sectionOf(file, name)
		setup.rootDir = f.commonAncestor(dirs)
	} else {
		ancestor := f.commonAncestor(dirs)
		found, err := f.getcfg([]string{ancestor})
		if err != nil {
			return setup, err
		}
		if found != nil {
			setup = *found
		} else if root, ok := f.markedRoot(ancestor); ok {
			setup.rootDir = root
		} else {
			found, err = f.getcfg(dirs)
			if err != nil {
				return setup, err
			}
			if found != nil {
				setup = *found
			} else {
				setup.rootDir = f.commonAncestor([]string{f.cwd, ancestor})
				if setup.rootDir == string(filepath.Separator) {
					setup.rootDir = ancestor
				}
			}
		}
	}

	if rootdirArg != "" {
		dir := f.abs(os.Expand(rootdirArg, f.getenv))
		if !f.isDir(dir) {
			return setup, usageErrorf("Directory '%s' not found. Check your '--rootdir' option.", dir)
		}
		setup.rootDir = dir
	}
	if setup.cfg == nil {
		setup.cfg = loader.Section{}
	}
	return setup, nil
}

// getcfg searches each arg and its ancestors for the first ini file that
// configures distill.
func (f *setupFinder) getcfg(args []string) (*iniSetup, error) {
	var paths []string
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			paths = append(paths, a)
		}
	}
	if len(paths) == 0 {
		paths = []string{f.cwd}
	}

	for _, p := range paths {
		for _, base := range ancestors(f.abs(p)) {
			for _, name := range iniBasenames {
				path := filepath.Join(base, name)
				if !loader.Exists(f.fs, path) {
					continue
				}
				file, err := loader.Load(f.fs, path)
				if err != nil {
					return nil, &UsageError{Msg: "could not read " + path, Err: err}
				}
				if section, ok := f.pickSection(file, name, false); ok {
					setup := &iniSetup{rootDir: base, iniFile: path}
					setup.cfg, setup.lists = sectionOf(file, section)
					return setup, nil
				}
			}
		}
	}
	return nil, nil
}

// pickSection names the distill section of file. ok is false when file
// does not configure distill. distill.ini and distill.toml always count,
// and an explicit -c file counts even without a section, in which case
// the name is empty.
func (f *setupFinder) pickSection(file *loader.File, basename string, explicit bool) (string, bool) {
	isCfg := strings.HasSuffix(basename, ".cfg")
	switch {
	case isCfg && file.Has(setupCfgSection):
		return setupCfgSection, true
	case file.Has(iniSection):
		if isCfg && f.warn != nil {
			f.warn("C1", fmt.Sprintf("[distill] section in %s files is deprecated, use [tool:distill] instead.", basename))
		}
		return iniSection, true
	case explicit, basename == "distill.ini", basename == "distill.toml":
		return "", true
	}
	return "", false
}

func sectionOf(file *loader.File, name string) (loader.Section, map[string][]string) {
	if name == "" {
		return loader.Section{}, nil
	}
	return file.Section(name), file.Lists(name)
}

// markedRoot returns the first ancestor of dir holding a root marker file.
func (f *setupFinder) markedRoot(dir string) (string, bool) {
	for _, base := range ancestors(dir) {
		for _, marker := range rootMarkers {
			if f.exists(filepath.Join(base, marker)) {
				return base, true
			}
		}
	}
	return "", false
}

// dirsFromArgs maps the existing path arguments to directories. Options
// and node-id suffixes ("file::name") are ignored.
func (f *setupFinder) dirsFromArgs(args []string) []string {
	var dirs []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			continue
		}
		p, _, _ := strings.Cut(a, "::")
		p = f.abs(p)
		info, err := f.fs.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			p = filepath.Dir(p)
		}
		dirs = append(dirs, p)
	}
	return dirs
}

// commonAncestor returns the deepest directory containing every existing
// path, or cwd when none exist.
func (f *setupFinder) commonAncestor(paths []string) string {
	common := ""
	for _, p := range paths {
		p = f.abs(p)
		if !f.exists(p) {
			continue
		}
		switch {
		case common == "":
			common = p
		case within(p, common):
		case within(common, p):
			common = p
		default:
			common = sharedPrefix(common, p)
		}
	}
	if common == "" {
		return f.cwd
	}
	if !f.isDir(common) {
		return filepath.Dir(common)
	}
	return common
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// sharedPrefix returns the longest common directory of two absolute paths.
func sharedPrefix(a, b string) string {
	for !within(b, a) {
		parent := filepath.Dir(a)
		if parent == a {
			return a
		}
		a = parent
	}
	return a
}

// ancestors returns dir followed by each of its parents up to the root.
func ancestors(dir string) []string {
	var out []string
	for {
		out = append(out, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			return out
		}
		dir = parent
	}
}
