package loader

import (
	"gopkg.in/ini.v1"
)

// parseINI reads INI data. Keys keep their case and continuation lines are
// joined with newlines.
func parseINI(path string, data []byte) (*File, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
		KeyValueDelimiters:         "=:",
	}, data)
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	f := &File{Path: path}
	for _, sec := range cfg.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		values := make(Section, len(sec.Keys()))
		for _, key := range sec.Keys() {
			values[key.Name()] = key.Value()
		}
		f.add(name, values)
	}
	return f, nil
}
