package loader

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// parseTOML reads TOML data. Each top-level table is a section; a dotted
// table such as [tool.distill] is also reachable as "tool:distill". Values
// are flattened to strings, with arrays joined one element per line; the
// elements themselves are kept in File.Lists.
func parseTOML(path string, data []byte) (*File, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		pe := &ParseError{Path: path, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return nil, pe
	}

	f := &File{Path: path}
	for _, name := range sortedKeys(doc) {
		table, ok := doc[name].(map[string]any)
		if !ok {
			continue
		}
		f.addTable(name, table)
		for _, sub := range sortedKeys(table) {
			if nested, ok := table[sub].(map[string]any); ok {
				f.addTable(name+":"+sub, nested)
			}
		}
	}
	return f, nil
}

func (f *File) addTable(name string, table map[string]any) {
	s := make(Section, len(table))
	for k, v := range table {
		if _, nested := v.(map[string]any); nested {
			continue
		}
		s[k] = tomlString(v)
		if arr, ok := v.([]any); ok {
			elems := make([]string, len(arr))
			for i, e := range arr {
				elems[i] = tomlString(e)
			}
			f.addList(name, k, elems)
		}
	}
	f.add(name, s)
}

func tomlString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = tomlString(e)
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(val)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
