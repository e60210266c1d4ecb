package parser

import "fmt"

// IniType selects how a raw ini value is converted.
type IniType string

// Ini value types.
const (
	IniString   IniType = "string"
	IniArgs     IniType = "args"
	IniLineList IniType = "linelist"
	IniPathList IniType = "pathlist"
	IniBool     IniType = "bool"
)

// ParseIniType validates a type name. An empty name means IniString.
func ParseIniType(name string) (IniType, error) {
	switch t := IniType(name); t {
	case "":
		return IniString, nil
	case IniString, IniArgs, IniLineList, IniPathList, IniBool:
		return t, nil
	}
	return "", fmt.Errorf("%w: ini type %q", ErrUnknownKind, name)
}

// IniSpec declares an ini-only key.
type IniSpec struct {
	Name    string
	Help    string
	Type    IniType
	Default any
}

// DefaultValue returns the declared default, or the typed empty value.
func (s IniSpec) DefaultValue() any {
	if s.Default != nil {
		return s.Default
	}
	switch s.Type {
	case IniArgs, IniLineList, IniPathList:
		return []string{}
	case IniBool:
		return false
	}
	return ""
}
