package module

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Name errors.
var (
	ErrEmptyName   = errors.New("name cannot be empty")
	ErrInvalidName = errors.New("name must be lower-case letters, digits and underscores")
)

var validNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Name is a validated module or action name.
type Name struct {
	value string
}

// NewName validates s.
func NewName(s string) (Name, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Name{}, ErrEmptyName
	}
	if !validNamePattern.MatchString(trimmed) {
		return Name{}, ErrInvalidName
	}
	return Name{value: trimmed}, nil
}

func (n Name) String() string { return n.value }

// IsZero reports whether n is the zero value.
func (n Name) IsZero() bool { return n.value == "" }

// Kind is the artifact type of a registered implementation.
type Kind string

// Kinds.
const (
	KindAction  Kind = "action"
	KindCronjob Kind = "cronjob"
	KindConfig  Kind = "config"
)

// CoreModule is the module whose artifacts live outside modules/.
const CoreModule = "core"

// Key addresses one registered implementation.
type Key struct {
	Module string
	Kind   Kind
	Action string
}

func (k Key) String() string {
	if k.Kind == KindConfig {
		return k.Module + ".config"
	}
	return k.Module + "." + k.Action
}

// Identifier derives the exported identifier expected for k.
//
//	{core cronjob ping}       -> BackendCoreCronjobPing
//	{analytics action index}  -> BackendAnalyticsIndex
//	{analytics config}        -> BackendAnalyticsConfig
func (k Key) Identifier() string {
	var raw string
	switch k.Kind {
	case KindConfig:
		raw = k.Module + "_config"
	case KindAction:
		raw = k.Module + "_" + k.Action
	default:
		raw = k.Module + "_" + string(k.Kind) + "_" + k.Action
	}
	return "Backend" + CamelCase(raw)
}

// Location is the conventional path of the artifact, used in error context.
func (k Key) Location() string {
	base := "modules/" + k.Module
	if k.Module == CoreModule {
		base = CoreModule
	}
	if k.Kind == KindConfig {
		return base + "/config"
	}
	return base + "/" + string(k.Kind) + "s/" + k.Action
}

// CamelCase joins underscore-separated words, title-casing each one.
func CamelCase(s string) string {
	// cases.Caser keeps state between calls and must not be shared.
	title := cases.Title(language.English)
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(title.String(part))
	}
	return b.String()
}
