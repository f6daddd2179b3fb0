package invocation

import (
	"slices"
	"strings"

	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"golang.org/x/text/language"
)

// Languages is the working language set of an installation.
type Languages struct {
	Working []string
	Default string
}

// NewLanguages normalizes working to lower-case BCP 47 tags. An empty
// default selects the first working language.
func NewLanguages(working []string, def string) (Languages, error) {
	l := Languages{}
	for _, w := range working {
		tag, err := normalize(w)
		if err != nil {
			return Languages{}, err
		}
		if !slices.Contains(l.Working, tag) {
			l.Working = append(l.Working, tag)
		}
	}
	if len(l.Working) == 0 {
		return Languages{}, failure.New(failure.CodeInvalidConfiguration, "no working languages configured")
	}
	if def == "" {
		l.Default = l.Working[0]
		return l, nil
	}
	tag, err := normalize(def)
	if err != nil {
		return Languages{}, err
	}
	if !slices.Contains(l.Working, tag) {
		return Languages{}, failure.InvalidLanguage(def, l.Working)
	}
	l.Default = tag
	return l, nil
}

// Select returns the default for an empty lang and fails with
// InvalidLanguage when lang is not a working language.
func (l Languages) Select(lang string) (string, error) {
	if lang == "" {
		return l.Default, nil
	}
	tag, err := normalize(lang)
	if err != nil {
		return "", err
	}
	if !slices.Contains(l.Working, tag) {
		return "", failure.InvalidLanguage(lang, l.Working)
	}
	return tag, nil
}

func normalize(lang string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", failure.InvalidLanguage(lang, nil).WithUnderlying(err)
	}
	return strings.ToLower(tag.String()), nil
}
