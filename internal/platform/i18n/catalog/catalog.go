// Package catalog registers user-facing message catalogs with x/text and
// resolves locale requests against them.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// BaseLocale is the canonical source locale for catalogs.
	BaseLocale = "en-US"
)

var (
	registerOnce sync.Once
	matcher      language.Matcher
	supported    []language.Tag
)

// Locales returns the supported locale identifiers, base locale first.
func Locales() []string {
	out := make([]string, 0, len(locales))
	for locale := range locales {
		if locale != BaseLocale {
			out = append(out, locale)
		}
	}
	sort.Strings(out)
	return append([]string{BaseLocale}, out...)
}

// Register registers every catalog message with the x/text default catalog.
// It is safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		for _, locale := range Locales() {
			tag := language.MustParse(locale)
			supported = append(supported, tag)
			messages := locales[locale]
			keys := make([]string, 0, len(messages))
			for key := range messages {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if err := message.SetString(tag, key, messages[key]); err != nil {
					panic(fmt.Sprintf("register %s %s: %v", locale, key, err))
				}
			}
		}
		matcher = language.NewMatcher(supported)
	})
}

// Match resolves a requested locale (BCP 47, e.g. "pt-BR" or "pt") to the
// closest supported locale, falling back to BaseLocale.
func Match(locale string) string {
	Register()
	requested := strings.TrimSpace(locale)
	if requested == "" {
		return BaseLocale
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return BaseLocale
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return BaseLocale
	}
	return supported[index].String()
}

// Printer returns an x/text printer for the matched locale.
func Printer(locale string) *message.Printer {
	return message.NewPrinter(language.MustParse(Match(locale)))
}

// Message formats the message registered under key for locale. Keys missing
// from the matched locale fall back to BaseLocale and finally to the key.
func Message(locale string, key string, args ...any) string {
	matched := Match(locale)
	if _, ok := locales[matched][key]; !ok {
		matched = BaseLocale
	}
	if _, ok := locales[matched][key]; !ok {
		return key
	}
	return message.NewPrinter(language.MustParse(matched)).Sprintf(key, args...)
}

// Has reports whether key is defined for locale without fallback.
func Has(locale string, key string) bool {
	_, ok := locales[Match(locale)][key]
	return ok
}
