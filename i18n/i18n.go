// Package i18n translates apptask's own user-facing messages.
//
// It wraps the gotext library to provide T() and N(). Catalogs are .po files
// embedded from locales/{lang}/LC_MESSAGES/apptask.po; the user's language
// is matched against the available catalogs with golang.org/x/text/language,
// so "de_AT.UTF-8" picks the "de" catalog and anything unsupported falls back
// to the untranslated English strings.
//
// Usage:
//
//	i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	fmt.Println(i18n.T("Collection complete"))
//	fmt.Println(i18n.N("Copied %d bundle", "Copied %d bundles", n))
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name.
const domain = "apptask"

// fallback is the language of the msgids themselves.
const fallback = "en"

var (
	po      *gotext.Locale
	current = fallback
)

// Init initializes the message catalog. If lang is empty, it is detected
// from LANGUAGE, LC_ALL, LC_MESSAGES and LANG, in that order.
//
// Init should be called once at program startup, before any T() or N() calls.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	current = match(lang, available())

	po = gotext.NewLocaleFSWithPath(current, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the catalog language selected by Init.
func Language() string { return current }

// T translates a string, returning it unchanged when no translation exists.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// available lists the languages that ship a catalog, sorted.
func available() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs
}

// match picks the best catalog for lang, or fallback.
func match(lang string, catalogs []string) string {
	names := []string{fallback}
	tags := []language.Tag{language.English}
	for _, c := range catalogs {
		tag, err := language.Parse(strings.ReplaceAll(c, "_", "-"))
		if err != nil {
			continue
		}
		names = append(names, c)
		tags = append(tags, tag)
	}

	want, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return fallback
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return fallback
	}
	return names[idx]
}

// detectLanguage reads environment variables following GNU gettext
// conventions.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated list; take the first
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// "ru_RU.UTF-8" -> "ru_RU", "de_DE@euro" -> "de_DE"
		if idx := strings.IndexAny(val, ".@"); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return fallback
}
