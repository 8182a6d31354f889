// Package arbfile works with Flutter ARB (Application Resource Bundle) files
// as delivered by the translation pipeline.
//
// ARB files are JSON files with a specific structure:
//
//   - "@@locale" holds the language code (e.g. "en", "pt_BR").
//   - Keys starting with "@" are metadata entries (e.g. "@greeting").
//   - All other string values are translatable.
//
// File naming convention: <prefix>_<locale>.arb (e.g. app_en.arb, app_de.arb).
//
// The package has two halves. The textual half (name.go, locale.go) never
// decodes JSON: it patches the "@@locale" line in place so that every other
// byte of the file, including non-ASCII text, is left untouched. The decoding
// half in this file is read-only and is used for reporting.
package arbfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LocaleKey is the reserved ARB entry holding the bundle's locale.
const LocaleKey = "@@locale"

// entry is a single key in the ARB file.
type entry struct {
	key    string
	value  string // decoded string value, empty for metadata
	isMeta bool   // true for @-keys (metadata / @@locale)
}

// File is a decoded, read-only view of an ARB file.
type File struct {
	locale  string
	entries []entry
	index   map[string]int
}

// ParseFile reads and parses an ARB file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes ARB content, keeping document order.
func Parse(data []byte) (*File, error) {
	f := &File{index: make(map[string]int)}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing ARB: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing ARB: expected '{', got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing ARB key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing ARB: expected string key, got %T", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing ARB value for %q: %w", key, err)
		}

		e := entry{key: key, isMeta: strings.HasPrefix(key, "@")}
		switch {
		case key == LocaleKey:
			if err := json.Unmarshal(raw, &f.locale); err != nil {
				return nil, fmt.Errorf("parsing ARB: %s is not a string", LocaleKey)
			}
		case !e.isMeta:
			// Non-string values are counted as untranslated.
			_ = json.Unmarshal(raw, &e.value)
		}

		if idx, dup := f.index[key]; dup {
			f.entries[idx] = e
			continue
		}
		f.index[key] = len(f.entries)
		f.entries = append(f.entries, e)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing ARB: unterminated object: %w", err)
	}

	return f, nil
}

// Locale returns the @@locale value.
func (f *File) Locale() string { return f.locale }

// Keys returns all translatable (non-metadata) keys in document order.
func (f *File) Keys() []string {
	var keys []string
	for _, e := range f.entries {
		if !e.isMeta {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Get returns the string value for a translatable key.
func (f *File) Get(key string) (string, bool) {
	if idx, ok := f.index[key]; ok && !f.entries[idx].isMeta {
		return f.entries[idx].value, true
	}
	return "", false
}

// Stats returns (total, translated, percentTranslated).
func (f *File) Stats() (int, int, float64) {
	total, translated := 0, 0
	for _, e := range f.entries {
		if e.isMeta {
			continue
		}
		total++
		if e.value != "" {
			translated++
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(translated) / float64(total) * 100
	}
	return total, translated, pct
}
