package arbfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var (
	localeKeyRe   = regexp.MustCompile(`"` + LocaleKey + `"\s*:`)
	localeValueRe = regexp.MustCompile(`("` + LocaleKey + `"\s*:\s*)"(?:[^"\\]|\\.)*"`)
)

// NormalizeLocale returns data with the value of every "@@locale" entry set
// to locale. The file is treated as text: only lines carrying the "@@locale"
// key change, and on those lines only the string value is replaced, so
// indentation, trailing commas and line endings survive. All other lines are
// returned byte for byte.
//
// A "@@locale" line whose value is not a JSON string is rebuilt as
// `<indent>"@@locale": "<locale>"`, keeping a trailing comma if the original
// line ended with one.
func NormalizeLocale(data []byte, locale string) []byte {
	if !bytes.Contains(data, []byte(LocaleKey)) {
		return data
	}
	quoted, _ := json.Marshal(locale)

	out := make([]byte, 0, len(data)+len(quoted))
	for _, line := range bytes.SplitAfter(data, []byte("\n")) {
		if !localeKeyRe.Match(line) {
			out = append(out, line...)
			continue
		}
		out = append(out, normalizeLine(line, quoted)...)
	}
	return out
}

func normalizeLine(line, quoted []byte) []byte {
	body, eol := splitEOL(line)

	var out []byte
	if loc := localeValueRe.FindSubmatchIndex(body); loc != nil {
		// loc[3] is the end of the `"@@locale": ` prefix, loc[1] the end
		// of the old quoted value.
		out = append(out, body[:loc[3]]...)
		out = append(out, quoted...)
		out = append(out, body[loc[1]:]...)
	} else {
		// A value on the following line cannot be replaced here without
		// leaving it behind, so such a line is kept as is.
		key := localeKeyRe.FindIndex(body)
		if len(bytes.TrimSpace(body[key[1]:])) == 0 {
			return line
		}
		indent := body[:len(body)-len(bytes.TrimLeft(body, " \t"))]
		out = append(out, indent...)
		out = append(out, `"`+LocaleKey+`": `...)
		out = append(out, quoted...)
		if bytes.HasSuffix(bytes.TrimRight(body, " \t"), []byte(",")) {
			out = append(out, ',')
		}
	}
	return append(out, eol...)
}

// splitEOL separates a line from its terminator ("\n", "\r\n" or none).
func splitEOL(line []byte) (body, eol []byte) {
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		return line[:len(line)-2], line[len(line)-2:]
	case bytes.HasSuffix(line, []byte("\n")):
		return line[:len(line)-1], line[len(line)-1:]
	}
	return line, nil
}

// RewriteLocaleFile normalizes the "@@locale" entry of the file at path.
// The new content is written to a temporary file next to path and renamed
// over it, so the file is either fully rewritten or left as it was.
func RewriteLocaleFile(path, locale string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	out := NormalizeLocale(data, locale)
	if bytes.Equal(out, data) {
		return nil
	}
	return WriteFileAtomic(path, out, info.Mode().Perm())
}

// WriteFileAtomic writes data to a temporary file in path's directory,
// syncs it and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
