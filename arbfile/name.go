package arbfile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrPatternMismatch is matched (via errors.Is) by every PatternMismatchError.
var ErrPatternMismatch = errors.New("file name does not encode a locale")

// PatternMismatchError reports a bundle whose file name does not follow
// <prefix>_<locale><ext>.
type PatternMismatchError struct {
	Name    string
	Pattern string
}

func (e *PatternMismatchError) Error() string {
	return fmt.Sprintf("%q does not match %s", e.Name, e.Pattern)
}

func (e *PatternMismatchError) Is(target error) bool {
	return target == ErrPatternMismatch
}

// NamePattern returns the regular expression used to pull the locale out of
// a bundle file name. ext may be given with or without its leading dot.
func NamePattern(prefix, ext string) *regexp.Regexp {
	ext = strings.TrimPrefix(ext, ".")
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_(\w+)\.` + regexp.QuoteMeta(ext) + `$`)
}

// LocaleFromName extracts the locale token from a bundle file name, e.g.
// "app_pt_BR.arb" -> "pt_BR". name must be a base name, not a path.
func LocaleFromName(name, prefix, ext string) (string, error) {
	re := NamePattern(prefix, ext)
	m := re.FindStringSubmatch(name)
	if m == nil {
		return "", &PatternMismatchError{Name: name, Pattern: re.String()}
	}
	return m[1], nil
}

// BundleName is the inverse of LocaleFromName.
func BundleName(prefix, locale, ext string) string {
	return prefix + "_" + locale + "." + strings.TrimPrefix(ext, ".")
}
