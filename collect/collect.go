// Package collect gathers translation bundles delivered into per-source
// subdirectories (one per translation export) into a single flat directory
// that the app's localization loader reads, and makes the "@@locale" entry
// of each collected bundle agree with the locale in its file name.
//
// Layout, with the defaults:
//
//	lib/l10n/
//	  app_en.arb          base bundle, hand-authored, copied verbatim
//	  de/app_de.arb       source directory
//	  fr/app_fr.arb       source directory
//	  collected/          output directory, never treated as a source
//
// Source directories are visited in lexicographic order. When two of them
// deliver the same file name, the later one wins.
package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inventree/apptask/arbfile"
	"github.com/inventree/apptask/lockfile"
)

var (
	// ErrNotFound is returned when the root directory or the base bundle
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCollision is returned when two source directories deliver the same
	// bundle and Config.FailOnCollision is set.
	ErrCollision = errors.New("bundle delivered by more than one source directory")
)

// Defaults for Config.
const (
	DefaultOutputDir  = "collected"
	DefaultPrefix     = "app"
	DefaultExtension  = ".arb"
	DefaultBaseLocale = "en"
)

// Config holds every path and naming rule the collector needs.
type Config struct {
	// Root is the directory holding the base bundle and the source directories.
	Root string
	// OutputDir is the name of the output directory under Root.
	OutputDir string
	// Prefix is the part of a bundle name before "_<locale>".
	Prefix string
	// Extension is the bundle file extension, including the dot.
	Extension string
	// BaseLocale is the locale of the hand-authored bundle in Root.
	BaseLocale string
	// FailOnCollision turns a file name delivered by two source directories
	// into an error instead of a warning.
	FailOnCollision bool
}

// WithDefaults returns a copy of c with empty fields filled in.
func (c Config) WithDefaults() Config {
	if c.Root == "" {
		c.Root = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	if c.BaseLocale == "" {
		c.BaseLocale = DefaultBaseLocale
	}
	return c
}

// OutputPath returns the absolute-or-relative path of the output directory.
func (c Config) OutputPath() string {
	return filepath.Join(c.Root, c.OutputDir)
}

// BaseName returns the file name of the base bundle, e.g. "app_en.arb".
func (c Config) BaseName() string {
	return arbfile.BundleName(c.Prefix, c.BaseLocale, c.Extension)
}

// Options carries the collector's callbacks and optional lock file.
type Options struct {
	// OnCopy is called after each bundle has been copied.
	OnCopy func(name, from string)
	// OnLog receives warnings.
	OnLog func(format string, args ...any)
	// Lock, when set, is used to detect which output files changed. The
	// caller owns saving it.
	Lock *lockfile.LockFile
}

// Collector runs the collection for one Config.
type Collector struct {
	cfg  Config
	opts Options
}

// New returns a Collector for cfg. Empty Config fields take their defaults.
func New(cfg Config, opts Options) *Collector {
	return &Collector{cfg: cfg.WithDefaults(), opts: opts}
}

// Config returns the effective configuration.
func (c *Collector) Config() Config { return c.cfg }

// Copied describes one bundle written to the output directory.
type Copied struct {
	Name   string // file name in the output directory
	From   string // path it was copied from
	Locale string // locale written into the bundle; empty for the base bundle
}

// Collision records a file name delivered by more than one source directory.
type Collision struct {
	Name   string
	Loser  string // path overwritten
	Winner string // path that ended up in the output directory
}

// Report summarises a run.
type Report struct {
	Copied     []Copied
	Collisions []Collision
	// Changed lists output files whose content differs from the lock file.
	// Only filled when Options.Lock is set.
	Changed []string
	// Removed lists lock entries whose file is no longer produced.
	Removed []string
}

func (c *Collector) logf(format string, args ...any) {
	if c.opts.OnLog != nil {
		c.opts.OnLog(format, args...)
	}
}

// Sources returns the immediate subdirectories of Root, except the output
// directory, in lexicographic order.
func (c *Collector) Sources() ([]string, error) {
	info, err := os.Stat(c.cfg.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("translations root %s: %w", c.cfg.Root, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", c.cfg.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("translations root %s is not a directory: %w", c.cfg.Root, ErrNotFound)
	}

	entries, err := os.ReadDir(c.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.cfg.Root, err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.Name() == c.cfg.OutputDir {
			continue
		}
		path := filepath.Join(c.cfg.Root, entry.Name())
		if isDir(entry, path) {
			dirs = append(dirs, path)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Bundles returns the regular files in dir carrying the bundle extension,
// in lexicographic order. Anything else is skipped without error.
func (c *Collector) Bundles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, c.cfg.Extension) {
			continue
		}
		path := filepath.Join(dir, name)
		if isRegular(entry, path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run collects all bundles into the output directory and finally copies the
// base bundle verbatim. The first error aborts the run; files written before
// it stay in place.
func (c *Collector) Run(ctx context.Context) (*Report, error) {
	sources, err := c.Sources()
	if err != nil {
		return nil, err
	}

	out := c.cfg.OutputPath()
	if err := os.MkdirAll(out, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", out, err)
	}

	report := &Report{}
	delivered := make(map[string]string)

	for _, dir := range sources {
		bundles, err := c.Bundles(dir)
		if err != nil {
			return report, err
		}

		for _, src := range bundles {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			name := filepath.Base(src)
			locale, err := arbfile.LocaleFromName(name, c.cfg.Prefix, c.cfg.Extension)
			if err != nil {
				return report, fmt.Errorf("%s: %w", src, err)
			}

			if prev, ok := delivered[name]; ok {
				if c.cfg.FailOnCollision {
					return report, fmt.Errorf("%s (%s and %s): %w", name, prev, src, ErrCollision)
				}
				c.logf("%s is delivered by both %s and %s; using %s", name, prev, src, src)
				report.Collisions = append(report.Collisions, Collision{Name: name, Loser: prev, Winner: src})
			}
			delivered[name] = src

			dst, err := c.CopyBundle(src, out)
			if err != nil {
				return report, err
			}

			if err := arbfile.RewriteLocaleFile(dst, locale); err != nil {
				return report, err
			}
			report.Copied = append(report.Copied, Copied{Name: name, From: src, Locale: locale})
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	baseName := c.cfg.BaseName()
	baseSrc := filepath.Join(c.cfg.Root, baseName)
	if _, err := os.Stat(baseSrc); errors.Is(err, os.ErrNotExist) {
		return report, fmt.Errorf("base bundle %s: %w", baseSrc, ErrNotFound)
	}
	if _, err := c.CopyBundle(baseSrc, out); err != nil {
		return report, err
	}
	report.Copied = append(report.Copied, Copied{Name: baseName, From: baseSrc})

	if c.opts.Lock != nil {
		if err := c.updateLock(report); err != nil {
			return report, err
		}
	}

	return report, nil
}

// updateLock hashes every file produced by this run.
func (c *Collector) updateLock(report *Report) error {
	seen := make(map[string]bool)
	var names []string
	for _, cp := range report.Copied {
		if !seen[cp.Name] {
			seen[cp.Name] = true
			names = append(names, cp.Name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(c.cfg.OutputPath(), name))
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if c.opts.Lock.IsChanged(c.cfg.OutputDir, name, data) {
			report.Changed = append(report.Changed, name)
		}
		c.opts.Lock.Update(c.cfg.OutputDir, name, data)
	}
	report.Removed = c.opts.Lock.Clean(c.cfg.OutputDir, names)
	return nil
}

// CopyBundle copies src into dstDir under its own name and reports it
// through OnCopy. It returns the destination path.
func (c *Collector) CopyBundle(src, dstDir string) (string, error) {
	name := filepath.Base(src)
	dst := filepath.Join(dstDir, name)
	if err := CopyFile(src, dst); err != nil {
		return "", err
	}
	if c.opts.OnCopy != nil {
		c.opts.OnCopy(name, src)
	}
	return dst, nil
}

// CopyFile copies src to dst byte for byte, replacing dst if it exists.
// The data is synced to disk before CopyFile returns.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", dst, err)
	}
	return nil
}

// isDir follows symlinks, like the directory listing the app build sees.
func isDir(entry os.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isRegular(entry os.DirEntry, path string) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
