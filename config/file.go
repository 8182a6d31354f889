// Package config reads the optional .apptask.yaml configuration file.
//
// Every key has a default matching the app's standard layout, and
// command-line flags override whatever the file says.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inventree/apptask/collect"
)

// FileName is the config file name looked up in the project root.
const FileName = ".apptask.yaml"

// Defaults not covered by collect.
const (
	DefaultL10nDir = "lib/l10n"
	DefaultFlutter = "flutter"
	DefaultDart    = "dart"
)

// File is the .apptask.yaml structure.
type File struct {
	// L10nDir is the translations root relative to the project root.
	L10nDir string `yaml:"l10n_dir,omitempty"`
	// OutputDir is the name of the collected bundles directory inside L10nDir.
	OutputDir string `yaml:"output_dir,omitempty"`
	// Prefix is the bundle name prefix ("app" for app_de.arb).
	Prefix string `yaml:"prefix,omitempty"`
	// Extension is the bundle file extension.
	Extension string `yaml:"extension,omitempty"`
	// BaseLocale is the locale of the hand-authored bundle.
	BaseLocale string `yaml:"base_locale,omitempty"`
	// FailOnCollision aborts collection when two sources deliver the same file.
	FailOnCollision bool `yaml:"fail_on_collision,omitempty"`
	// Lock controls whether collect.lock is maintained (default true).
	Lock *bool `yaml:"lock,omitempty"`

	// Flutter is the flutter executable.
	Flutter string `yaml:"flutter,omitempty"`
	// Dart is the dart executable.
	Dart string `yaml:"dart,omitempty"`

	path string
}

var localeRe = regexp.MustCompile(`^\w+$`)

// Default returns the configuration used when no file exists.
func Default() *File {
	f := &File{}
	f.applyDefaults()
	return f
}

// Load reads and validates .apptask.yaml from rootDir. A missing file yields
// Default(). Unknown keys are rejected.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.path = path

	f.applyDefaults()
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// Path returns the file the configuration was loaded from, or "".
func (f *File) Path() string { return f.path }

func (f *File) applyDefaults() {
	if f.L10nDir == "" {
		f.L10nDir = DefaultL10nDir
	}
	if f.OutputDir == "" {
		f.OutputDir = collect.DefaultOutputDir
	}
	if f.Prefix == "" {
		f.Prefix = collect.DefaultPrefix
	}
	if f.Extension == "" {
		f.Extension = collect.DefaultExtension
	}
	if !strings.HasPrefix(f.Extension, ".") {
		f.Extension = "." + f.Extension
	}
	if f.BaseLocale == "" {
		f.BaseLocale = collect.DefaultBaseLocale
	}
	if f.Flutter == "" {
		f.Flutter = DefaultFlutter
	}
	if f.Dart == "" {
		f.Dart = DefaultDart
	}
}

// Validate checks values that defaults cannot repair. Load calls it; callers
// that override fields from flags should call it again.
func (f *File) Validate() error { return f.validate() }

func (f *File) validate() error {
	if strings.ContainsAny(f.OutputDir, `/\`) || f.OutputDir == "." || f.OutputDir == ".." {
		return fmt.Errorf("output_dir %q must be a plain directory name", f.OutputDir)
	}
	if strings.ContainsAny(f.Prefix, `/\`) {
		return fmt.Errorf("prefix %q must not contain path separators", f.Prefix)
	}
	if f.Extension == "." || strings.ContainsAny(f.Extension, `/\`) {
		return fmt.Errorf("extension %q is not a file extension", f.Extension)
	}
	if !localeRe.MatchString(f.BaseLocale) {
		return fmt.Errorf("base_locale %q must be letters, digits or underscores", f.BaseLocale)
	}
	return nil
}

// LockEnabled reports whether collect.lock should be maintained.
func (f *File) LockEnabled() bool {
	return f.Lock == nil || *f.Lock
}

// L10nPath resolves the translations root against projectRoot.
func (f *File) L10nPath(projectRoot string) string {
	if filepath.IsAbs(f.L10nDir) {
		return f.L10nDir
	}
	return filepath.Join(projectRoot, filepath.FromSlash(f.L10nDir))
}

// CollectConfig builds the collector configuration for projectRoot.
func (f *File) CollectConfig(projectRoot string) collect.Config {
	return collect.Config{
		Root:            f.L10nPath(projectRoot),
		OutputDir:       f.OutputDir,
		Prefix:          f.Prefix,
		Extension:       f.Extension,
		BaseLocale:      f.BaseLocale,
		FailOnCollision: f.FailOnCollision,
	}
}
