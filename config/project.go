package config

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inventree/apptask/arbfile"
)

// PubspecFileName marks the root of a Flutter project.
const PubspecFileName = "pubspec.yaml"

// Project holds auto-detected project information.
type Project struct {
	// Name from pubspec.yaml, or the directory name.
	Name string
	// Version from pubspec.yaml, or "0.0.0".
	Version string
	// Root is the absolute project root.
	Root string
	// Flutter is true when a pubspec.yaml was found.
	Flutter bool
}

type pubspec struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Detect inspects rootDir. It never fails; missing or unreadable metadata
// falls back to the directory name.
func Detect(rootDir string) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := &Project{Root: absRoot}
	if name, version, err := parsePubspec(filepath.Join(absRoot, PubspecFileName)); err == nil {
		p.Flutter = true
		p.Name = name
		p.Version = version
	}

	if p.Name == "" {
		p.Name = filepath.Base(absRoot)
	}
	if p.Version == "" {
		p.Version = "0.0.0"
	}
	return p
}

func parsePubspec(path string) (name, version string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	var ps pubspec
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return "", "", err
	}
	return ps.Name, ps.Version, nil
}

// DetectLocales lists the locales of the bundles found directly in dir,
// sorted. Files that do not follow the naming pattern are skipped.
func DetectLocales(dir, prefix, ext string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var locales []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if locale, err := arbfile.LocaleFromName(entry.Name(), prefix, ext); err == nil {
			locales = append(locales, locale)
		}
	}
	sort.Strings(locales)
	return locales
}
