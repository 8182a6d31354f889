// Package lockfile implements collect.lock, a YAML file that remembers the
// MD5 checksum of every bundle written to an output directory. Comparing a
// fresh run against it tells which bundles actually changed.
//
// The lock file lives in the translations root, next to the source
// directories and never inside the output directory, so it does not affect
// the output's contents.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "collect.lock"

// Version is the lock file format version.
const Version = 1

// LockFile represents the collect.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // output dir -> file name -> md5

	path string `yaml:"-"`
}

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", path, lf.Version)
	}
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// Hash computes the MD5 hex digest of content.
func Hash(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))
}

// IsChanged reports whether content differs from what was last recorded
// for name under target. Unknown entries count as changed.
func (lf *LockFile) IsChanged(target, name string, content []byte) bool {
	old, ok := lf.Checksums[target][name]
	return !ok || old != Hash(content)
}

// Update records the checksum of content for name under target.
func (lf *LockFile) Update(target, name string, content []byte) {
	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][name] = Hash(content)
}

// Clean drops entries of target that are not in current and returns their
// names, sorted.
func (lf *LockFile) Clean(target string, current []string) []string {
	existing := lf.Checksums[target]
	if existing == nil {
		return nil
	}

	valid := make(map[string]bool, len(current))
	for _, k := range current {
		valid[k] = true
	}

	var removed []string
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return removed
}

// Stats returns the number of targets and total files in the lock file.
func (lf *LockFile) Stats() (targets, files int) {
	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		files += len(m)
	}
	return
}

// Targets returns the sorted list of targets.
func (lf *LockFile) Targets() []string {
	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, files := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		parts = append(parts, fmt.Sprintf("%s: %d files", t, len(lf.Checksums[t])))
	}
	return fmt.Sprintf("%d targets, %d files (%s)", targets, files, strings.Join(parts, ", "))
}
