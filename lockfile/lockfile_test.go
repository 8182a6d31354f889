package lockfile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newLock() *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}
}

func TestHashDeterministic(t *testing.T) {
	h1 := Hash([]byte("hello world"))
	h2 := Hash([]byte("hello world"))
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	if h1 == Hash([]byte("different")) {
		t.Errorf("Hash collision for different input")
	}
	if h1 != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("Hash(hello world) = %s", h1)
	}
}

func TestLoadNonExistent(t *testing.T) {
	dir := t.TempDir()
	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if len(lf.Checksums) != 0 {
		t.Errorf("Checksums not empty: %v", lf.Checksums)
	}
	if lf.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("Path = %q", lf.Path())
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("version: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted an unsupported version")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("checksums: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lf.Update("collected", "app_de.arb", []byte("de"))
	lf.Update("collected", "app_fr.arb", []byte("fr"))
	lf.Update("other", "app_fr.arb", []byte("fr"))

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}

	targets, files := lf2.Stats()
	if targets != 2 {
		t.Errorf("targets = %d, want 2", targets)
	}
	if files != 3 {
		t.Errorf("files = %d, want 3", files)
	}
	if lf2.IsChanged("collected", "app_de.arb", []byte("de")) {
		t.Error("reloaded checksum should match")
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := newLock().Save(); err == nil {
		t.Fatal("Save without path should fail")
	}
}

func TestIsChanged(t *testing.T) {
	lf := newLock()

	if !lf.IsChanged("collected", "app_fr.arb", []byte("x")) {
		t.Error("new entry should be changed")
	}

	lf.Update("collected", "app_fr.arb", []byte("x"))
	if lf.IsChanged("collected", "app_fr.arb", []byte("x")) {
		t.Error("unchanged entry should not be changed")
	}
	if !lf.IsChanged("collected", "app_fr.arb", []byte("y")) {
		t.Error("modified entry should be changed")
	}
	if !lf.IsChanged("elsewhere", "app_fr.arb", []byte("x")) {
		t.Error("different target should be changed")
	}
}

func TestClean(t *testing.T) {
	lf := newLock()
	lf.Update("collected", "app_de.arb", []byte("de"))
	lf.Update("collected", "app_fr.arb", []byte("fr"))
	lf.Update("collected", "app_it.arb", []byte("it"))
	lf.Update("collected", "app_es.arb", []byte("es"))

	removed := lf.Clean("collected", []string{"app_de.arb", "app_fr.arb"})
	if want := []string{"app_es.arb", "app_it.arb"}; !reflect.DeepEqual(removed, want) {
		t.Errorf("removed = %v, want %v", removed, want)
	}
	if lf.IsChanged("collected", "app_de.arb", []byte("de")) {
		t.Error("app_de.arb should still be tracked")
	}
	if !lf.IsChanged("collected", "app_it.arb", []byte("it")) {
		t.Error("app_it.arb should be removed by Clean")
	}

	if got := lf.Clean("missing", nil); got != nil {
		t.Errorf("Clean on unknown target = %v, want nil", got)
	}
}

func TestTargetsAndSummary(t *testing.T) {
	lf := newLock()
	if lf.Summary() != "empty" {
		t.Errorf("empty summary = %q, want %q", lf.Summary(), "empty")
	}

	lf.Update("b", "app_en.arb", []byte("en"))
	lf.Update("a", "app_en.arb", []byte("en"))
	lf.Update("a", "app_de.arb", []byte("de"))

	if got, want := lf.Targets(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Targets = %v, want %v", got, want)
	}
	if got, want := lf.Summary(), "2 targets, 3 files (a: 2 files, b: 1 files)"; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}
