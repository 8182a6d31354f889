package collect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inventree/apptask/arbfile"
	"github.com/inventree/apptask/lockfile"
)

const baseARB = "{\n    \"@@locale\": \"en\",\n    \"appTitle\": \"InvenTree\",\n    \"@appTitle\": {}\n}\n"

// writeTree creates files under root; keys are slash-separated paths.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	require.Equal(t, Config{
		Root:       ".",
		OutputDir:  "collected",
		Prefix:     "app",
		Extension:  ".arb",
		BaseLocale: "en",
	}, cfg)
	require.Equal(t, "app_en.arb", cfg.BaseName())
	require.Equal(t, "collected", cfg.OutputPath())

	cfg = Config{Root: "/x", Extension: "json", Prefix: "strings", BaseLocale: "de"}.WithDefaults()
	require.Equal(t, ".json", cfg.Extension)
	require.Equal(t, "strings_de.json", cfg.BaseName())
	require.Equal(t, filepath.Join("/x", "collected"), cfg.OutputPath())
}

func TestSources(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app_en.arb":           baseARB,
		"fr/app_fr.arb":        "{}",
		"de/app_de.arb":        "{}",
		"collected/app_de.arb": "{}",
		"notes.txt":            "",
	})

	c := New(Config{Root: root}, Options{})
	dirs, err := c.Sources()
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "de"), filepath.Join(root, "fr")}, dirs)
}

func TestSourcesMissingRoot(t *testing.T) {
	c := New(Config{Root: filepath.Join(t.TempDir(), "nope")}, Options{})
	_, err := c.Sources()
	require.ErrorIs(t, err, ErrNotFound)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = New(Config{Root: file}, Options{}).Sources()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBundles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app_fr.arb":        "{}",
		"src/app_fr_CA.arb":     "{}",
		"src/readme.txt":        "",
		"src/app_fr.arb.bak":    "",
		"src/nested/app_it.arb": "{}",
	})
	require.NoError(t, os.Mkdir(filepath.Join(root, "src", "dir.arb"), 0755))

	c := New(Config{Root: root}, Options{})
	files, err := c.Bundles(filepath.Join(root, "src"))
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "src", "app_fr.arb"),
		filepath.Join(root, "src", "app_fr_CA.arb"),
	}, files)
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	frARB := "{\n    \"@@locale\": \"xx\",\n    \"appTitle\": \"InvenTree\",\n    \"partName\": \"Nom de la pièce\"\n}\n"
	writeTree(t, root, map[string]string{
		"app_en.arb":       baseARB,
		"fr/app_fr.arb":    frARB,
		"fr/readme.txt":    "ignored",
		"zh/app_zh_CN.arb": "{\n  \"appTitle\": \"库存\",\n  \"@@locale\": \"zh\"\n}",
	})

	var copied []string
	c := New(Config{Root: root}, Options{
		OnCopy: func(name, from string) { copied = append(copied, name) },
	})
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	out := filepath.Join(root, "collected")
	require.Equal(t, []string{"app_en.arb", "app_fr.arb", "app_zh_CN.arb"}, listDir(t, out))
	require.Equal(t, []string{"app_fr.arb", "app_zh_CN.arb", "app_en.arb"}, copied)

	require.Equal(t,
		"{\n    \"@@locale\": \"fr\",\n    \"appTitle\": \"InvenTree\",\n    \"partName\": \"Nom de la pièce\"\n}\n",
		readFile(t, filepath.Join(out, "app_fr.arb")))
	require.Equal(t,
		"{\n  \"appTitle\": \"库存\",\n  \"@@locale\": \"zh_CN\"\n}",
		readFile(t, filepath.Join(out, "app_zh_CN.arb")))
	require.Equal(t, baseARB, readFile(t, filepath.Join(out, "app_en.arb")))

	// Sources are untouched.
	require.Equal(t, frARB, readFile(t, filepath.Join(root, "fr", "app_fr.arb")))

	require.Len(t, report.Copied, 3)
	require.Equal(t, Copied{Name: "app_en.arb", From: filepath.Join(root, "app_en.arb")}, report.Copied[2])
	require.Empty(t, report.Collisions)
}

func TestRunLocaleMatchesFileName(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app_en.arb":           baseARB,
		"batch1/app_de.arb":    "{\"@@locale\": \"en\", \"a\": \"b\"}",
		"batch1/app_pt_BR.arb": "{\n\"@@locale\":\"pt\",\n\"a\":\"b\"\n}",
		"batch2/app_ja.arb":    "{\n  \"@@locale\" : \"\",\n  \"a\": \"日本語\"\n}\n",
	})

	_, err := New(Config{Root: root}, Options{}).Run(context.Background())
	require.NoError(t, err)

	out := filepath.Join(root, "collected")
	for _, name := range listDir(t, out) {
		want, err := arbfile.LocaleFromName(name, "app", ".arb")
		require.NoError(t, err)
		f, err := arbfile.ParseFile(filepath.Join(out, name))
		require.NoError(t, err)
		require.Equal(t, want, f.Locale(), name)
	}
}

func TestRunPatternMismatchAborts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app_en.arb":            baseARB,
		"fr/translation_fr.arb": "{\"@@locale\": \"fr\"}",
	})

	_, err := New(Config{Root: root}, Options{}).Run(context.Background())
	require.ErrorIs(t, err, arbfile.ErrPatternMismatch)

	var pm *arbfile.PatternMismatchError
	require.True(t, errors.As(err, &pm))
	require.Equal(t, "translation_fr.arb", pm.Name)

	_, statErr := os.Stat(filepath.Join(root, "collected", "app_en.arb"))
	require.True(t, os.IsNotExist(statErr), "base bundle must not be copied after a failure")
}

func TestRunMissingBaseBundle(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"fr/app_fr.arb": "{\"@@locale\": \"xx\"}",
	})

	report, err := New(Config{Root: root}, Options{}).Run(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, report.Copied, 1)
	// Work done before the failure stays on disk.
	require.FileExists(t, filepath.Join(root, "collected", "app_fr.arb"))
}

func TestRunMissingRoot(t *testing.T) {
	_, err := New(Config{Root: filepath.Join(t.TempDir(), "l10n")}, Options{}).Run(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRunIdempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app_en.arb":    baseARB,
		"de/app_de.arb": "{\n  \"@@locale\": \"xx\",\n  \"a\": \"Größe\"\n}\n",
		"es/app_es.arb": "{\n  \"@@locale\": \"es\"\n}\n",
	})

	c := New(Config{Root: root}, Options{})
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	out := filepath.Join(root, "collected")
	first := make(map[string]string)
	for _, name := range listDir(t, out) {
		first[name] = readFile(t, filepath.Join(out, name))
	}

	_, err = c.Run(context.Background())
	require.NoError(t, err)

	second := make(map[string]string)
	for _, name := range listDir(t, out) {
		second[name] = readFile(t, filepath.Join(out, name))
	}
	require.Equal(t, first, second)
}

func TestRunCollisionLastSourceWins(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app_en.arb":   baseARB,
		"a/app_fr.arb": "{\n  \"@@locale\": \"fr\",\n  \"v\": \"a\"\n}\n",
		"b/app_fr.arb": "{\n  \"@@locale\": \"fr\",\n  \"v\": \"b\"\n}\n",
	})

	var warnings []string
	report, err := New(Config{Root: root}, Options{
		OnLog: func(format string, args ...any) {
			warnings = append(warnings, format)
		},
	}).Run(context.Background())
	require.NoError(t, err)

	require.Contains(t, readFile(t, filepath.Join(root, "collected", "app_fr.arb")), `"v": "b"`)
	require.Equal(t, []Collision{{
		Name:   "app_fr.arb",
		Loser:  filepath.Join(root, "a", "app_fr.arb"),
		Winner: filepath.Join(root, "b", "app_fr.arb"),
	}}, report.Collisions)
	require.Len(t, warnings, 1)
}

func TestRunCollisionStrict(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app_en.arb":   baseARB,
		"a/app_fr.arb": "{}",
		"b/app_fr.arb": "{}",
	})

	_, err := New(Config{Root: root, FailOnCollision: true}, Options{}).Run(context.Background())
	require.ErrorIs(t, err, ErrCollision)
}

func TestRunCanceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app_en.arb":    baseARB,
		"fr/app_fr.arb": "{}",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{Root: root}, Options{}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunWithLock(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app_en.arb":    baseARB,
		"de/app_de.arb": "{\n  \"@@locale\": \"de\"\n}\n",
		"fr/app_fr.arb": "{\n  \"@@locale\": \"fr\"\n}\n",
	})

	lock, err := lockfile.Load(root)
	require.NoError(t, err)
	c := New(Config{Root: root}, Options{Lock: lock})

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"app_de.arb", "app_en.arb", "app_fr.arb"}, report.Changed)

	report, err = c.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Changed)

	writeTree(t, root, map[string]string{
		"fr/app_fr.arb": "{\n  \"@@locale\": \"fr\",\n  \"new\": \"nouveau\"\n}\n",
	})
	require.NoError(t, os.RemoveAll(filepath.Join(root, "de")))

	report, err = c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"app_fr.arb"}, report.Changed)
	require.Equal(t, []string{"app_de.arb"}, report.Removed)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.arb")
	dst := filepath.Join(dir, "dst.arb")
	content := strings.Repeat("Ünïcödé ✓\n", 1000)
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("old content that is longer than nothing"), 0644))

	require.NoError(t, CopyFile(src, dst))
	require.Equal(t, content, readFile(t, dst))

	err := CopyFile(filepath.Join(dir, "missing"), dst)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyBundle(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"de/app_de.arb": "{}"})
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0755))

	var notified []string
	c := New(Config{Root: dir}, Options{OnCopy: func(name, from string) {
		notified = append(notified, name+" <- "+from)
	}})

	src := filepath.Join(dir, "de", "app_de.arb")
	dst, err := c.CopyBundle(src, out)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(out, "app_de.arb"), dst)
	require.Equal(t, "{}", readFile(t, dst))
	require.Equal(t, []string{"app_de.arb <- " + src}, notified)

	_, err = c.CopyBundle(filepath.Join(dir, "de", "app_fr.arb"), out)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Len(t, notified, 1)
}
