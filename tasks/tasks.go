// Package tasks wraps the Flutter and Dart toolchains for the app's routine
// build chores. Each task runs one external command in the project
// directory; release builds first run the fixed chain clean, update,
// translate.
package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is a single external invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec, passing output through.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	path, err := exec.LookPath(c.Name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH: %w", c.Name, err)
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}
	return nil
}

// DryRunner prints commands instead of running them.
type DryRunner struct {
	Out io.Writer
}

// Run implements Runner.
func (r DryRunner) Run(_ context.Context, c Command) error {
	_, err := fmt.Fprintf(r.Out, "(cd %s && %s)\n", c.Dir, c)
	return err
}

// Tasks holds what every task needs.
type Tasks struct {
	// Dir is the Flutter project directory.
	Dir string
	// Flutter and Dart are the executables to invoke.
	Flutter string
	Dart    string
	// Runner executes the commands.
	Runner Runner
	// Translate performs the translation step; it runs in-process.
	Translate func(ctx context.Context) error
	// OnStep is called before each task starts.
	OnStep func(name string)
}

func (t *Tasks) step(name string) {
	if t.OnStep != nil {
		t.OnStep(name)
	}
}

func (t *Tasks) flutter(ctx context.Context, args ...string) error {
	return t.Runner.Run(ctx, Command{Name: t.Flutter, Args: args, Dir: t.Dir})
}

func (t *Tasks) dart(ctx context.Context, args ...string) error {
	return t.Runner.Run(ctx, Command{Name: t.Dart, Args: args, Dir: t.Dir})
}

// Clean removes Flutter build output.
func (t *Tasks) Clean(ctx context.Context) error {
	t.step("clean")
	return t.flutter(ctx, "clean")
}

// Update fetches Flutter dependencies.
func (t *Tasks) Update(ctx context.Context) error {
	t.step("update")
	return t.flutter(ctx, "pub", "get")
}

// UpdateTranslations collects the translation bundles.
func (t *Tasks) UpdateTranslations(ctx context.Context) error {
	t.step("translate")
	if t.Translate == nil {
		return fmt.Errorf("translate: no translation step configured")
	}
	return t.Translate(ctx)
}

// Prepare runs the release prerequisites in order, stopping at the first
// failure.
func (t *Tasks) Prepare(ctx context.Context) error {
	for _, fn := range []func(context.Context) error{t.Clean, t.Update, t.UpdateTranslations} {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IOS builds the iOS app in release configuration.
func (t *Tasks) IOS(ctx context.Context) error {
	if err := t.Prepare(ctx); err != nil {
		return err
	}
	t.step("ios")
	return t.flutter(ctx, "build", "ipa", "--release", "--no-tree-shake-icons")
}

// Android builds the Android app bundle in release configuration.
func (t *Tasks) Android(ctx context.Context) error {
	if err := t.Prepare(ctx); err != nil {
		return err
	}
	t.step("android")
	return t.flutter(ctx, "build", "appbundle", "--release", "--no-tree-shake-icons")
}

// FormatOptions controls Format.
type FormatOptions struct {
	// Analyze runs `flutter analyze` after formatting.
	Analyze bool
	// DryRun reports formatting changes without writing them.
	DryRun bool
}

// Format formats the Dart sources.
func (t *Tasks) Format(ctx context.Context, opts FormatOptions) error {
	t.step("format")
	args := []string{"format", "."}
	if opts.DryRun {
		args = append(args, "--output=none")
	}
	if err := t.dart(ctx, args...); err != nil {
		return err
	}
	if opts.Analyze {
		return t.flutter(ctx, "analyze")
	}
	return nil
}
