// Command apptask runs build chores for the mobile app: translation collection and
// Flutter task wrappers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inventree/apptask/arbfile"
	"github.com/inventree/apptask/collect"
	"github.com/inventree/apptask/config"
	"github.com/inventree/apptask/i18n"
	"github.com/inventree/apptask/langmeta"
	"github.com/inventree/apptask/lockfile"
	"github.com/inventree/apptask/tasks"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	colorBlue   = color.New(color.FgBlue)
	colorGreen  = color.New(color.FgGreen)
	colorYellow = color.New(color.FgYellow, color.Bold)
	colorRed    = color.New(color.FgRed)
)

func init() {
	// Logs go to stderr, so decide on color from stderr, not stdout.
	fd := os.Stderr.Fd()
	if os.Getenv("NO_COLOR") != "" || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		color.NoColor = true
	}
}

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue.Sprint("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen.Sprint("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow.Sprint("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed.Sprint("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	dryRun  bool
)

// collectFlags are shared by `collect` and the tasks that collect.
type collectFlags struct {
	l10nDir    string
	output     string
	prefix     string
	baseLocale string
	strict     bool
	noLock     bool
}

func (f *collectFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.l10nDir, "l10n-dir", "", "Translations root relative to the project (default lib/l10n)")
	fs.StringVar(&f.output, "output", "", "Output directory name inside the translations root (default collected)")
	fs.StringVar(&f.prefix, "prefix", "", "Bundle file name prefix (default app)")
	fs.StringVar(&f.baseLocale, "base-locale", "", "Locale of the hand-authored base bundle (default en)")
	fs.BoolVar(&f.strict, "strict", false, "Fail when two source directories deliver the same bundle")
	fs.BoolVar(&f.noLock, "no-lock", false, "Do not read or update "+lockfile.LockFileName)
}

// settings loads .apptask.yaml from the project root and applies flags.
func (f *collectFlags) settings(fs *pflag.FlagSet) (*config.File, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if fs.Changed("l10n-dir") {
		cfg.L10nDir = f.l10nDir
	}
	if fs.Changed("output") {
		cfg.OutputDir = f.output
	}
	if fs.Changed("prefix") {
		cfg.Prefix = f.prefix
	}
	if fs.Changed("base-locale") {
		cfg.BaseLocale = f.baseLocale
	}
	if f.strict {
		cfg.FailOnCollision = true
	}
	if f.noLock {
		disabled := false
		cfg.Lock = &disabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "apptask",
		Short: "Build chores for the mobile app",
		Long: `apptask runs build chores for the mobile app.

Commands:
  collect     Collect translation bundles into one directory
  status      Show project info and collected translations
  clean       flutter clean
  update      flutter pub get
  translate   Collect translations (same as collect, as a build step)
  ios         clean, update, translate, then build the iOS release
  android     clean, update, translate, then build the Android release
  format      dart format (optionally flutter analyze)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print external commands instead of running them; format only reports changes")

	root.AddCommand(newCollectCmd(), newStatusCmd())
	root.AddCommand(newTaskCmds()...)
	root.AddCommand(newVersionCmd())

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apptask version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// collect
// ---------------------------------------------------------------------------

func newCollectCmd() *cobra.Command {
	var flags collectFlags

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect translation bundles into one directory",
		Long: `Copy every <prefix>_<locale>.arb found in the subdirectories of the
translations root into the output directory, set each copy's "@@locale"
entry to the locale in its file name, then copy the base bundle verbatim.

Source directories are processed in lexicographic order; when two deliver
the same file, the later one wins (or the run fails with --strict).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.settings(cmd.Flags())
			if err != nil {
				return err
			}
			return runCollect(cmd.Context(), cfg)
		},
	}
	flags.register(cmd.Flags())

	return cmd
}

func runCollect(ctx context.Context, cfg *config.File) error {
	ccfg := cfg.CollectConfig(rootDir)

	var lock *lockfile.LockFile
	if cfg.LockEnabled() {
		var err error
		if lock, err = lockfile.Load(ccfg.Root); err != nil {
			return err
		}
	}

	c := collect.New(ccfg, collect.Options{
		OnCopy: func(name, from string) {
			logInfo(i18n.T("Copied file '%s'"), name)
		},
		OnLog: logWarning,
		Lock:  lock,
	})

	report, err := c.Run(ctx)
	if err != nil {
		return err
	}

	if lock != nil {
		if err := lock.Save(); err != nil {
			return err
		}
		switch n := len(report.Changed); n {
		case 0:
			logInfo(i18n.T("No bundle changed since the last run"))
		default:
			logInfo(i18n.N("%d bundle changed since the last run: %s", "%d bundles changed since the last run: %s", n),
				n, strings.Join(report.Changed, ", "))
		}
	}

	n := len(report.Copied)
	logInfo(i18n.N("Collected %d bundle into %s", "Collected %d bundles into %s", n), n, c.Config().OutputPath())
	logSuccess(i18n.T("Collection complete"))
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var flags collectFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project info and collected translations",
		Long: `Show the detected project, the translation sources and, for every
collected bundle, its key count, translation progress and whether its
"@@locale" entry agrees with its file name. Does not modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.settings(cmd.Flags())
			if err != nil {
				return err
			}
			runStatus(cfg)
			return nil
		},
	}
	flags.register(cmd.Flags())

	return cmd
}

func runStatus(cfg *config.File) {
	proj := config.Detect(rootDir)
	ccfg := cfg.CollectConfig(rootDir).WithDefaults()

	fmt.Fprintf(os.Stderr, "\n%s\n", colorBlue.Sprint("Project"))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Name:       %s\n", proj.Name)
	fmt.Fprintf(os.Stderr, "  Version:    %s\n", proj.Version)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", proj.Root)
	if !proj.Flutter {
		fmt.Fprintf(os.Stderr, "  Flutter:    no %s found\n", config.PubspecFileName)
	}
	cfgDesc := "defaults"
	if cfg.Path() != "" {
		cfgDesc = cfg.Path()
	}
	fmt.Fprintf(os.Stderr, "  Config:     %s\n", cfgDesc)
	fmt.Fprintf(os.Stderr, "  L10n dir:   %s\n", ccfg.Root)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", ccfg.OutputPath())
	fmt.Fprintln(os.Stderr)

	c := collect.New(ccfg, collect.Options{})
	sources, err := c.Sources()
	if err != nil {
		logWarning("%v", err)
		return
	}
	for _, dir := range sources {
		locales := config.DetectLocales(dir, ccfg.Prefix, ccfg.Extension)
		fmt.Fprintf(os.Stderr, "  Source %-12s %s\n", filepath.Base(dir)+":", strings.Join(locales, ", "))
	}
	if len(sources) == 0 {
		fmt.Fprintf(os.Stderr, "  Sources:    none\n")
	}
	fmt.Fprintln(os.Stderr)

	showBundleTable(ccfg)

	if cfg.LockEnabled() {
		if lock, err := lockfile.Load(ccfg.Root); err == nil {
			fmt.Fprintf(os.Stderr, "  Lock:       %s\n\n", lock.Summary())
		}
	}
}

func showBundleTable(ccfg collect.Config) {
	out := ccfg.OutputPath()
	entries, err := os.ReadDir(out)
	if err != nil {
		logInfo(i18n.T("No collected bundles yet. Run 'apptask collect'."))
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ccfg.Extension) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		logInfo(i18n.T("No collected bundles in %s"), out)
		return
	}

	var locales []string
	for _, name := range names {
		if l, err := arbfile.LocaleFromName(name, ccfg.Prefix, ccfg.Extension); err == nil {
			locales = append(locales, l)
		}
	}
	width := langColumnWidth(locales)

	fmt.Fprintf(os.Stderr, "%s\n", colorBlue.Sprint("Collected bundles"))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	var problems []string
	for _, name := range names {
		locale, err := arbfile.LocaleFromName(name, ccfg.Prefix, ccfg.Extension)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}

		f, err := arbfile.ParseFile(filepath.Join(out, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s  %s\n", langCell(locale, width), colorRed.Sprint("unreadable"))
			problems = append(problems, err.Error())
			continue
		}

		total, _, pct := f.Stats()
		fmt.Fprintf(os.Stderr, "  %s  %-22s %5d keys  %s\n",
			langCell(locale, width), langmeta.Resolve(locale).Name, total, progressBar(int(pct), 20))

		if f.Locale() != locale {
			problems = append(problems, fmt.Sprintf("%s: %s is %q, file name says %q", name, arbfile.LocaleKey, f.Locale(), locale))
		}
		if !langmeta.Valid(locale) {
			problems = append(problems, fmt.Sprintf("%s: %q is not a valid language tag", name, locale))
		}
	}
	fmt.Fprintln(os.Stderr)

	for _, p := range problems {
		logWarning("%s", p)
	}
	if len(problems) > 0 {
		fmt.Fprintln(os.Stderr)
	}
}

// ---------------------------------------------------------------------------
// Build tasks
// ---------------------------------------------------------------------------

func newTaskCmds() []*cobra.Command {
	var (
		flags   collectFlags
		analyze bool
	)

	// newTasks builds the task set for the current flags. printOnly swaps
	// the exec runner for one that only prints the commands.
	newTasks := func(cmd *cobra.Command, printOnly bool) (*tasks.Tasks, error) {
		cfg, err := flags.settings(cmd.Flags())
		if err != nil {
			return nil, err
		}

		var runner tasks.Runner = tasks.ExecRunner{}
		if printOnly {
			runner = tasks.DryRunner{Out: os.Stdout}
		}

		proj := config.Detect(rootDir)
		if !proj.Flutter {
			logWarning("No %s in %s; flutter commands may fail", config.PubspecFileName, proj.Root)
		}

		return &tasks.Tasks{
			Dir:     proj.Root,
			Flutter: cfg.Flutter,
			Dart:    cfg.Dart,
			Runner:  runner,
			Translate: func(ctx context.Context) error {
				if dryRun {
					logInfo(i18n.T("Would collect translations in %s"), cfg.L10nPath(rootDir))
					return nil
				}
				return runCollect(ctx, cfg)
			},
			OnStep: func(name string) {
				logInfo(i18n.T("Running %s"), name)
			},
		}, nil
	}

	simple := func(use, short string, run func(*tasks.Tasks, context.Context) error) *cobra.Command {
		cmd := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := newTasks(cmd, dryRun)
				if err != nil {
					return err
				}
				if err := run(t, cmd.Context()); err != nil {
					return err
				}
				logSuccess(i18n.T("%s finished"), use)
				return nil
			},
		}
		flags.register(cmd.Flags())
		return cmd
	}

	format := &cobra.Command{
		Use:   "format",
		Short: "Format Dart code",
		Long: `Run dart format on the project. With --dry-run, dart reports the files
it would change without writing them (dart format --output=none).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newTasks(cmd, false)
			if err != nil {
				return err
			}
			return t.Format(cmd.Context(), tasks.FormatOptions{Analyze: analyze, DryRun: dryRun})
		},
	}
	flags.register(format.Flags())
	format.Flags().BoolVar(&analyze, "analyze", false, "Run flutter analyze after formatting")

	return []*cobra.Command{
		simple("clean", "Clean the Flutter build", (*tasks.Tasks).Clean),
		simple("update", "Update Flutter dependencies", (*tasks.Tasks).Update),
		simple("translate", "Collect translation bundles", (*tasks.Tasks).UpdateTranslations),
		simple("ios", "Build the iOS app in release configuration", (*tasks.Tasks).IOS),
		simple("android", "Build the Android app in release configuration", (*tasks.Tasks).Android),
		format,
	}
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// progressBar renders a colored bar followed by a right-aligned percentage.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	c := colorRed
	switch {
	case percent >= 90:
		c = colorGreen
	case percent >= 50:
		c = colorYellow
	}
	return c.Sprint(bar) + fmt.Sprintf(" %3d%%", percent)
}

// langFlag returns the emoji flag for a bundle locale, or "".
func langFlag(locale string) string {
	return langmeta.Resolve(locale).Flag
}

func langColumnWidth(locales []string) int {
	w := 0
	for _, l := range locales {
		if len(l) > w {
			w = len(l)
		}
	}
	return w
}

// langCell renders "<flag> <locale>" padded to width.
func langCell(locale string, width int) string {
	flag := langFlag(locale)
	if flag == "" {
		flag = "  "
	}
	return fmt.Sprintf("%s %-*s", flag, width, locale)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var ee *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	case errors.As(err, &ee) && ee.ExitCode() > 0:
		// A failed flutter or dart run exits with that tool's status.
		return ee.ExitCode()
	default:
		return 1
	}
}
