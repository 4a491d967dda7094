package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/twpayne/go-geomodels"
	"github.com/twpayne/go-geomodels/data"
)

const defaultProgressWidth = 40

func runInstallData(ctx context.Context, e *env, args []string) error {
	flagSet := newFlagSet(e, "install-data", "MODEL")
	flagSet.Usage = func() {
		fmt.Fprintf(e.stderr, "usage: %s install-data [flags] MODEL\n\n", prog)
		fmt.Fprintf(e.stderr, "MODEL is a group (%s), a model type (%s), or a model name.\n\nflags:\n", joinStrings(data.ModelGroups), joinStrings(data.ModelTypes))
		flagSet.PrintDefaults()
	}
	var baseURL, dataDir string
	flagSet.StringVar(&baseURL, "b", "", "base URL (default "+data.DefaultBaseURL+")")
	flagSet.StringVar(&baseURL, "base-url", "", "base URL (default "+data.DefaultBaseURL+")")
	flagSet.StringVar(&dataDir, "d", "", "data directory")
	flagSet.StringVar(&dataDir, "datadir", "", "data directory")
	noProgress := flagSet.Bool("no-progress", false, "do not show progress")
	dryRun := flagSet.Bool("dry-run", false, "show what would be installed without downloading")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("install-data: expected exactly one model, got %d", flagSet.NArg())
	}
	target := flagSet.Arg(0)

	if baseURL == "" {
		baseURL = e.config.BaseURL
	}
	defaults := data.Defaults{
		Geoid:    geomodels.DefaultGeoidName(),
		Gravity:  geomodels.DefaultGravityName(),
		Magnetic: geomodels.DefaultMagneticName(),
	}
	if e.config.Defaults.Geoid != "" {
		defaults.Geoid = e.config.Defaults.Geoid
	}
	if e.config.Defaults.Gravity != "" {
		defaults.Gravity = e.config.Defaults.Gravity
	}
	if e.config.Defaults.Magnetic != "" {
		defaults.Magnetic = e.config.Defaults.Magnetic
	}
	options := []data.InstallerOption{
		data.WithDataDir(e.dataDir(dataDir)),
		data.WithBaseURL(baseURL),
		data.WithDefaults(defaults),
		data.WithLogger(e.logger.Named("data")),
	}
	if e.config.ArchiveType != "" {
		archiveType, err := data.ParseArchiveType(e.config.ArchiveType)
		if err != nil {
			return err
		}
		options = append(options, data.WithArchiveType(archiveType))
	}

	var bar *progressBar
	if !*noProgress && !*dryRun {
		if width, ok := terminalWidth(e.stderr); ok {
			bar = newProgressBar(e.stderr, width)
			options = append(options, data.WithProgress(bar.update))
		}
	}

	installer, err := data.NewInstaller(options...)
	if err != nil {
		return err
	}

	if *dryRun {
		return printPlan(ctx, e, installer, target)
	}

	models, err := installer.Install(ctx, target)
	if bar != nil {
		bar.done()
	}
	for _, model := range models {
		e.logger.Info("installed", zap.Stringer("model", model))
	}
	return err
}

func printPlan(ctx context.Context, e *env, installer *data.Installer, target string) error {
	plannedModels, err := installer.Plan(target)
	if err != nil {
		return err
	}
	for _, plannedModel := range plannedModels {
		if plannedModel.Installed {
			fmt.Fprintf(e.stdout, "%-20s installed\n", plannedModel.Model)
			continue
		}
		size := "unknown size"
		switch n, err := installer.Size(ctx, plannedModel.Model); {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("size", zap.Stringer("model", plannedModel.Model), zap.Error(err))
		case n >= 0:
			size = formatBytes(n)
		}
		fmt.Fprintf(e.stdout, "%-20s %s (%s)\n", plannedModel.Model, plannedModel.URL, size)
	}
	return nil
}

// terminalWidth returns the width of w if it is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	file, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(file.Fd())
	if !term.IsTerminal(fd) {
		return 0, false
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultProgressWidth, true
	}
	return width, true
}

// A progressBar renders download progress on a single terminal line.
type progressBar struct {
	w        io.Writer
	model    progress.Model
	current  data.Model
	lastLine string
}

func newProgressBar(w io.Writer, width int) *progressBar {
	barWidth := min(max(width-40, 10), defaultProgressWidth)
	return &progressBar{
		w:     w,
		model: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
	}
}

func (b *progressBar) update(model data.Model, received, total int64) {
	if model != b.current && b.current != (data.Model{}) {
		fmt.Fprintln(b.w)
	}
	b.current = model
	var line string
	if total > 0 {
		line = fmt.Sprintf("%-20s %s %s", model, b.model.ViewAs(float64(received)/float64(total)), formatBytes(total))
	} else {
		line = fmt.Sprintf("%-20s %s", model, formatBytes(received))
	}
	if line == b.lastLine {
		return
	}
	b.lastLine = line
	fmt.Fprintf(b.w, "\r%s", line)
}

func (b *progressBar) done() {
	if b.current != (data.Model{}) {
		fmt.Fprintln(b.w)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func joinStrings[S ~string](ss []S) string {
	strs := make([]string, 0, len(ss))
	for _, s := range ss {
		strs = append(strs, string(s))
	}
	return strings.Join(strs, ", ")
}
