package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/twpayne/go-geomodels"
	"github.com/twpayne/go-geomodels/data"
)

func newFlagSet(e *env, name, arguments string) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(e.stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(e.stderr, "usage: %s %s [flags] %s\n\nflags:\n", prog, name, arguments)
		flagSet.PrintDefaults()
	}
	return flagSet
}

func runInfo(_ context.Context, e *env, args []string) error {
	flagSet := newFlagSet(e, "info", "")
	var dataDir string
	flagSet.StringVar(&dataDir, "d", "", "data directory")
	flagSet.StringVar(&dataDir, "datadir", "", "data directory")
	var all, dataOnly bool
	flagSet.BoolVar(&all, "a", false, "show versions and installed data")
	flagSet.BoolVar(&all, "all", false, "show versions and installed data")
	flagSet.BoolVar(&dataOnly, "data", false, "show installed data only")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 0 {
		return fmt.Errorf("info: unexpected arguments: %v", flagSet.Args())
	}

	if all || !dataOnly {
		printVersions(e.stdout)
	}
	if all || dataOnly {
		return printDataInfo(e.stdout, e.dataDir(dataDir))
	}
	return nil
}

func printVersions(w io.Writer) {
	for _, line := range [][2]string{
		{prog + " version:", version},
		{"GeographicLib version:", geomodels.LibVersion()},
		{"Go version:", runtime.Version()},
		{"Platform:", runtime.GOOS + "/" + runtime.GOARCH},
		{"Default data path:", geomodels.DefaultDataPath()},
	} {
		fmt.Fprintf(w, "%-27s%s\n", line[0], line[1])
	}
	fmt.Fprintln(w)
}

func printDataInfo(w io.Writer, dataDir string) error {
	renderer := lipgloss.NewRenderer(w)
	headerStyle := renderer.NewStyle().Bold(true)
	installedStyle := renderer.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	notInstalledStyle := renderer.NewStyle().Foreground(lipgloss.Color("#666666"))

	statuses, err := data.Status(dataDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "data directory: %q\n", dataDir)
	var modelType data.ModelType
	for _, status := range statuses {
		if status.Model.Type != modelType {
			modelType = status.Model.Type
			header := fmt.Sprintf("* model: %s (%q)", modelType, filepath.Join(dataDir, string(modelType)))
			fmt.Fprintln(w, headerStyle.Render(header))
		}
		state := notInstalledStyle.Render("NOT INSTALLED")
		if status.Installed {
			state = installedStyle.Render("INSTALLED")
		}
		fmt.Fprintf(w, "  %-12s - %s\n", status.Model.Name, state)
	}
	return nil
}
