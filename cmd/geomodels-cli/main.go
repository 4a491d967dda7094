// Command geomodels-cli installs and inspects the data used by geomodels,
// imports IGRF coefficient files, and evaluates models at a point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/twpayne/go-geomodels"
	"github.com/twpayne/go-geomodels/data"
	"github.com/twpayne/go-geomodels/wmmf"
)

const (
	exitSuccess   = 0
	exitFailure   = 1
	exitInterrupt = 130
)

const prog = "geomodels-cli"

var version = "dev"

var logLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// A config is the contents of the optional configuration file.
type config struct {
	DataDir     string        `yaml:"datadir"`
	BaseURL     string        `yaml:"base_url"`
	ArchiveType string        `yaml:"archive_type"`
	LogLevel    string        `yaml:"loglevel"`
	Defaults    data.Defaults `yaml:"defaults"`
}

// An env is the environment shared by all commands.
type env struct {
	config config
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// dataDir returns dataDir if set, otherwise the configured data directory,
// otherwise the data directory that the models search by default.
func (e *env) dataDir(dataDir string) string {
	switch {
	case dataDir != "":
		return dataDir
	case e.config.DataDir != "":
		return e.config.DataDir
	default:
		return geomodels.DefaultDataPath()
	}
}

type command struct {
	name     string
	synopsis string
	run      func(context.Context, *env, []string) error
}

var commands = []command{
	{name: "info", synopsis: "show versions and installed data", run: runInfo},
	{name: "install-data", synopsis: "download and install model data", run: runInstallData},
	{name: "import-igrf", synopsis: "import an IGRF text coefficients file", run: runImportIGRF},
	{name: "eval", synopsis: "evaluate a geoid, gravity, or magnetic model at a point", run: runEval},
}

func loadConfig(name string) (config, error) {
	var c config
	if name == "" {
		return c, nil
	}
	contents, err := os.ReadFile(name)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

func parseLogLevel(s string) (zapcore.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO":
		return zapcore.InfoLevel, nil
	case "WARNING", "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL":
		return zapcore.DPanicLevel, nil
	default:
		return zapcore.InvalidLevel, fmt.Errorf("%s: invalid log level, expected one of %s", s, strings.Join(logLevels, ", "))
	}
}

// newLogger returns a logger that writes messages as "LEVEL: message" to w.
func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: ": ",
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core)
}

func usage(w io.Writer, flagSet *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(w, "usage: %s [flags] command [command flags] [args]\n\ncommands:\n", prog)
		for _, command := range commands {
			fmt.Fprintf(w, "  %-14s%s\n", command.name, command.synopsis)
		}
		fmt.Fprintf(w, "\nflags:\n")
		flagSet.PrintDefaults()
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flagSet := flag.NewFlagSet(prog, flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = usage(stderr, flagSet)
	printVersion := flagSet.Bool("version", false, "print version and exit")
	configFile := flagSet.String("config", "", "configuration file (YAML)")
	logLevel := flagSet.String("loglevel", "WARNING", "log level ("+strings.Join(logLevels, ", ")+")")
	var quiet, verbose, debug bool
	flagSet.BoolVar(&quiet, "q", false, "only print errors (set log level to ERROR)")
	flagSet.BoolVar(&quiet, "quiet", false, "only print errors (set log level to ERROR)")
	flagSet.BoolVar(&verbose, "v", false, "print verbose messages (set log level to INFO)")
	flagSet.BoolVar(&verbose, "verbose", false, "print verbose messages (set log level to INFO)")
	flagSet.BoolVar(&debug, "debug", false, "print debug messages (set log level to DEBUG)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		return exitFailure
	}

	if *printVersion {
		fmt.Fprintf(stdout, "%s v%s\n", prog, version)
		return exitSuccess
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "CRITICAL: %v\n", err)
		return exitFailure
	}

	logLevelFlagSet := false
	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == "loglevel" {
			logLevelFlagSet = true
		}
	})
	if !logLevelFlagSet && cfg.LogLevel != "" {
		*logLevel = cfg.LogLevel
	}
	switch {
	case debug:
		*logLevel = "DEBUG"
	case verbose:
		*logLevel = "INFO"
	case quiet:
		*logLevel = "ERROR"
	}
	level, err := parseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "CRITICAL: %v\n", err)
		return exitFailure
	}
	logger := newLogger(stderr, level)
	defer func() {
		_ = logger.Sync()
	}()
	wmmf.SetLogger(logger.Named("wmmf"))

	if flagSet.NArg() == 0 {
		logger.Error("no command specified")
		flagSet.Usage()
		return exitFailure
	}
	name := flagSet.Arg(0)
	index := slices.IndexFunc(commands, func(c command) bool {
		return c.name == name
	})
	if index == -1 {
		logger.Error("unknown command", zap.String("command", name))
		flagSet.Usage()
		return exitFailure
	}

	e := &env{
		config: cfg,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}
	logger.Debug("running", zap.String("command", name), zap.Strings("args", flagSet.Args()[1:]))
	switch err := commands[index].run(ctx, e, flagSet.Args()[1:]); {
	case err == nil:
		return exitSuccess
	case errors.Is(err, flag.ErrHelp):
		return exitSuccess
	case ctx.Err() != nil:
		logger.Warn("interrupted")
		return exitInterrupt
	default:
		logger.Error(err.Error())
		return exitFailure
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}
