package command

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/config"
	"github.com/MrEthical07/goSession/internal/cli/output"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const loggerKey = "logger"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     "gosession",
		Usage:    "Stateless cookie session tooling",
		Version:  fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			KeyCommand(),
			EncodeCommand(),
			DecodeCommand(),
			ConfigCommand(),
			RingCommand(),
			BenchCommand(),
		},
		// main owns the exit code; see ExitCode.
		ExitErrHandler: func(*cli.Context, error) {},
		Before: func(c *cli.Context) error {
			if _, err := output.ParseFormat(c.String("output")); err != nil {
				return err
			}
			c.App.Metadata[loggerKey] = logging.New(logging.Config{
				Level:  c.String("log-level"),
				Format: c.String("log-format"),
				Output: c.App.ErrWriter,
			})
			return nil
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (YAML)",
			EnvVars: []string{"GOSESSION_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: yaml, json",
			Value:   "yaml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "warn",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, text",
			Value: "text",
		},
	}
}

// Logger returns the logger installed by App.Before.
func Logger(c *cli.Context) *slog.Logger {
	if logger, ok := c.App.Metadata[loggerKey].(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// Print writes data in the selected output format.
func Print(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// LoadConfig loads the file named by --config.
func LoadConfig(c *cli.Context) (*config.Loaded, error) {
	path := c.String("config")
	if path == "" {
		return nil, cli.Exit("--config is required", 2)
	}
	return config.Load(path)
}

// BuildEngine loads the configuration and builds an engine from it.
func BuildEngine(c *cli.Context) (*goSession.Engine, *config.Loaded, error) {
	loaded, err := LoadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	engine, err := goSession.New().
		WithConfig(loaded.Engine).
		WithKeyRing(loaded.Ring).
		WithLogger(Logger(c)).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return engine, loaded, nil
}

// ExitCode maps an error returned by App.Run to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
