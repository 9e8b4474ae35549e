package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"specctl/internal/config"
	"specctl/pkg/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// loadedConfig is filled by the root command before any subcommand runs.
	loadedConfig = config.GetDefaultConfig()
)

// loadConfig is replaced in tests.
var loadConfig = config.LoadConfig

// ErrTestsFailed is returned by run when at least one class failed.
var ErrTestsFailed = errors.New("test run failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "specctl",
	Short: "Run acceptance specifications inside a managed test context",
	Long: `specctl runs acceptance-style test classes inside a managed context.

Each class is validated before any of its methods run, gets its own
context manager, and every method runs inside a fixed chain of lifecycle
stages: context preparation, declared fixtures, execution callbacks and
rules. Classes and methods can be gated on environment values taken from
the process environment, a file, or a Kubernetes ConfigMap.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed tests, invalid configuration)
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "specctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file layered over ~/.config/specctl/config.yaml and ./.specctl/config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.FormatText), "log format: text or json")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig loads the layered configuration and sets up logging on stderr.
func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	levelName := cfg.LogLevel
	if logLevel != "" {
		levelName = logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}

	switch logging.Format(logFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", logFormat)
	}
	logging.Init(level, logging.Format(logFormat), cmd.ErrOrStderr())

	loadedConfig = cfg
	logging.Debug("Config", "Configuration loaded (environment source %s, output %s)", cfg.Environment.Source, cfg.Run.Output)
	return nil
}
