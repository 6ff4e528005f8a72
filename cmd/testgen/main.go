package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testgen/cmd/testgen/form"
	"testgen/internal/config"
	"testgen/internal/generator"
	"testgen/internal/logging"
	"testgen/internal/submission"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	envName      string
	endpointFlag string

	// Resolved at startup
	cfg          *config.Config
	resolvedPath string

	// Logger
	logger   *zap.Logger
	closeLog func() error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "testgen",
	Short: "testgen - generate unit test cases from source code",
	Long: `testgen sends source code (pasted inline, read from a file, or both) to a
test case generation service and shows the generated test cases.

The service URL comes from the active environment (local or deployed) in
the config file, TESTGEN_* environment variables, or --endpoint.

Run without arguments to open the interactive form.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			_ = closeLog()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch the interactive form
		return runInteractive()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: .testgen/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "Environment to use: local or deployed (or set TESTGEN_ENV)")
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Override the endpoint URL of the active environment")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves configuration and builds the logger. The interactive form
// owns the terminal, so it logs to the configured file; other commands log
// warnings to stderr.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if envName != "" {
		loaded.Environment = config.Environment(strings.ToLower(envName))
	}
	if endpointFlag != "" {
		loaded.SetEndpoint(endpointFlag)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg, resolvedPath = loaded, path

	opts := cfg.LogOptions()
	if cmd.HasParent() {
		opts = logging.Options{Level: "warn", Format: opts.Format}
	}
	if verbose {
		opts.Level = "debug"
	}
	logger, closeLog, err = logging.New(opts, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logging.For(logger, logging.CategoryBoot).Debug("configuration loaded",
		zap.String("path", path),
		zap.String("environment", string(cfg.Environment)),
		zap.String("endpoint", cfg.Endpoint()),
	)
	return nil
}

// newController wires the generator client for the active endpoint.
func newController() *submission.Controller {
	client := generator.NewClient(generator.Config{
		Endpoint:  cfg.Endpoint(),
		UserAgent: "testgen/" + version,
		Logger:    logger,
	})
	return submission.New(client, submission.WithLogger(logger))
}

func runInteractive() error {
	ctrl := newController()
	defer ctrl.Close()

	return form.Run(form.Config{
		Controller:  ctrl,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Endpoint(),
		Theme:       cfg.UI.Theme,
		Watch:       cfg.UI.Watch,
		Logger:      logger,
	})
}
