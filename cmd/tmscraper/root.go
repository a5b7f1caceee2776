package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"tmscraper/pkg/config"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tmscraper",
	Short: "Build Teachable Machine image datasets from web image search",
	Long: `tmscraper downloads images for a list of classes from an image search
engine and packs them into a .tm project file for Teachable Machine.

Run without a sub-command to open the interactive wizard, or use the
scrape and pack commands with a saved session file for scripted runs.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
	},
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWizard,
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tmscraper %s\n", rootCmd.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\nOS/Arch: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.tmscraper.yaml or ~/.config/tmscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every download and pack line")

	rootCmd.SetVersionTemplate(`tmscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the configuration with the global flags applied and
// initializes the global logger from it
func loadConfig(overrides config.Overrides) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if overrides.LogLevel == "" {
		overrides.LogLevel = logLevel
	}

	cfg, err := config.Load(path, overrides)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"version": version,
		"config":  path,
	}).Debug("configuration loaded")
	return cfg, nil
}

// newDisplay returns the progress display for non-interactive runs
func newDisplay() *ui.ProgressDisplay {
	var out io.Writer = os.Stdout
	if ui.IsQuietMode() {
		out = io.Discard
	}
	return ui.NewProgressDisplay(out, verbose)
}
