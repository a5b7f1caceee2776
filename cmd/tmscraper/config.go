package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tmscraper/pkg/auth"
	"tmscraper/pkg/config"
	"tmscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tmscraper configuration files.

Configuration is resolved from, in order of priority:
  - Command line flags
  - Environment variables (TMSCRAPER_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Long: `Write the default configuration to .tmscraper.yaml in the current
directory, or to the path given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and check it.

Besides value ranges this checks that the output directory and the log
file location can be created and that the selected search engine has
what it needs.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".tmscraper.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file %s already exists; remove it first to overwrite", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Edit the file, for example to pick the search engine")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'tmscraper config validate' to check it")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Run 'tmscraper' to open the wizard")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration file: %s\n", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path != "" {
		ui.PrintInfo("Validating configuration", path)
	} else {
		ui.PrintInfo("Validating configuration", "defaults and environment")
	}

	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var problems, warnings []string

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	switch cfg.Search.Engine {
	case "google":
		if cfg.Search.GoogleCX == "" {
			problems = append(problems, "search.google_cx is required by the google engine")
		}
		if m, err := auth.NewManager(); err != nil || !m.Exists(auth.GoogleAPIKey) {
			warnings = append(warnings, "no Google API key stored; run 'tmscraper auth set-key'")
		}
	case "file":
		if _, err := os.Stat(cfg.Search.URLsFile); err != nil {
			problems = append(problems, fmt.Sprintf("urls file: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors")
		for _, p := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", p)
		}
		return fmt.Errorf("%d configuration errors", len(problems))
	}
	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings")
		for _, w := range warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", w)
		}
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(cmd.OutOrStdout(), "\nConfiguration summary:")
	fmt.Fprintf(cmd.OutOrStdout(), "  Search engine: %s\n", cfg.Search.Engine)
	fmt.Fprintf(cmd.OutOrStdout(), "  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(cmd.OutOrStdout(), "  Batch timeout: %s\n", cfg.Download.BatchTimeout)
	fmt.Fprintf(cmd.OutOrStdout(), "  Image size: %d\n", cfg.Pack.ImageSize)
	fmt.Fprintf(cmd.OutOrStdout(), "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
