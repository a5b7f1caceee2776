package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tmscraper/pkg/auth"
	"tmscraper/pkg/config"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/packer"
	"tmscraper/pkg/scraper"
	"tmscraper/pkg/session"
	"tmscraper/pkg/storage"
	"tmscraper/pkg/ui/tui"
)

var wizardSession string

// wizardCmd opens the interactive wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Edit classes, scrape and pack interactively",
	Long: `Open the interactive wizard. It edits the classes and the training
manifest, runs the scrape, and packs the result into a .tm file.

Changes are not saved automatically; the wizard asks before exiting
with unsaved changes.`,
	Example: `  # Start from the default classes
  tmscraper wizard

  # Continue a saved session
  tmscraper wizard --session animals.json`,
	Args: cobra.NoArgs,
	RunE: runWizard,
}

func init() {
	rootCmd.AddCommand(wizardCmd)
	wizardCmd.Flags().StringVarP(&wizardSession, "session", "s", "", "session file to open")
	rootCmd.Flags().StringVarP(&wizardSession, "session", "s", "", "session file to open")
}

// lazyScraper builds the scraper when a run starts, so that a missing API
// key shows up on the wizard's result screen instead of at startup
type lazyScraper struct {
	cfg  *config.Config
	keys auth.CredentialStore
	log  logger.Logger
}

func (l *lazyScraper) Run(ctx context.Context, classes []session.ClassConfig, hooks scraper.Hooks) (*scraper.Report, error) {
	s, err := scraper.NewFromConfig(l.cfg, l.keys, l.log)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, classes, hooks)
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	// the alternate screen owns the terminal; logs go to a file or nowhere
	if cfg.Logging.File == "" {
		cfg.Logging.Level = "disabled"
	}
	cfg.Logging.Console = false
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	if _, err := storage.NewManager(cfg.Output.BaseDirectory); err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}

	sess := session.New()
	if wizardSession != "" {
		if sess, err = session.Load(wizardSession); err != nil {
			return err
		}
	}

	var keys auth.CredentialStore
	if m, err := auth.NewManager(); err == nil {
		keys = m
	} else {
		log.WithError(err).Warn("credential manager unavailable")
	}

	opts := tui.Options{
		Scraper:   &lazyScraper{cfg: cfg, keys: keys, log: log},
		Pack:      tui.NewPackFunc(packer.OptionsFromConfig(cfg.Pack, log), cfg.Output.BaseDirectory),
		OutputDir: cfg.Output.BaseDirectory,
		Version:   version,
		Logger:    log,
	}

	t := tui.NewTUI(cmd.Context(), sess, opts)
	if err := t.Start(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	fmt.Fprintln(os.Stdout, "Bye!")
	return nil
}
