package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tmscraper/internal/downloader"
	"tmscraper/pkg/auth"
	"tmscraper/pkg/config"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/scraper"
	"tmscraper/pkg/session"
	"tmscraper/pkg/ui"
)

var (
	// Scrape command flags
	scrapeSession string
	scrapeOutput  string
	scrapeTimeout time.Duration
	scrapeEngine  string
	scrapeURLs    string
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download images for every class of a session",
	Long: `Search for each class query and download the results into
<output>/<folder>, one class after another.

Each class batch is time-boxed (download.batch_timeout, 10s by default);
images that have not finished by then are abandoned.`,
	Example: `  # Scrape the classes of a saved session into ./out
  tmscraper scrape --session animals.json

  # Use Google Custom Search and a longer batch timeout
  tmscraper scrape --session animals.json --engine google --timeout 30s

  # Offline run from a list of URLs
  tmscraper scrape --session animals.json --engine file --urls urls.txt`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeSession, "session", "s", "", "session file with the classes to scrape (required)")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "output directory (default ./out)")
	scrapeCmd.Flags().DurationVar(&scrapeTimeout, "timeout", 0, "time box for each class batch (default 10s)")
	scrapeCmd.Flags().StringVar(&scrapeEngine, "engine", "", "search engine: bing, google or file")
	scrapeCmd.Flags().StringVar(&scrapeURLs, "urls", "", "URL list read by the file engine")
	_ = scrapeCmd.MarkFlagRequired("session")
}

func runScrape(cmd *cobra.Command, args []string) error {
	overrides := config.Overrides{
		OutputDir:    scrapeOutput,
		Engine:       scrapeEngine,
		URLsFile:     scrapeURLs,
		BatchTimeout: scrapeTimeout,
	}
	if scrapeURLs != "" && scrapeEngine == "" {
		overrides.Engine = "file"
	}

	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	sess, err := session.Load(scrapeSession)
	if err != nil {
		return err
	}

	keys, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("credential manager unavailable")
	}

	var store auth.CredentialStore
	if keys != nil {
		store = keys
	}
	s, err := scraper.NewFromConfig(cfg, store, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	classes := sess.Scrape.ClassList()
	notifier := ui.NewNotifier(cfg.Notifications)
	ui.PrintLogo()
	ui.PrintInfo("Engine", cfg.Search.Engine)
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)
	ui.PrintWarning(fmt.Sprintf("Scraping %d classes; this may take a while...", len(classes)))

	report, err := scrapeWithDisplay(ctx, s, classes, newDisplay())
	if err != nil {
		notifier.SendError("Scraping failed", err.Error())
		return err
	}

	saved, failed, _ := report.Totals()
	ui.PrintWarning(fmt.Sprintf("You can now view the images in the %s folder.", report.OutputDir))
	ui.PrintWarning("You should remove unrelated images before packing to tm file for more accuracy.")
	notifier.SendSuccess("Scraping finished", fmt.Sprintf("%d images saved, %d failed", saved, failed))
	return nil
}

// scrapeWithDisplay runs s with its hooks drawing on display
func scrapeWithDisplay(ctx context.Context, s *scraper.Scraper, classes []session.ClassConfig, display *ui.ProgressDisplay) (*scraper.Report, error) {
	report, err := s.Run(ctx, classes, scraper.Hooks{
		OnClassStart: func(index, total int, class session.ClassConfig) {
			display.StartStep(index, total, "Scraping "+class.Name)
		},
		OnLog: func(_ session.ClassConfig, message string) {
			display.Log(message)
		},
		OnProgress: func(_ session.ClassConfig, ratio float64) {
			display.Progress(ratio)
		},
		OnClassDone: func(_ session.ClassConfig, result downloader.BatchResult) {
			summary := fmt.Sprintf("%d saved, %d failed, %d skipped", result.Saved, result.Failed, result.Skipped)
			if result.TimedOut {
				summary += ", timed out"
			}
			display.EndStep(summary)
		},
	})
	if err != nil {
		return report, err
	}

	saved, failed, skipped := report.Totals()
	display.Complete(fmt.Sprintf("Scraping finished: %d saved, %d failed, %d skipped", saved, failed, skipped))
	return report, nil
}
