package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tmscraper/pkg/auth"
	"tmscraper/pkg/config"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/packer"
	"tmscraper/pkg/publish"
	"tmscraper/pkg/session"
	"tmscraper/pkg/ui"
)

var (
	packSession string
	packOut     string
	packSource  string
	packSize    int
	packUpload  string
)

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack scraped images into a Teachable Machine .tm file",
	Long: `Crop every scraped image to a square, re-encode it as JPEG and store
it together with the session's training manifest in a .tm archive that
Teachable Machine can open.

Images that cannot be decoded are reported and skipped.`,
	Example: `  # Pack ./out into animals.tm
  tmscraper pack --session animals.json --out animals

  # Pack a cleaned copy of the images and upload the result
  tmscraper pack --session animals.json --source ./cleaned --out animals --upload s3://datasets/tm`,
	Args: cobra.NoArgs,
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().StringVarP(&packSession, "session", "s", "", "session file with the classes and manifest (required)")
	packCmd.Flags().StringVarP(&packOut, "out", "o", "", "archive path; .tm is appended (required)")
	packCmd.Flags().StringVar(&packSource, "source", "", "directory holding the class folders (default: output directory)")
	packCmd.Flags().IntVar(&packSize, "size", 0, "side of the square images (default 224)")
	packCmd.Flags().StringVar(&packUpload, "upload", "", "upload the archive to s3://bucket/prefix")
	_ = packCmd.MarkFlagRequired("session")
	_ = packCmd.MarkFlagRequired("out")
}

func runPack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.Overrides{ImageSize: packSize})
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	var target publish.Target
	if packUpload != "" {
		if target, err = publish.ParseS3URL(packUpload); err != nil {
			return err
		}
	}

	sess, err := session.Load(packSession)
	if err != nil {
		return err
	}

	source := packSource
	if source == "" {
		source = cfg.Output.BaseDirectory
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := ui.NewNotifier(cfg.Notifications)
	display := newDisplay()
	ui.PrintLogo()
	ui.PrintWarning("Packing started")
	display.StartStep(0, 1, "Packing")

	path, res, err := packer.Run(ctx, sess.Scrape, sess.Manifest, packer.OptionsFromConfig(cfg.Pack, log), source, packOut,
		display.Progress, display.Log)
	if err != nil {
		notifier.SendError("Packing failed", err.Error())
		return err
	}
	display.Complete(fmt.Sprintf("Packing finished: %d of %d images packed, %d skipped", res.Written, res.Total, res.Skipped))
	ui.PrintSuccess("Successfully saved to " + path)

	if packUpload != "" {
		var store auth.CredentialStore
		if keys, err := auth.NewManager(); err == nil {
			store = keys
		} else {
			log.WithError(err).Warn("credential manager unavailable")
		}

		uploader, err := publish.NewUploaderFromConfig(ctx, cfg.Publish, store, log)
		if err != nil {
			return err
		}
		key, err := uploader.Upload(ctx, path, target)
		if err != nil {
			notifier.SendError("Upload failed", err.Error())
			return err
		}
		ui.PrintInfo("Uploaded", fmt.Sprintf("s3://%s/%s", target.Bucket, key))
	}

	notifier.SendSuccess("Packing finished", path)
	return nil
}
