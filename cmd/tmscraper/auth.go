package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tmscraper/pkg/auth"
	"tmscraper/pkg/ui"
)

// secretNames maps command line names to stored secret names
var secretNames = map[string]string{
	"google":        auth.GoogleAPIKey,
	"s3-access-key": auth.S3AccessKeyID,
	"s3-secret-key": auth.S3SecretKey,
}

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API keys",
	Long: `Manage the secrets used by the google search engine and by S3 uploads.

Secrets are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only, TMSCRAPER_<NAME>)`,
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key [google|s3-access-key|s3-secret-key]",
	Short: "Store a secret (google API key by default)",
	Example: `  # Store the Google Custom Search API key
  tmscraper auth set-key

  # Store S3 credentials for pack --upload
  tmscraper auth set-key s3-access-key
  tmscraper auth set-key s3-secret-key`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetKey,
}

var removeKeyCmd = &cobra.Command{
	Use:   "remove-key [google|s3-access-key|s3-secret-key]",
	Short: "Remove a stored secret (google API key by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRemoveKey,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which secrets are available and where they come from",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setKeyCmd)
	authCmd.AddCommand(removeKeyCmd)
	authCmd.AddCommand(authStatusCmd)
}

// secretFromArgs resolves the optional secret argument
func secretFromArgs(args []string) (string, string, error) {
	label := "google"
	if len(args) > 0 {
		label = strings.ToLower(args[0])
	}
	name, ok := secretNames[label]
	if !ok {
		return "", "", fmt.Errorf("unknown secret %q (use google, s3-access-key or s3-secret-key)", label)
	}
	return label, name, nil
}

func runSetKey(cmd *cobra.Command, args []string) error {
	label, name, err := secretFromArgs(args)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if label == "google" {
		auth.ShowAPIKeyGuide(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout())
	}

	if manager.Exists(name) {
		fmt.Fprintf(cmd.OutOrStdout(), "A %s secret is already stored (%s). Replace it? (y/N): ", label, manager.Source(name))
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			return nil
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Enter %s (input is hidden): ", label)
	value, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}

	if err := manager.Set(name, value); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Stored %s secret %s in %s", label, auth.MaskSecret(value), manager.Source(name)))
	return nil
}

func runRemoveKey(cmd *cobra.Command, args []string) error {
	label, name, err := secretFromArgs(args)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess("Removed " + label + " secret")

	if src := manager.Source(name); src != "" {
		ui.PrintWarning(fmt.Sprintf("A %s secret is still provided by %s", label, src))
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	ui.PrintHighlight("Credential stores")
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n\n", manager.Name())

	labels := make([]string, 0, len(secretNames))
	for label := range secretNames {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		name := secretNames[label]
		value, err := manager.Get(name)
		if err != nil {
			ui.PrintInfo(label, "not set")
			continue
		}
		ui.PrintInfo(label, fmt.Sprintf("%s (%s)", auth.MaskSecret(value), manager.Source(name)))
	}
	return nil
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
