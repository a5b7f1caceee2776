package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tmscraper/pkg/session"
	"tmscraper/pkg/ui"
)

var sessionForce bool

// sessionCmd groups session file helpers
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage session files (classes and training manifest)",
}

var sessionInitCmd = &cobra.Command{
	Use:   "init <base>",
	Short: "Write a session file with the default classes",
	Long: `Write a session document holding the two starter classes and the
default training manifest. .json is appended to <base> unless present.`,
	Example: `  tmscraper session init animals`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionInit,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionInitCmd)
	sessionInitCmd.Flags().BoolVarP(&sessionForce, "force", "f", false, "overwrite an existing file")
}

func runSessionInit(cmd *cobra.Command, args []string) error {
	target := session.SavePath(args[0])
	if _, err := os.Stat(target); err == nil && !sessionForce {
		return fmt.Errorf("session file %s already exists; use --force to overwrite", target)
	}

	path, err := session.New().Save(args[0])
	if err != nil {
		return err
	}
	ui.PrintSuccess("Session file created: " + path)
	fmt.Fprintf(cmd.OutOrStdout(), "\nEdit it with 'tmscraper wizard --session %s' or by hand.\n", path)
	return nil
}
