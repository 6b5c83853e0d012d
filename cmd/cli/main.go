package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	host   string
	user   string
	dryRun bool
)

var rootCmd = &cobra.Command{
	Use:   "ledger-cli",
	Short: "A CLI to interact with the matchledger server",
	Long: `A command-line interface for making requests to the various endpoints
of the matchledger application.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "The host address of the server")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", os.Getenv("LEDGER_USER"), "The member id to act as")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Ask the server not to persist or notify")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
