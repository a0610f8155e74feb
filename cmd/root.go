package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ledger-swap",
	Short: "A CLI for swapping assets on and across the home ledger",
	Long: `ledger-swap is a command-line tool for swapping assets held on the home
smart-contract ledger and for cross-ledger swaps against Solana and
EVM-compatible chains.

Examples:
  ledger-swap quote 10 ICP to USDT
  ledger-swap swap 10 ICP to USDT
  ledger-swap swap 1.5 SOL to ICP
  ledger-swap list-assets
  ledger-swap status <job-id>`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")

	cobra.OnInitialize(func() {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	})
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
