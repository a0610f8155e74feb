package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ledger-swap/config"
	"ledger-swap/pkg/ledger"
	"ledger-swap/pkg/types"
)

var (
	filterOrigin string
	filterSymbol string
)

var assetsCmd = &cobra.Command{
	Use:     "list-assets",
	Aliases: []string{"assets", "ls"},
	Short:   "List all swappable assets",
	Long: `List every asset the home ledger can swap, grouped by origin.

You can filter assets by origin or symbol.

Examples:
  ledger-swap list-assets
  ledger-swap list-assets --origin home
  ledger-swap list-assets --symbol USDT`,
	Run: runListAssets,
}

func init() {
	rootCmd.AddCommand(assetsCmd)

	assetsCmd.Flags().StringVar(&filterOrigin, "origin", "", "Filter by origin (home, foreign_native, foreign_token)")
	assetsCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by asset symbol")
}

func runListAssets(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	client := ledger.NewClient(cfg.GatewayURL)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching assets..."
		s.Start()
	}

	assets, err := client.Assets(context.Background())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Apply filters
	filtered := assets
	if filterOrigin != "" {
		var temp []types.Asset
		for _, asset := range filtered {
			if strings.EqualFold(string(asset.Origin), filterOrigin) {
				temp = append(temp, asset)
			}
		}
		filtered = temp
	}

	if filterSymbol != "" {
		var temp []types.Asset
		for _, asset := range filtered {
			if strings.Contains(strings.ToUpper(asset.Symbol), strings.ToUpper(filterSymbol)) {
				temp = append(temp, asset)
			}
		}
		filtered = temp
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayAssets(filtered)
}

func displayAssets(assets []types.Asset) {
	if len(assets) == 0 {
		fmt.Println("\nNo assets found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	color.Green("                          SWAPPABLE ASSETS")
	fmt.Println(strings.Repeat("=", 80))

	// Group assets by origin
	assetsByOrigin := make(map[types.AssetOrigin][]types.Asset)
	for _, asset := range assets {
		assetsByOrigin[asset.Origin] = append(assetsByOrigin[asset.Origin], asset)
	}

	origins := make([]string, 0, len(assetsByOrigin))
	for origin := range assetsByOrigin {
		origins = append(origins, string(origin))
	}
	sort.Strings(origins)

	for _, origin := range origins {
		color.Cyan("\n%s", strings.ToUpper(strings.ReplaceAll(origin, "_", " ")))
		fmt.Println(strings.Repeat("-", 80))

		originAssets := assetsByOrigin[types.AssetOrigin(origin)]
		sort.Slice(originAssets, func(i, j int) bool {
			return originAssets[i].Symbol < originAssets[j].Symbol
		})

		for _, asset := range originAssets {
			id := asset.LedgerID
			if asset.IsForeign() && asset.MintID != "" {
				id = asset.MintID
			}
			if len(id) > 44 {
				id = id[:41] + "..."
			}

			flags := ""
			if asset.UsesAllowance {
				flags += " approval"
			}
			if asset.Blocked {
				flags += color.RedString(" blocked")
			}

			fmt.Printf("  %-10s  %2d decimals  %-44s%s\n",
				color.YellowString(asset.Symbol),
				asset.Decimals,
				color.HiBlackString(id),
				flags)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("\nTotal: %d assets\n\n", len(assets))
}
