package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger-swap/config"
	"ledger-swap/pkg/bridge"
	"ledger-swap/pkg/ledger"
	"ledger-swap/pkg/parser"
	"ledger-swap/pkg/quote"
	"ledger-swap/pkg/types"
	"ledger-swap/pkg/validate"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <pay-token> to <receive-token>",
	Short: "Price a swap without executing it",
	Long: `Get a price quote for a swap. Same-ledger swaps are priced against the
ledger's liquidity pools; cross-ledger swaps use the ledger's quote
primitive with a reference-price fallback.

Examples:
  ledger-swap quote 10 ICP to USDT
  ledger-swap quote 1.5 SOL to ICP`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	parsed, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	client := ledger.NewClient(cfg.GatewayURL)
	ctx := context.Background()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	pay, receive, q, err := fetchQuote(ctx, cfg, client, parsed)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"pay_amount":       parsed.Amount,
			"pay_token":        pay.Symbol,
			"receive_amount":   q.ReceiveAmount.String(),
			"receive_token":    receive.Symbol,
			"price":            q.Price.String(),
			"price_impact_pct": q.PriceImpactPct,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayQuote(parsed.Amount, pay, receive, q)
}

// fetchQuote resolves the symbols and prices the swap through whichever
// path matches the asset pair.
func fetchQuote(ctx context.Context, cfg *config.Config, client *ledger.Client, parsed *parser.ParsedSwap) (*types.Asset, *types.Asset, *types.Quote, error) {
	pay, err := client.FindAsset(ctx, parser.NormalizeTokenSymbol(parsed.PaySymbol))
	if err != nil {
		return nil, nil, nil, err
	}
	receive, err := client.FindAsset(ctx, parser.NormalizeTokenSymbol(parsed.ReceiveSymbol))
	if err != nil {
		return nil, nil, nil, err
	}

	if _, cross := bridge.SwapModeFor(*pay, *receive); cross {
		amount, err := decimal.NewFromString(parsed.Amount)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid amount: %w", err)
		}
		coordinator := bridge.NewCoordinator(client, nil, bridge.NewPriceClient(cfg.PriceAPIURL))
		q, err := coordinator.GetQuote(ctx, *pay, amount, *receive)
		if err != nil {
			return nil, nil, nil, err
		}
		return pay, receive, q, nil
	}

	engine := quote.NewEngine(client, validate.New())
	q, err := engine.GetQuote(ctx, types.SwapRequest{
		PayAsset:     *pay,
		PayAmount:    parsed.Amount,
		ReceiveAsset: *receive,
		SlippagePct:  cfg.SlippagePct,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return pay, receive, q, nil
}

func displayQuote(payAmount string, pay, receive *types.Asset, q *types.Quote) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:          %s %s\n", payAmount, color.YellowString(pay.Symbol))
	fmt.Printf("  To:            ~%s %s\n", q.ReceiveAmount.String(), color.YellowString(receive.Symbol))
	fmt.Printf("  Price:         1 %s = %s %s\n", pay.Symbol, q.Price.String(), receive.Symbol)
	if q.PriceImpactPct > 0 {
		impact := fmt.Sprintf("%.2f%%", q.PriceImpactPct)
		if q.PriceImpactPct >= validate.HighImpactThresholdPct {
			impact = color.RedString(impact)
		}
		fmt.Printf("  Price Impact:  %s\n", impact)
	}
	for _, fee := range q.GasFees {
		fmt.Printf("  Gas Fee:       %s %s\n", fee.Amount.String(), fee.Asset)
	}
	for _, fee := range q.LPFees {
		fmt.Printf("  LP Fee:        %s %s\n", fee.Amount.String(), fee.Asset)
	}
	if len(q.Route) > 1 {
		hops := make([]string, 0, len(q.Route)+1)
		hops = append(hops, q.Route[0].PaySymbol)
		for _, hop := range q.Route {
			hops = append(hops, hop.ReceiveSymbol)
		}
		fmt.Printf("  Route:         %s\n", strings.Join(hops, " -> "))
	}
	fmt.Printf("  Valid For:     %.0f seconds\n", types.QuoteTTL.Seconds())

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
