package cmd

import (
	"bufio"
	"context"
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
	"ledger-swap/pkg/history"
	"ledger-swap/pkg/ledger"
	"ledger-swap/pkg/monitor"
	"ledger-swap/pkg/orchestrator"
	"ledger-swap/pkg/parser"
	"ledger-swap/pkg/quote"
	"ledger-swap/pkg/types"
	"ledger-swap/pkg/validate"
	"ledger-swap/pkg/wallet"
)

var (
	slippagePct    float64
	receiveAddress string
	noConfirm      bool
	noWait         bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <pay-token> to <receive-token>",
	Short: "Execute a swap",
	Long: `Swap assets on the home ledger, or across ledgers when one side lives
on a foreign chain. Cross-ledger swaps send the pay-side deposit from
the configured wallet and monitor the resulting job until it settles.

Examples:
  # Same-ledger swap
  ledger-swap swap 10 ICP to USDT

  # Cross-ledger: pay from the Solana wallet
  ledger-swap swap 1.5 SOL to ICP

  # Cross-ledger: receive on the foreign chain
  ledger-swap swap 10 ICP to SOL --receive-address <solana-addr>

  # Skip the confirmation prompt
  ledger-swap swap 10 ICP to USDT --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Float64Var(&slippagePct, "slippage", 0, "Max slippage percent (defaults to the configured value)")
	swapCmd.Flags().StringVar(&receiveAddress, "receive-address", "", "Settlement address on the receive side (cross-ledger only)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	swapCmd.Flags().BoolVar(&noWait, "no-wait", false, "Do not wait for a cross-ledger job to settle")
}

func runSwap(cmd *cobra.Command, args []string) {
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
	if slippagePct <= 0 {
		slippagePct = cfg.SlippagePct
	}

	client := ledger.NewClient(cfg.GatewayURL)
	ctx := context.Background()

	// Quote first so the user confirms against real numbers.
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	s.Start()
	pay, receive, q, err := fetchQuote(ctx, cfg, client, parsed)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	displayQuote(parsed.Amount, pay, receive, q)

	if !noConfirm && !confirmSwap() {
		fmt.Println("\nSwap cancelled.")
		os.Exit(0)
	}

	store, err := history.NewStorage(cfg.HistoryPath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if mode, cross := bridge.SwapModeFor(*pay, *receive); cross {
		runCrossLedgerSwap(ctx, cfg, client, store, mode, parsed, pay, receive, q)
		return
	}
	runSameLedgerSwap(ctx, cfg, client, store, parsed, pay, receive)
}

func runSameLedgerSwap(ctx context.Context, cfg *config.Config, client *ledger.Client, store *history.Storage, parsed *parser.ParsedSwap, pay, receive *types.Asset) {
	v := validate.New()
	o := orchestrator.New(client, quote.NewEngine(client, v), v, newLogAnalytics(), cfg.Spender)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Executing swap..."
	s.Start()

	result, err := o.ExecuteSwap(ctx, types.SwapRequest{
		PayAsset:     *pay,
		PayAmount:    parsed.Amount,
		ReceiveAsset: *receive,
		SlippagePct:  slippagePct,
		UserAddress:  cfg.UserAddress,
	})
	s.Stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	recordHistory(store, &history.Entry{
		ID:            result.TxHash,
		Kind:          history.KindSwap,
		PaySymbol:     pay.Symbol,
		PayAmount:     result.PayAmount,
		ReceiveSymbol: receive.Symbol,
		ReceiveAmount: result.ReceiveAmount,
		Status:        types.JobConfirmed,
		Timestamp:     result.Timestamp,
	})

	color.Green("\n✓ Swap completed!")
	fmt.Printf("  Received:       ~%s %s\n", result.ReceiveAmount, receive.Symbol)
	fmt.Printf("  Transaction:    %s\n", color.CyanString(result.TxHash))
	if cfg.ExplorerURL != "" {
		fmt.Printf("  Explorer:       %s/tx/%s\n", cfg.ExplorerURL, result.TxHash)
	}
	fmt.Println()
}

func runCrossLedgerSwap(ctx context.Context, cfg *config.Config, client *ledger.Client, store *history.Storage, mode bridge.Mode, parsed *parser.ParsedSwap, pay, receive *types.Asset, q *types.Quote) {
	w, err := newForeignWallet(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	amount, err := decimal.NewFromString(parsed.Amount)
	if err != nil {
		printError(fmt.Errorf("invalid amount: %w", err))
		os.Exit(1)
	}

	coordinator := bridge.NewCoordinator(client, w, bridge.NewPriceClient(cfg.PriceAPIURL))
	coordinator.ReferredBy = cfg.ReferredBy

	args := bridge.ExecuteArgs{
		Pay:            *pay,
		PayAmount:      amount,
		Receive:        *receive,
		ReceiveAmount:  q.ReceiveAmount,
		ReceiveAddress: receiveAddress,
		MaxSlippagePct: slippagePct,
		Fees:           append(append([]types.Fee{}, q.GasFees...), q.LPFees...),
	}

	var jobID string
	switch mode {
	case bridge.ModeHomeToForeign:
		args.PayAddress = cfg.UserAddress
		jobID, err = coordinator.ExecuteHomeToForeign(ctx, args, cfg.Spender, cfg.UserAddress)

	default:
		// Every other mode pays from the foreign wallet.
		args.PayAddress, err = client.DepositAddress(ctx, *pay)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if args.ReceiveAddress == "" && !receive.IsForeign() {
			args.ReceiveAddress = cfg.UserAddress
		}
		jobID, err = coordinator.ExecuteForeignToHome(ctx, args, func(msg string) {
			color.Cyan("  %s", msg)
		})
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Swap submitted!")
	fmt.Printf("  Job ID: %s\n", color.CyanString(jobID))

	entry := &history.Entry{
		ID:            jobID,
		Kind:          history.KindCrossLedger,
		PaySymbol:     pay.Symbol,
		PayAmount:     parsed.Amount,
		ReceiveSymbol: receive.Symbol,
		ReceiveAmount: q.ReceiveAmount.String(),
		Status:        types.JobPending,
	}
	recordHistory(store, entry)

	if noWait {
		fmt.Println("\nYou can monitor the swap using:")
		color.Cyan("  ledger-swap status %s\n", jobID)
		return
	}

	final := waitForSettlement(client, jobID, pay, receive, amount, q.ReceiveAmount)
	entry.Status = final.Status
	entry.FailReason = final.FailReason
	recordHistory(store, entry)

	if final.Status == types.JobFailed {
		os.Exit(1)
	}
}

// waitForSettlement runs the job monitor in the foreground until the job
// reaches a terminal status.
func waitForSettlement(client *ledger.Client, jobID string, pay, receive *types.Asset, payAmount, receiveAmount decimal.Decimal) monitor.JobView {
	m := monitor.New(client, &terminalNotifier{}, noopRefresher{})
	defer m.StopAllMonitoring()

	fmt.Println()
	m.StartMonitoring(jobID, *pay, *receive, payAmount, receiveAmount)

	for {
		view, ok := m.Job(jobID)
		if !ok {
			return monitor.JobView{ID: jobID, Status: types.JobFailed, FailReason: "monitoring stopped"}
		}
		if view.Status.Terminal() {
			return view
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// newForeignWallet builds the configured foreign-chain wallet.
func newForeignWallet(cfg *config.Config) (wallet.Wallet, error) {
	switch strings.ToLower(cfg.WalletChain) {
	case "solana", "":
		return wallet.NewSolanaWallet(cfg.Solana)
	case "evm":
		return wallet.NewEVMWallet(cfg.EVM, cfg.EVMNetwork)
	default:
		return nil, fmt.Errorf("unsupported wallet chain: %s", cfg.WalletChain)
	}
}

func recordHistory(store *history.Storage, entry *history.Entry) {
	if err := store.Record(entry); err != nil {
		color.Yellow("  Warning: could not record swap history: %v", err)
	}
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
