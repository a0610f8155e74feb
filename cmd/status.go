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
	"github.com/spf13/cobra"

	"ledger-swap/config"
	"ledger-swap/pkg/history"
	"ledger-swap/pkg/ledger"
	"ledger-swap/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
	lastJob       bool
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Check the status of a cross-ledger swap",
	Long: `Check the status of a cross-ledger swap job by its id, or of the most
recent recorded swap with --last.

Examples:
  ledger-swap status 42
  ledger-swap status 42 --watch
  ledger-swap status 42 --watch --interval 10
  ledger-swap status --last`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
	statusCmd.Flags().BoolVar(&lastJob, "last", false, "Check the most recent recorded swap")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	jobID, err := resolveJobID(cfg, args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	client := ledger.NewClient(cfg.GatewayURL)

	if watchStatus {
		watchJobStatus(client, jobID, jsonOutput)
	} else {
		checkJobStatus(client, jobID, jsonOutput)
	}
}

// resolveJobID picks the job from the argument or, with --last, from the
// most recent history entry.
func resolveJobID(cfg *config.Config, args []string) (string, error) {
	if lastJob {
		store, err := history.NewStorage(cfg.HistoryPath)
		if err != nil {
			return "", err
		}
		entries := store.List()
		if len(entries) == 0 {
			return "", fmt.Errorf("no recorded swaps")
		}
		return entries[0].ID, nil
	}

	if len(args) == 0 {
		return "", fmt.Errorf("a job id is required (or use --last)")
	}
	return args[0], nil
}

func checkJobStatus(client *ledger.Client, jobID string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking swap status..."
		s.Start()
	}

	job, err := client.JobStatus(context.Background(), jobID)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if job == nil {
		printError(fmt.Errorf("job %s is not visible yet; it may still be settling or the id may be wrong", jobID))
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(job, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayJob(job)
	}
}

func watchJobStatus(client *ledger.Client, jobID string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching swap status (Job ID: %s)\n", color.CyanString(jobID))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	if checkAndDisplayJob(client, jobID) {
		return
	}

	// Then check periodically, stopping once the job settles.
	for range ticker.C {
		if checkAndDisplayJob(client, jobID) {
			return
		}
	}
}

// checkAndDisplayJob prints one status snapshot and reports whether the
// job is terminal.
func checkAndDisplayJob(client *ledger.Client, jobID string) bool {
	job, err := client.JobStatus(context.Background(), jobID)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}
	if job == nil {
		fmt.Println("  Waiting for the job to become visible...")
		return false
	}

	displayJob(job)
	return job.Status.Terminal()
}

func displayJob(job *types.SwapJob) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Job ID:          %s\n", color.CyanString(job.ID))
	fmt.Printf("  Status:          %s\n", coloredJobStatus(job.Status))

	if job.PayTxSig != "" {
		fmt.Printf("  Deposit Tx:      %s\n", color.HiBlackString(job.PayTxSig))
	}
	if job.ReceiveTxSig != "" {
		fmt.Printf("  Settlement Tx:   %s\n", color.HiBlackString(job.ReceiveTxSig))
	}
	if job.FailReason != "" {
		fmt.Printf("  Reason:          %s\n", color.RedString(job.FailReason))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func coloredJobStatus(status types.JobStatus) string {
	label := strings.ToUpper(string(status))

	switch status {
	case types.JobConfirmed, types.JobSubmitted:
		return color.GreenString(label)
	case types.JobPending, types.JobProcessing, types.JobSendingToForeign:
		return color.YellowString(label)
	case types.JobFailed:
		return color.RedString(label)
	case types.JobWaitingForSignature:
		return color.MagentaString(label)
	default:
		return label
	}
}
