package cli

// cmd/cli/retry.go - CLI for retry/ack service inspection.

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	core "brightchain/core"
)

var activeRetry *core.RetryService

// SetActiveRetry installs the retry service used by CLI commands in this
// process. The composition root (cmd/brightchain) calls this once at
// startup.
func SetActiveRetry(r *core.RetryService) { activeRetry = r }

func ensureRetryInit(cmd *cobra.Command, _ []string) error {
	if activeRetry == nil {
		return fmt.Errorf("retry service not initialised")
	}
	return nil
}

var retryCmd = &cobra.Command{Use: "retry", Short: "Retry/ack service operations", PersistentPreRunE: ensureRetryInit}

var retryStatusCmd = &cobra.Command{
	Use:   "status <messageId>",
	Short: "Show the tracked delivery for a message id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, ok := activeRetry.GetPendingDelivery(args[0])
		if !ok {
			return fmt.Errorf("no pending delivery tracked for %s", args[0])
		}
		enc, _ := json.MarshalIndent(p, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(enc))
		return nil
	},
}

var retryCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Report the number of tracked pending deliveries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc, _ := json.Marshal(map[string]int{"pending": activeRetry.GetPendingCount()})
		fmt.Fprintln(cmd.OutOrStdout(), string(enc))
		return nil
	},
}

func init() {
	retryCmd.AddCommand(retryStatusCmd, retryCountCmd)
}

// RetryCmd is the root "retry" command.
var RetryCmd = retryCmd

// RegisterRetryCLI attaches the retry command group to root.
func RegisterRetryCLI(root *cobra.Command) { root.AddCommand(RetryCmd) }
