package cli

// cmd/cli/gossip.go - CLI for gossip service inspection and manual
// announcement.

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	core "brightchain/core"
)

var activeGossip *core.GossipService

// SetActiveGossip installs the gossip service used by CLI commands in this
// process. The composition root (cmd/brightchain) calls this once at
// startup.
func SetActiveGossip(g *core.GossipService) { activeGossip = g }

func ensureGossipInit(cmd *cobra.Command, _ []string) error {
	if activeGossip == nil {
		return fmt.Errorf("gossip service not initialised")
	}
	return nil
}

var gossipCmd = &cobra.Command{Use: "gossip", Short: "Gossip service operations", PersistentPreRunE: ensureGossipInit}

var gossipAnnounceCmd = &cobra.Command{
	Use:   "announce <blockId>",
	Short: "Announce a block add",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		activeGossip.AnnounceBlock(args[0])
		return nil
	},
}

var gossipMessageCmd = &cobra.Command{
	Use:   "message <blockId> <recipientId> [recipientId...]",
	Short: "Announce a message delivery to one or more recipients, generating a fresh message id",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		priorityFlag, _ := cmd.Flags().GetBool("high-priority")
		priority := core.PriorityNormal
		if priorityFlag {
			priority = core.PriorityHigh
		}
		blockID := args[0]
		recipients := args[1:]
		messageID := uuid.NewString()
		metadata := core.MessageDeliveryMetadata{
			MessageID:    messageID,
			RecipientIDs: recipients,
			Priority:     priority,
			BlockIDs:     []string{blockID},
			CBLBlockID:   blockID,
			AckRequired:  true,
		}
		activeGossip.AnnounceMessage([]string{blockID}, metadata)
		if activeRetry != nil {
			activeRetry.TrackDelivery(messageID, []string{blockID}, metadata)
		}
		fmt.Fprintln(cmd.OutOrStdout(), messageID)
		return nil
	},
}

var gossipPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending outbound announcements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc, _ := json.MarshalIndent(activeGossip.GetPendingAnnouncements(), "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(enc))
		return nil
	},
}

var gossipFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Force-flush the pending announcement queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		activeGossip.FlushAnnouncements()
		return nil
	},
}

func init() {
	gossipMessageCmd.Flags().Bool("high-priority", false, "use the high-priority fanout/TTL tier")
	gossipCmd.AddCommand(gossipAnnounceCmd, gossipMessageCmd, gossipPendingCmd, gossipFlushCmd)
}

// GossipCmd is the root "gossip" command.
var GossipCmd = gossipCmd

// RegisterGossipCLI attaches the gossip command group to root.
func RegisterGossipCLI(root *cobra.Command) { root.AddCommand(GossipCmd) }
