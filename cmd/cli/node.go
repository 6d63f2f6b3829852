package cli

// cmd/cli/node.go - CLI for inspecting the local p2p node and dialing
// additional bootstrap peers from a YAML peer-list file.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"brightchain/p2p"
)

var activeNode *p2p.Node

// SetActiveNode installs the p2p node used by CLI commands in this
// process. The composition root (cmd/brightchain) calls this once at
// startup.
func SetActiveNode(n *p2p.Node) { activeNode = n }

func ensureNodeInit(cmd *cobra.Command, _ []string) error {
	if activeNode == nil {
		return fmt.Errorf("p2p node not initialised")
	}
	return nil
}

var nodeCmd = &cobra.Command{Use: "node", Short: "P2P node operations", PersistentPreRunE: ensureNodeInit}

// bootstrapFile is the shape of a peer-bootstrap YAML file: a flat list of
// libp2p multiaddrs to dial in addition to any peers configured at
// startup.
type bootstrapFile struct {
	Peers []string `yaml:"peers"`
}

var nodeBootstrapCmd = &cobra.Command{
	Use:   "bootstrap <peers.yaml>",
	Short: "Dial additional bootstrap peers listed in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read bootstrap file: %w", err)
		}
		var cfg bootstrapFile
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("parse bootstrap file: %w", err)
		}
		if err := activeNode.DialSeed(cfg.Peers); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dialed %d peer(s)\n", len(cfg.Peers))
		return nil
	},
}

var nodePeersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List currently known peers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, p := range activeNode.Peers() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Addr)
		}
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeBootstrapCmd, nodePeersCmd)
}

// NodeCmd is the root "node" command.
var NodeCmd = nodeCmd

// RegisterNodeCLI attaches the node command group to root.
func RegisterNodeCLI(root *cobra.Command) { root.AddCommand(NodeCmd) }
