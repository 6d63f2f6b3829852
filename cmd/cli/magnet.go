package cli

// cmd/cli/magnet.go - CLI for magnet URL generation and parsing.

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	core "brightchain/core"
)

var magnetCmd = &cobra.Command{Use: "magnet", Short: "Magnet URL operations"}

var magnetParseCmd = &cobra.Command{
	Use:   "parse <url>",
	Short: "Parse a BrightChain magnet URL and print its fields as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]
		if w, err := core.ParseWhitenedMagnetURL(raw); err == nil {
			enc, _ := json.MarshalIndent(w, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(enc))
			return nil
		}
		r, err := core.ParseFileReceiptMagnetURL(raw)
		if err != nil {
			return err
		}
		enc, _ := json.MarshalIndent(r, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(enc))
		return nil
	},
}

func init() {
	magnetCmd.AddCommand(magnetParseCmd)
}

// MagnetCmd is the root "magnet" command.
var MagnetCmd = magnetCmd

// RegisterMagnetCLI attaches the magnet command group to root.
func RegisterMagnetCLI(root *cobra.Command) { root.AddCommand(MagnetCmd) }
