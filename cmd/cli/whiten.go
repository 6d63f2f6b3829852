package cli

// cmd/cli/whiten.go - CLI for the OFF-system whitening engine.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	core "brightchain/core"
)

// WhitenController wraps whitening encode/decode for the CLI layer.
type WhitenController struct{}

// Encode pads and XOR-whitens the CBL bytes at cblPath, returning the
// whitened result (block ids and magnet URL).
func (c *WhitenController) Encode(cblPath string, encrypted bool) (core.WhitenedResult, error) {
	cbl, err := os.ReadFile(cblPath)
	if err != nil {
		return core.WhitenedResult{}, err
	}
	return core.EncodeWhitened(activeStore, cbl, encrypted)
}

// Decode reverses a whitened pair of block ids, writing the recovered CBL
// bytes to out ("-" for stdout).
func (c *WhitenController) Decode(id1Hex, id2Hex, out string) error {
	id1, err := core.ParseChecksum(id1Hex)
	if err != nil {
		return err
	}
	id2, err := core.ParseChecksum(id2Hex)
	if err != nil {
		return err
	}
	data, err := core.DecodeWhitened(activeStore, id1, id2)
	if err != nil {
		return err
	}
	if out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

var whitenCmd = &cobra.Command{Use: "whiten", Short: "OFF-system whitening operations", PersistentPreRunE: ensureStoreInit}

var whitenEncodeCmd = &cobra.Command{
	Use:   "encode <cblPath>",
	Short: "Whiten a CBL header and print its magnet URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypted, _ := cmd.Flags().GetBool("encrypted")
		ctrl := &WhitenController{}
		result, err := ctrl.Encode(args[0], encrypted)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.MagnetURL)
		return nil
	},
}

var whitenDecodeCmd = &cobra.Command{
	Use:   "decode <id1> <id2> [output|-]",
	Short: "Recover a CBL header from its two whitened block ids",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := "-"
		if len(args) == 3 {
			out = args[2]
		}
		ctrl := &WhitenController{}
		return ctrl.Decode(args[0], args[1], out)
	},
}

func init() {
	whitenEncodeCmd.Flags().Bool("encrypted", false, "flag the CBL payload as externally encrypted")
	whitenCmd.AddCommand(whitenEncodeCmd, whitenDecodeCmd)
}

// WhitenCmd is the root "whiten" command.
var WhitenCmd = whitenCmd

// RegisterWhitenCLI attaches the whiten command group to root.
func RegisterWhitenCLI(root *cobra.Command) { root.AddCommand(WhitenCmd) }
