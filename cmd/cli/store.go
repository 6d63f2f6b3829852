package cli

// cmd/cli/store.go - CLI for block-store operations.

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	core "brightchain/core"
)

var activeStore core.BlockStore

// SetActiveStore installs the store used by CLI commands in this process.
// The composition root (cmd/brightchain) calls this once at startup.
func SetActiveStore(s core.BlockStore) { activeStore = s }

func ensureStoreInit(cmd *cobra.Command, _ []string) error {
	if activeStore == nil {
		return fmt.Errorf("block store not initialised")
	}
	return nil
}

// StoreController wraps block-store/CBL operations for the CLI layer.
type StoreController struct{}

// StoreFile chops a file on disk into blocks and writes the resulting CBL
// header to cblOut.
func (c *StoreController) StoreFile(path, fileName, cblOut string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cbl, err := core.StoreFile(activeStore, data, fileName)
	if err != nil {
		return err
	}
	return os.WriteFile(cblOut, cbl, 0o644)
}

// RetrieveFile reassembles a file from a CBL header on disk and writes it
// to out ("-" for stdout).
func (c *StoreController) RetrieveFile(cblPath, out string) error {
	cblBytes, err := os.ReadFile(cblPath)
	if err != nil {
		return err
	}
	header, err := core.DecodeCBL(cblBytes)
	if err != nil {
		return err
	}
	data, err := core.RetrieveFile(activeStore, header)
	if err != nil {
		return err
	}
	if out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

var storeCmd = &cobra.Command{Use: "store", Short: "Block store operations", PersistentPreRunE: ensureStoreInit}

var storePutCmd = &cobra.Command{
	Use:   "put <filePath> <cblOutPath>",
	Short: "Chop a file into blocks and write its CBL header",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := &StoreController{}
		return ctrl.StoreFile(args[0], args[0], args[1])
	},
}

var storeGetCmd = &cobra.Command{
	Use:   "get <cblPath> [output|-]",
	Short: "Reassemble a file from a CBL header",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := "-"
		if len(args) == 2 {
			out = args[1]
		}
		ctrl := &StoreController{}
		return ctrl.RetrieveFile(args[0], out)
	},
}

var storeSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Report the number of blocks currently stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc, _ := json.Marshal(map[string]int{"size": activeStore.Size()})
		fmt.Fprintln(cmd.OutOrStdout(), string(enc))
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storePutCmd, storeGetCmd, storeSizeCmd)
}

// StoreCmd is the root "store" command.
var StoreCmd = storeCmd

// RegisterStoreCLI attaches the store command group to root.
func RegisterStoreCLI(root *cobra.Command) { root.AddCommand(StoreCmd) }
