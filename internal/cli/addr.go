package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmsight/vmsight/internal/errors"
)

// NewAddrCmd creates the address-to-symbol resolution command.
func NewAddrCmd() *cobra.Command {
	var flags moduleFlags

	cmd := &cobra.Command{
		Use:   "addr <module> <ident> <address>",
		Short: "Resolve an address to its containing symbol",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			addr, err := parseAddress(args[2])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[2], err)
			}

			mod, err := openModule(flags, args[0], args[1], logger)
			if err != nil {
				return fmt.Errorf("failed to open symbol module: %w", err)
			}
			defer errors.DeferClose(logger, mod, "closing symbol module")

			cur, ok := mod.SymbolAt(addr)
			if !ok {
				return fmt.Errorf("no symbol contains %#x", addr)
			}
			if cur.Offset == 0 {
				cmd.Printf("%s\n", cur.Symbol)
				return nil
			}
			cmd.Printf("%s+%#x\n", cur.Symbol, cur.Offset)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
