package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vmsight/vmsight/internal/errors"
)

// NewSymbolCmd creates the name-to-address resolution command.
func NewSymbolCmd() *cobra.Command {
	var (
		flags    moduleFlags
		contains bool
	)

	cmd := &cobra.Command{
		Use:   "symbol <module> <ident> <name>",
		Short: "Resolve a symbol name to its runtime address",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			mod, err := openModule(flags, args[0], args[1], logger)
			if err != nil {
				return fmt.Errorf("failed to open symbol module: %w", err)
			}
			defer errors.DeferClose(logger, mod, "closing symbol module")

			name := args[2]
			if contains {
				found, ok := mod.SymbolsThatContain(name)
				if !ok {
					return fmt.Errorf("no symbol contains %q", name)
				}
				names := make([]string, 0, len(found))
				for n := range found {
					names = append(names, n)
				}
				sort.Strings(names)
				for _, n := range names {
					cmd.Printf("%#016x %s\n", found[n], n)
				}
				return nil
			}

			addr, ok := mod.Symbol(name)
			if !ok {
				return fmt.Errorf("symbol %q not found", name)
			}
			cmd.Printf("%#016x %s\n", addr, name)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&contains, "contains", false, "Match every symbol containing the name as a substring")

	return cmd
}
