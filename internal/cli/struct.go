package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmsight/vmsight/internal/errors"
)

// NewStructCmd creates the structure layout command.
func NewStructCmd() *cobra.Command {
	var flags moduleFlags

	cmd := &cobra.Command{
		Use:   "struct <module> <ident> <struct> [member]",
		Short: "Show a structure's size or a member's byte offset",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			mod, err := openModule(flags, args[0], args[1], logger)
			if err != nil {
				return fmt.Errorf("failed to open symbol module: %w", err)
			}
			defer errors.DeferClose(logger, mod, "closing symbol module")

			struc := args[2]
			if len(args) == 4 {
				member := args[3]
				offset, ok := mod.StrucOffset(struc, member)
				if !ok {
					return fmt.Errorf("member %s.%s not found", struc, member)
				}
				cmd.Printf("%s.%s offset %#x\n", struc, member, offset)
				return nil
			}

			size, ok := mod.StrucSize(struc)
			if !ok {
				return fmt.Errorf("structure %q not found", struc)
			}
			cmd.Printf("%s size %#x\n", struc, size)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
