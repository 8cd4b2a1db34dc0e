package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmsight/vmsight/pkg/sym"
)

// NewIDCmd creates the identifier extraction command.
func NewIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <image>",
		Short: "Extract the debug-info identifier from a raw module image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			cv, ok := sym.ReadCodeView(image, logger)
			if !ok {
				return fmt.Errorf("no debug-info identifier in %s", args[0])
			}

			cmd.Printf("Module:     %s\n", cv.Name)
			cmd.Printf("GUID:       %s\n", cv.GUID)
			cmd.Printf("Age:        %d\n", cv.Age)
			cmd.Printf("Identifier: %s\n", cv.Identifier())
			return nil
		},
	}
}
