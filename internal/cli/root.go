package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vmsight/vmsight/internal/config"
	"github.com/vmsight/vmsight/internal/logging"
	"github.com/vmsight/vmsight/pkg/version"
)

var (
	logLevel  string
	logPretty bool
)

var rootCmd = &cobra.Command{
	Use:   "vmsight",
	Short: "VMSight - debug-symbol resolution for kernel and module images",
	Long: `Resolve debug symbols against raw memory images of loaded kernels
and modules.

Two backends behind one interface:
- pdb: Windows kernel symbols, located through the embedded CodeView
  identifier and loaded from a symbol store
- dwarf: Linux structure layouts read from DWARF debug info in ELF files

Queries: symbol name to address, address to containing symbol, structure
member offset and structure size.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.Log.Level, "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", cfg.Log.Pretty, "Human-readable log output")

	rootCmd.AddCommand(NewIDCmd())
	rootCmd.AddCommand(NewSymbolCmd())
	rootCmd.AddCommand(NewStructCmd())
	rootCmd.AddCommand(NewAddrCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newLogger() zerolog.Logger {
	return logging.New(logging.Config{Level: logLevel, Pretty: logPretty})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("VMSight version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
