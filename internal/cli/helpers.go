package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vmsight/vmsight/pkg/sym"
)

// moduleFlags carries the flags shared by every command that opens a
// symbol module.
type moduleFlags struct {
	format string
	store  string
	base   string
	size   uint64
}

func (f *moduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "pdb", "Symbol format (pdb, dwarf)")
	cmd.Flags().StringVar(&f.store, "store", "", "Symbol store root (defaults to the backend's environment variable)")
	cmd.Flags().StringVar(&f.base, "base", "", "Module base address, hex")
	cmd.Flags().Uint64Var(&f.size, "size", 0, "Module span size in bytes")
}

// openModule builds a backend from the shared flags. The span base is
// parsed as hex with or without a 0x prefix.
func openModule(flags moduleFlags, module, ident string, logger zerolog.Logger) (sym.Mod, error) {
	var span sym.Span
	if flags.base != "" {
		base, err := parseAddress(flags.base)
		if err != nil {
			return nil, fmt.Errorf("invalid base address %q: %w", flags.base, err)
		}
		span = sym.Span{Addr: base, Size: flags.size}
	}

	opt := sym.Options{StorePath: flags.store, Logger: logger}
	switch flags.format {
	case "pdb":
		return sym.NewPdb(span, module, ident, opt)
	case "dwarf":
		return sym.NewDwarf(module, ident, opt)
	default:
		return nil, fmt.Errorf("unknown symbol format %q (want pdb or dwarf)", flags.format)
	}
}

func parseAddress(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
}
