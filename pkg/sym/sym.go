package sym

import (
	"errors"
	"os"

	"github.com/rs/zerolog"

	"github.com/vmsight/vmsight/internal/config"
	"github.com/vmsight/vmsight/internal/pdbeng"
)

// SyntheticBase is the fixed load address the PDB engine relocates
// against. Every address it reports is rebased from this value into
// the module's actual span once, at construction time.
const SyntheticBase = 0x80000000

// Span describes where a module is mapped in memory.
type Span struct {
	Addr uint64
	Size uint64
}

// Cursor names the symbol containing a queried address and the offset
// of that address within it.
type Cursor struct {
	Symbol string
	Offset uint64
}

// Mod is a loaded module's debug information. Implementations are
// immutable after construction; concurrent read-only queries are safe
// without external locking.
type Mod interface {
	// Span returns where the module is mapped.
	Span() Span
	// Symbol returns the runtime address of an exact symbol name.
	Symbol(name string) (uint64, bool)
	// SymbolsThatContain returns every symbol whose name contains
	// the substring, mapped to its runtime address. Misses only when
	// nothing matches.
	SymbolsThatContain(substr string) (map[string]uint64, bool)
	// StrucOffset returns the byte offset of a member within a named
	// structure.
	StrucOffset(struc, member string) (uint64, bool)
	// StrucSize returns the byte size of a named structure.
	StrucSize(struc string) (uint64, bool)
	// SymbolAt returns the symbol containing the address and the
	// offset of the address within it.
	SymbolAt(addr uint64) (Cursor, bool)
	// Close releases the backing debug file.
	Close() error
}

// Options tunes module construction.
type Options struct {
	// StorePath overrides the symbol-store root. When empty, the
	// backend's environment variable is consulted
	// (_NT_SYMBOL_PATH for PDB, _LINUX_SYMBOL_PATH for DWARF).
	StorePath string
	// Engine overrides the PDB parsing engine. Nil selects the
	// default gopdb-backed engine.
	Engine pdbeng.Engine
	// Logger receives diagnostics. The zero value is silent.
	Logger zerolog.Logger
}

// ErrNoStorePath is returned when no symbol-store root is configured;
// the module is simply unavailable.
var ErrNoStorePath = errors.New("sym: no symbol-store path configured")

// ErrNotImplemented is returned by construction paths that are not
// supported for a backend.
var ErrNotImplemented = errors.New("sym: not implemented")

func storeRoot(explicit, envVar string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if root := os.Getenv(envVar); root != "" {
		return root, nil
	}
	return "", ErrNoStorePath
}

func pdbStoreRoot(opt Options) (string, error) {
	return storeRoot(opt.StorePath, config.EnvPdbSymbolPath)
}

func elfStoreRoot(opt Options) (string, error) {
	return storeRoot(opt.StorePath, config.EnvElfSymbolPath)
}
