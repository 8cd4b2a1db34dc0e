// Package config holds vmsight runtime configuration.
//
// Symbol stores follow the symsrv directory convention:
// <root>/<module>/<identifier>/<module> for PDB files and
// <root>/<module>/<identifier>/elf for DWARF files.
package config

// Environment variables naming the symbol-store roots. The PDB one
// matches the variable Windows debuggers already use.
const (
	EnvPdbSymbolPath = "_NT_SYMBOL_PATH"
	EnvElfSymbolPath = "_LINUX_SYMBOL_PATH"
)

// Config contains the symbol-store configuration.
type Config struct {
	// PdbSymbolPath is the root directory of the PDB symbol store.
	PdbSymbolPath string `env:"_NT_SYMBOL_PATH"`
	// ElfSymbolPath is the root directory of the DWARF symbol store.
	ElfSymbolPath string `env:"_LINUX_SYMBOL_PATH"`

	Log LogConfig
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `env:"VMSIGHT_LOG_LEVEL"`
	Pretty bool   `env:"VMSIGHT_LOG_PRETTY"`
}

// Default returns the built-in defaults. Store roots have no default:
// an empty root means the matching backend is unavailable.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load returns the defaults overlaid with environment values.
func Load() (Config, error) {
	cfg := Default()
	if err := LoadFromEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
