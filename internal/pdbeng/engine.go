// Package pdbeng wraps the PDB parsing engine behind the narrow
// contract the resolution layer consumes: load a file, fix the image
// base, enumerate global symbols, look up a type by name.
package pdbeng

// LoadState is the result of loading a PDB file.
type LoadState int

const (
	// StateOK means the file loaded and parsed.
	StateOK LoadState = iota
	// StateAlreadyLoaded means the engine already holds a file.
	StateAlreadyLoaded
	// StateOpenError means the file could not be opened.
	StateOpenError
	// StateInvalidFile means the file is not a valid PDB.
	StateInvalidFile
	// StateUnsupportedVersion means the PDB stream version is too old.
	StateUnsupportedVersion
)

// String returns the reason string for a load state.
func (s LoadState) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateAlreadyLoaded:
		return "already_loaded"
	case StateOpenError:
		return "err_file_open"
	case StateInvalidFile:
		return "invalid_file"
	case StateUnsupportedVersion:
		return "unsupported_version"
	}
	return "<invalid>"
}

// GlobalVar is one global symbol as reported by the engine. Address is
// relative to the image base passed to Initialize.
type GlobalVar struct {
	Name    string
	Address uint64
}

// Member is one structure member and its byte offset.
type Member struct {
	Name   string
	Offset uint64
}

// TypeKind discriminates the subtypes TypeByName can return.
type TypeKind int

const (
	// KindStruct covers struct and class records.
	KindStruct TypeKind = iota
	// KindUnion covers union records.
	KindUnion
	// KindEnum covers enum records.
	KindEnum
	// KindOther covers everything else.
	KindOther
)

// Struct describes one named type and, for structure kinds, its size
// and members.
type Struct struct {
	Name    string
	Kind    TypeKind
	Size    uint64
	Members []Member
}

// Engine is the PDB parsing engine contract. Implementations are not
// required to be safe for concurrent use during Load/Initialize; the
// query methods must be safe for concurrent readers afterwards.
type Engine interface {
	// Load opens and parses the file. All failure states are
	// distinguishable; loading twice yields StateAlreadyLoaded.
	Load(path string) LoadState
	// Initialize fixes the image base subsequent addresses are
	// relative to. Must be called once after a successful Load.
	Initialize(imageBase uint64)
	// GlobalVariables returns every global symbol.
	GlobalVariables() []GlobalVar
	// TypeByName returns the named type, or nil when absent.
	TypeByName(name string) *Struct
	// Close releases the underlying file.
	Close() error
}
