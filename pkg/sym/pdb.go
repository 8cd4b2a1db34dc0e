package sym

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vmsight/vmsight/internal/errors"
	"github.com/vmsight/vmsight/internal/pdbeng"
)

// symAddr is one entry of the address-ordered index.
type symAddr struct {
	addr uint64
	name string
}

// pdbMod resolves symbols against a Windows PDB file. Both indices are
// built once at construction; queries are pure reads.
type pdbMod struct {
	logger   zerolog.Logger
	span     Span
	filename string
	eng      pdbeng.Engine

	// symbols maps name to rebased runtime address; on duplicate
	// names the last-loaded record wins.
	symbols map[string]uint64
	// byAddr is sorted by runtime address for nearest-below search;
	// address collisions keep a single survivor.
	byAddr []symAddr
}

// NewPdb builds a module over the PDB file located at
// <store>/<module>/<ident>/<module>. Construction either returns a
// ready-to-query module or fails with no module at all.
func NewPdb(span Span, module, ident string, opt Options) (Mod, error) {
	root, err := pdbStoreRoot(opt)
	if err != nil {
		return nil, err
	}

	eng := opt.Engine
	if eng == nil {
		eng = pdbeng.New(opt.Logger)
	}

	m := &pdbMod{
		logger:   opt.Logger.With().Str("component", "pdb").Logger(),
		span:     span,
		filename: filepath.Join(root, module, ident, module),
		eng:      eng,
	}
	if err := m.setup(); err != nil {
		errors.DeferClose(m.logger, eng, "closing pdb engine after failed setup")
		return nil, err
	}
	return m, nil
}

// NewPdbFromImage extracts the embedded debug-info identifier from raw
// image bytes, then builds the module like NewPdb. The image buffer is
// not retained.
func NewPdbFromImage(span Span, image []byte, opt Options) (Mod, error) {
	cv, ok := ReadCodeView(image, opt.Logger)
	if !ok {
		return nil, fmt.Errorf("sym: no debug-info identifier in image")
	}
	opt.Logger.Info().
		Str("module", cv.Name).
		Str("identifier", cv.Identifier()).
		Msg("extracted debug identifier")
	return NewPdb(span, cv.Name, cv.Identifier(), opt)
}

func (m *pdbMod) setup() error {
	if state := m.eng.Load(m.filename); state != pdbeng.StateOK {
		m.logger.Error().
			Str("path", m.filename).
			Str("reason", state.String()).
			Msg("unable to open pdb")
		return fmt.Errorf("sym: unable to open pdb %s: %s", m.filename, state)
	}

	m.eng.Initialize(SyntheticBase)

	globals := m.eng.GlobalVariables()
	m.symbols = make(map[string]uint64, len(globals))
	for _, g := range globals {
		m.symbols[g.Name] = m.rebase(g.Address)
	}

	m.byAddr = make([]symAddr, 0, len(m.symbols))
	for name, addr := range m.symbols {
		m.byAddr = append(m.byAddr, symAddr{addr: addr, name: name})
	}
	sort.Slice(m.byAddr, func(i, j int) bool {
		if m.byAddr[i].addr != m.byAddr[j].addr {
			return m.byAddr[i].addr < m.byAddr[j].addr
		}
		return m.byAddr[i].name < m.byAddr[j].name
	})
	// Collapse address collisions to one survivor.
	out := m.byAddr[:0]
	for _, e := range m.byAddr {
		if n := len(out); n > 0 && out[n-1].addr == e.addr {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	m.byAddr = out

	return nil
}

// rebase converts an engine-space address into caller-space.
func (m *pdbMod) rebase(engineAddr uint64) uint64 {
	return m.span.Addr + engineAddr - SyntheticBase
}

func (m *pdbMod) Span() Span {
	return m.span
}

func (m *pdbMod) Symbol(name string) (uint64, bool) {
	addr, ok := m.symbols[name]
	return addr, ok
}

func (m *pdbMod) SymbolsThatContain(substr string) (map[string]uint64, bool) {
	found := make(map[string]uint64)
	for name, addr := range m.symbols {
		if strings.Contains(name, substr) {
			found[name] = addr
		}
	}
	if len(found) == 0 {
		return nil, false
	}
	return found, true
}

func (m *pdbMod) StrucOffset(struc, member string) (uint64, bool) {
	st, ok := m.struc(struc)
	if !ok {
		return 0, false
	}
	for _, mb := range st.Members {
		if mb.Name == member {
			return mb.Offset, true
		}
	}
	return 0, false
}

func (m *pdbMod) StrucSize(struc string) (uint64, bool) {
	st, ok := m.struc(struc)
	if !ok {
		return 0, false
	}
	return st.Size, true
}

func (m *pdbMod) struc(name string) (*pdbeng.Struct, bool) {
	st := m.eng.TypeByName(name)
	if st == nil || st.Kind != pdbeng.KindStruct {
		return nil, false
	}
	return st, true
}

// SymbolAt finds the nearest symbol at or below addr. An address past
// the last indexed symbol resolves to that last symbol; an address
// strictly below the first indexed symbol is a miss.
func (m *pdbMod) SymbolAt(addr uint64) (Cursor, bool) {
	if len(m.byAddr) == 0 {
		return Cursor{}, false
	}

	// First entry at or above the query address.
	idx := sort.Search(len(m.byAddr), func(i int) bool {
		return m.byAddr[i].addr >= addr
	})
	switch {
	case idx == len(m.byAddr):
		idx--
	case m.byAddr[idx].addr == addr:
		// Exact hit.
	case idx == 0:
		return Cursor{}, false
	default:
		// Strictly greater; step back one entry.
		idx--
	}

	e := m.byAddr[idx]
	return Cursor{Symbol: e.name, Offset: addr - e.addr}, true
}

func (m *pdbMod) Close() error {
	return m.eng.Close()
}
