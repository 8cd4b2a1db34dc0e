package sym

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DW_OP_plus_uconst, the only location-expression operation accepted
// for member offsets.
const opPlusUconst = 0x23

// dwarfMod resolves structure layouts against a DWARF file. No index
// is built up front beyond the top-level entry collection: each query
// re-walks the live entry tree with a fresh reader, so concurrent
// read-only queries are safe.
//
// Address and name symbol queries are not implemented for this
// backend; they always report a miss.
type dwarfMod struct {
	logger   zerolog.Logger
	filename string
	file     *elf.File // nil when built directly from dwarf data
	data     *dwarf.Data

	// topLevel collects the direct children of every compilation
	// unit root; this is the search space for structure lookups.
	topLevel []dwarf.Offset
}

// NewDwarf builds a module over the DWARF file located at
// <store>/<module>/<ident>/elf. The module's span is empty; only
// structure introspection is supported.
func NewDwarf(module, ident string, opt Options) (Mod, error) {
	root, err := elfStoreRoot(opt)
	if err != nil {
		return nil, err
	}

	m := &dwarfMod{
		logger:   opt.Logger.With().Str("component", "dwarf").Logger(),
		filename: filepath.Join(root, module, ident, "elf"),
	}

	f, err := elf.Open(m.filename)
	if err != nil {
		m.logger.Error().Err(err).Str("path", m.filename).Msg("unable to open elf file")
		return nil, fmt.Errorf("sym: opening %s: %w", m.filename, err)
	}
	data, err := f.DWARF()
	if err != nil {
		closeErr := f.Close()
		if closeErr != nil {
			m.logger.Warn().Err(closeErr).Msg("closing elf file after dwarf failure")
		}
		m.logger.Error().Err(err).Str("path", m.filename).Msg("no dwarf information in file")
		return nil, fmt.Errorf("sym: reading dwarf from %s: %w", m.filename, err)
	}

	m.file = f
	m.data = data
	if err := m.setup(); err != nil {
		closeErr := f.Close()
		if closeErr != nil {
			m.logger.Warn().Err(closeErr).Msg("closing elf file after failed setup")
		}
		return nil, err
	}
	return m, nil
}

// NewDwarfFromImage is declared for construction-entry-point parity
// with the PDB backend but is not supported.
func NewDwarfFromImage(_ Span, _ []byte, opt Options) (Mod, error) {
	opt.Logger.Error().Msg("NewDwarfFromImage not implemented")
	return nil, ErrNotImplemented
}

// newDwarfData builds a module directly over parsed DWARF data.
func newDwarfData(data *dwarf.Data, logger zerolog.Logger) (*dwarfMod, error) {
	m := &dwarfMod{
		logger: logger.With().Str("component", "dwarf").Logger(),
		data:   data,
	}
	if err := m.setup(); err != nil {
		return nil, err
	}
	return m, nil
}

// setup walks every compilation unit and flattens the direct children
// of each unit root into the top-level collection.
func (m *dwarfMod) setup() error {
	r := m.data.Reader()
	for {
		cu, err := r.Next()
		if err != nil {
			return fmt.Errorf("sym: reading dwarf compilation units: %w", err)
		}
		if cu == nil {
			break
		}
		if cu.Tag != dwarf.TagCompileUnit {
			r.SkipChildren()
			continue
		}
		if !cu.Children {
			continue
		}
		for {
			e, err := r.Next()
			if err != nil {
				return fmt.Errorf("sym: reading dwarf entries: %w", err)
			}
			if e == nil || e.Tag == 0 {
				break
			}
			m.topLevel = append(m.topLevel, e.Offset)
			r.SkipChildren()
		}
	}

	if len(m.topLevel) == 0 {
		m.logger.Error().Str("path", m.filename).Msg("no structures found in dwarf file")
		return fmt.Errorf("sym: no structures found in %s", m.filename)
	}
	return nil
}

func (m *dwarfMod) Span() Span {
	return Span{}
}

func (m *dwarfMod) Symbol(string) (uint64, bool) {
	return 0, false
}

func (m *dwarfMod) SymbolsThatContain(string) (map[string]uint64, bool) {
	return nil, false
}

func (m *dwarfMod) SymbolAt(uint64) (Cursor, bool) {
	return Cursor{}, false
}

func (m *dwarfMod) StrucOffset(struc, member string) (uint64, bool) {
	st, ok := m.structure(struc)
	if !ok {
		return 0, false
	}
	children, err := m.children(st.Offset)
	if err != nil {
		m.logger.Warn().Err(err).Str("struct", struc).Msg("unable to read structure members")
		return 0, false
	}
	// Anonymous passthrough makes an unnamed nested structure's
	// fields reachable as if they were direct members.
	found := m.search(member, children, true)
	if found == nil {
		return 0, false
	}
	return m.memberLocation(found)
}

func (m *dwarfMod) StrucSize(struc string) (uint64, bool) {
	st, ok := m.structure(struc)
	if !ok {
		return 0, false
	}
	size, ok := st.Val(dwarf.AttrByteSize).(int64)
	if !ok {
		m.logger.Debug().Str("struct", struc).Msg("entry has no byte-size attribute")
		return 0, false
	}
	return uint64(size), true
}

func (m *dwarfMod) Close() error {
	if m.file == nil {
		return nil
	}
	return m.file.Close()
}

// structure finds a top-level entry by exact name.
func (m *dwarfMod) structure(name string) (*dwarf.Entry, bool) {
	entries := make([]*dwarf.Entry, 0, len(m.topLevel))
	for _, off := range m.topLevel {
		e, err := m.entryAt(off)
		if err != nil {
			m.logger.Warn().Err(err).Msg("unable to read top-level entry")
			continue
		}
		entries = append(entries, e)
	}
	found := m.search(name, entries, false)
	if found == nil {
		m.logger.Debug().Str("name", name).Msg("structure not found")
		return nil, false
	}
	return found, true
}

// search scans a materialized child list for an entry by exact name.
// With passthrough enabled, an unnamed entry is resolved through its
// type reference and the search recurses into that type's children,
// descending through anonymous nested structures.
func (m *dwarfMod) search(name string, entries []*dwarf.Entry, passthrough bool) *dwarf.Entry {
	for _, e := range entries {
		entryName, named := e.Val(dwarf.AttrName).(string)
		if !named {
			if !passthrough {
				continue
			}
			typeOff, ok := e.Val(dwarf.AttrType).(dwarf.Offset)
			if !ok {
				continue
			}
			children, err := m.children(typeOff)
			if err != nil {
				m.logger.Warn().Err(err).Msg("unable to read anonymous entry children")
				continue
			}
			if found := m.search(name, children, true); found != nil {
				return found
			}
			continue
		}
		if entryName == name {
			return e
		}
	}
	return nil
}

// entryAt reads the single entry at the given offset.
func (m *dwarfMod) entryAt(off dwarf.Offset) (*dwarf.Entry, error) {
	r := m.data.Reader()
	r.Seek(off)
	e, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("sym: reading entry at %#x: %w", off, err)
	}
	if e == nil {
		return nil, fmt.Errorf("sym: no entry at %#x", off)
	}
	return e, nil
}

// children materializes the direct children of the entry at off.
func (m *dwarfMod) children(off dwarf.Offset) ([]*dwarf.Entry, error) {
	r := m.data.Reader()
	r.Seek(off)
	parent, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("sym: reading entry at %#x: %w", off, err)
	}
	if parent == nil || !parent.Children {
		return nil, nil
	}

	var out []*dwarf.Entry
	for {
		e, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("sym: reading children of %#x: %w", off, err)
		}
		if e == nil || e.Tag == 0 {
			return out, nil
		}
		out = append(out, e)
		r.SkipChildren()
	}
}

// memberLocation decodes the member's byte offset. Three encodings are
// supported: an unsigned constant, a non-negative signed constant, and
// a location expression consisting of exactly one add-unsigned-constant
// operation. Anything else is unsupported.
func (m *dwarfMod) memberLocation(e *dwarf.Entry) (uint64, bool) {
	switch v := e.Val(dwarf.AttrDataMemberLoc).(type) {
	case int64:
		if v < 0 {
			m.logger.Warn().Int64("offset", v).Msg("unsupported negative member offset")
			return 0, false
		}
		return uint64(v), true
	case []byte:
		off, ok := decodePlusUconst(v)
		if !ok {
			m.logger.Warn().Msg("unsupported location expression for member offset")
		}
		return off, ok
	case nil:
		m.logger.Debug().Msg("member has no data-member-location attribute")
		return 0, false
	default:
		m.logger.Warn().Msg("unsupported form for member offset attribute")
		return 0, false
	}
}

// decodePlusUconst accepts exactly DW_OP_plus_uconst followed by one
// ULEB128 operand spanning the rest of the expression.
func decodePlusUconst(expr []byte) (uint64, bool) {
	if len(expr) < 2 || expr[0] != opPlusUconst {
		return 0, false
	}
	v, n := decodeULEB128(expr[1:])
	if n == 0 || 1+n != len(expr) {
		return 0, false
	}
	return v, true
}

// decodeULEB128 decodes an unsigned LEB128 value.
// Returns the value and number of bytes consumed, 0 when truncated.
func decodeULEB128(data []byte) (uint64, int) {
	var result uint64
	var shift uint

	for i := 0; i < len(data) && i < 10; i++ {
		b := data[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}

	return 0, 0
}
