package sym

import (
	"debug/dwarf"
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmsight/vmsight/internal/config"
)

// secBuf assembles a raw DWARF section byte by byte.
type secBuf struct {
	buf []byte
}

func (b *secBuf) byte(v byte)     { b.buf = append(b.buf, v) }
func (b *secBuf) bytes(v ...byte) { b.buf = append(b.buf, v...) }

func (b *secBuf) u32(v uint32) {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
}

// str appends a NUL-terminated inline string.
func (b *secBuf) str(s string) {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
}

func (b *secBuf) off() uint32 { return uint32(len(b.buf)) }

// DWARF constants used by the synthetic sections. Attribute values
// are kept below 0x80 so every ULEB128 is a single byte.
const (
	tagCompileUnit = 0x11
	tagStructure   = 0x13
	tagMember      = 0x0d

	attrName          = 0x03
	attrByteSize      = 0x0b
	attrDataMemberLoc = 0x38
	attrType          = 0x49

	formString  = 0x08
	formData1   = 0x0b
	formSdata   = 0x0d
	formRef4    = 0x13
	formExprloc = 0x18
)

// testAbbrev declares eight entry shapes: a compile unit, named and
// anonymous structures with and without a size, and members carrying
// each supported and unsupported offset encoding.
func testAbbrev() []byte {
	var b secBuf
	// 1: compile unit, has children, name.
	b.bytes(1, tagCompileUnit, 1, attrName, formString, 0, 0)
	// 2: named structure with byte size.
	b.bytes(2, tagStructure, 1, attrName, formString, attrByteSize, formData1, 0, 0)
	// 3: named member, data1 offset.
	b.bytes(3, tagMember, 0, attrName, formString, attrDataMemberLoc, formData1, 0, 0)
	// 4: anonymous member, type reference plus data1 offset.
	b.bytes(4, tagMember, 0, attrType, formRef4, attrDataMemberLoc, formData1, 0, 0)
	// 5: anonymous structure with byte size.
	b.bytes(5, tagStructure, 1, attrByteSize, formData1, 0, 0)
	// 6: named member, location-expression offset.
	b.bytes(6, tagMember, 0, attrName, formString, attrDataMemberLoc, formExprloc, 0, 0)
	// 7: named member, signed-constant offset.
	b.bytes(7, tagMember, 0, attrName, formString, attrDataMemberLoc, formSdata, 0, 0)
	// 8: named structure without a byte size.
	b.bytes(8, tagStructure, 1, attrName, formString, 0, 0)
	b.byte(0)
	return b.buf
}

// cuHeader appends a 32-bit DWARF v4 unit header with a zero length
// placeholder; finish patches it once the unit is complete.
func cuHeader(b *secBuf) {
	b.u32(0)          // unit length, patched by finish
	b.bytes(4, 0)     // version 4
	b.u32(0)          // abbrev table offset
	b.byte(8)         // address size
}

func finish(b *secBuf) {
	binary.LittleEndian.PutUint32(b.buf, uint32(len(b.buf))-4)
}

// buildTestInfo lays out one compilation unit:
//
//	anonymous struct (size 8): nested_a @ 0, nested_b @ 4
//	task_struct (size 0x40):
//	    pid @ 0x10 (unsigned constant)
//	    comm @ 0x18 (plus-uconst expression)
//	    neg (negative signed constant, unresolvable)
//	    badexpr (non-plus-uconst expression, unresolvable)
//	    longexpr (multi-operation expression, unresolvable)
//	    <anonymous> @ 0x20, typed as the anonymous struct
//	no_size: x @ 0, structure itself has no byte size
func buildTestInfo() []byte {
	var b secBuf
	cuHeader(&b)

	b.byte(1) // compile unit
	b.str("vm.c")

	anonStruct := b.off()
	b.bytes(5, 8) // anonymous structure, size 8
	b.byte(3)
	b.str("nested_a")
	b.byte(0)
	b.byte(3)
	b.str("nested_b")
	b.byte(4)
	b.byte(0) // end anonymous structure

	b.byte(2)
	b.str("task_struct")
	b.byte(0x40)
	b.byte(3)
	b.str("pid")
	b.byte(0x10)
	b.byte(6)
	b.str("comm")
	b.bytes(2, opPlusUconst, 0x18)
	b.byte(7)
	b.str("neg")
	b.byte(0x7c) // sleb128 for -4
	b.byte(6)
	b.str("badexpr")
	b.bytes(1, 0x06) // DW_OP_deref
	b.byte(6)
	b.str("longexpr")
	b.bytes(4, opPlusUconst, 0x08, opPlusUconst, 0x08)
	b.byte(4) // anonymous member
	b.u32(anonStruct)
	b.byte(0x20)
	b.byte(0) // end task_struct

	b.byte(8)
	b.str("no_size")
	b.byte(3)
	b.str("x")
	b.byte(0)
	b.byte(0) // end no_size

	b.byte(0) // end compile unit
	finish(&b)
	return b.buf
}

func newTestDwarf(t *testing.T) *dwarfMod {
	t.Helper()
	data, err := dwarf.New(testAbbrev(), nil, nil, buildTestInfo(), nil, nil, nil, nil)
	require.NoError(t, err)
	m, err := newDwarfData(data, zerolog.Nop())
	require.NoError(t, err)
	return m
}

func TestDwarf_StrucOffset(t *testing.T) {
	m := newTestDwarf(t)

	tests := []struct {
		name   string
		struc  string
		member string
		want   uint64
		wantOK bool
	}{
		{"unsigned constant", "task_struct", "pid", 0x10, true},
		{"plus-uconst expression", "task_struct", "comm", 0x18, true},
		{"negative constant", "task_struct", "neg", 0, false},
		{"wrong expression operation", "task_struct", "badexpr", 0, false},
		{"multi-operation expression", "task_struct", "longexpr", 0, false},
		{"missing member", "task_struct", "nope", 0, false},
		{"missing struct", "inode", "pid", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.StrucOffset(tt.struc, tt.member)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDwarf_StrucOffset_AnonymousPassthrough(t *testing.T) {
	m := newTestDwarf(t)

	// Members of an unnamed nested structure resolve as if they were
	// direct members of the enclosing structure.
	off, ok := m.StrucOffset("task_struct", "nested_a")
	require.True(t, ok)
	assert.Equal(t, uint64(0), off)

	off, ok = m.StrucOffset("task_struct", "nested_b")
	require.True(t, ok)
	assert.Equal(t, uint64(4), off)
}

func TestDwarf_StrucSize(t *testing.T) {
	m := newTestDwarf(t)

	size, ok := m.StrucSize("task_struct")
	require.True(t, ok)
	assert.Equal(t, uint64(0x40), size)

	_, ok = m.StrucSize("no_size")
	assert.False(t, ok)

	_, ok = m.StrucSize("inode")
	assert.False(t, ok)
}

func TestDwarf_SymbolQueriesMiss(t *testing.T) {
	m := newTestDwarf(t)

	_, ok := m.Symbol("task_struct")
	assert.False(t, ok)

	_, ok = m.SymbolsThatContain("task")
	assert.False(t, ok)

	_, ok = m.SymbolAt(0xffffffff81000000)
	assert.False(t, ok)
}

func TestDwarf_SpanAndClose(t *testing.T) {
	m := newTestDwarf(t)
	assert.Equal(t, Span{}, m.Span())
	assert.NoError(t, m.Close())
}

func TestDwarf_EmptyCompilationUnit(t *testing.T) {
	var b secBuf
	cuHeader(&b)
	b.byte(1)
	b.str("empty.c")
	b.byte(0)
	finish(&b)

	data, err := dwarf.New(testAbbrev(), nil, nil, b.buf, nil, nil, nil, nil)
	require.NoError(t, err)

	_, err = newDwarfData(data, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewDwarf_MissingFile(t *testing.T) {
	_, err := NewDwarf("vmlinux", "deadbeef", Options{
		StorePath: t.TempDir(),
		Logger:    zerolog.Nop(),
	})
	assert.Error(t, err)
}

func TestNewDwarf_NoStorePath(t *testing.T) {
	t.Setenv(config.EnvElfSymbolPath, "")
	_, err := NewDwarf("vmlinux", "deadbeef", Options{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrNoStorePath)
}

func TestNewDwarfFromImage_NotImplemented(t *testing.T) {
	_, err := NewDwarfFromImage(Span{}, []byte{0x7f, 'E', 'L', 'F'}, Options{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrNotImplemented)
}
