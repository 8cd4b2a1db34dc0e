package pdbeng

import (
	"errors"
	"io/fs"
	"sort"

	"github.com/jtang613/gopdb/pkg/pdb"
	"github.com/jtang613/gopdb/pkg/pdb/msf"
	"github.com/jtang613/gopdb/pkg/pdb/streams"
	"github.com/rs/zerolog"

	vmerrors "github.com/vmsight/vmsight/internal/errors"
)

// PE sections are mapped on 4KiB boundaries.
const sectionAlign = 0x1000

type engine struct {
	logger zerolog.Logger

	file        *pdb.PDB
	path        string
	imageBase   uint64
	sectionBase map[uint16]uint64

	globals []GlobalVar
	types   map[string]*Struct
}

// New returns an Engine backed by the gopdb parser.
func New(logger zerolog.Logger) Engine {
	return &engine{
		logger: logger.With().Str("component", "pdbeng").Logger(),
	}
}

func (e *engine) Load(path string) LoadState {
	if e.file != nil {
		return StateAlreadyLoaded
	}

	f, err := pdb.Open(path)
	if err != nil {
		return classifyOpenError(err)
	}

	info := f.Info()
	if info.Version != 0 && info.Version < streams.PDBStreamVersionVC70 {
		vmerrors.DeferClose(e.logger, f, "closing unsupported pdb")
		return StateUnsupportedVersion
	}

	e.file = f
	e.path = path
	e.sectionBase = readSectionBases(path, e.logger)
	return StateOK
}

// classifyOpenError maps a gopdb open failure to a distinguishable
// load state. gopdb wraps the os error for plain I/O failures and
// reports format violations as parse errors.
func classifyOpenError(err error) LoadState {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return StateOpenError
	}
	return StateInvalidFile
}

func (e *engine) Initialize(imageBase uint64) {
	e.imageBase = imageBase
	e.globals = e.readGlobals()
}

// readGlobals flattens functions, data symbols and public symbols into
// one collection addressed relative to the image base. Public symbols
// only fill names the richer records did not already provide.
func (e *engine) readGlobals() []GlobalVar {
	if e.file == nil {
		return nil
	}

	var out []GlobalVar
	seen := make(map[string]struct{})

	add := func(name string, segment uint16, offset uint32) {
		if name == "" {
			return
		}
		base, ok := e.sectionBase[segment]
		if !ok {
			// Segment 0 carries absolute symbols and constants.
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, GlobalVar{
			Name:    name,
			Address: e.imageBase + base + uint64(offset),
		})
	}

	for _, fn := range e.file.Functions() {
		add(fn.Name, fn.Segment, fn.Offset)
	}
	for _, v := range e.file.Variables() {
		add(v.Name, v.Segment, v.Offset)
	}
	for _, p := range e.file.PublicSymbols() {
		add(p.Name, p.Segment, p.Offset)
	}

	e.logger.Debug().
		Str("path", e.path).
		Int("globals", len(out)).
		Msg("flattened global symbols")

	return out
}

func (e *engine) GlobalVariables() []GlobalVar {
	return e.globals
}

func (e *engine) TypeByName(name string) *Struct {
	if e.file == nil {
		return nil
	}
	if e.types == nil {
		e.types = indexTypes(e.file.Types())
	}
	return e.types[name]
}

func (e *engine) Close() error {
	if e.file == nil {
		return nil
	}
	f := e.file
	e.file = nil
	return f.Close()
}

// indexTypes builds the name index over the TPI records. PDBs carry
// forward references next to full definitions under the same name, so
// the record with the richer member list wins.
func indexTypes(types []pdb.TypeInfo) map[string]*Struct {
	out := make(map[string]*Struct, len(types))
	for i := range types {
		ti := &types[i]
		s := &Struct{
			Name: ti.Name,
			Kind: typeKind(ti.Kind),
			Size: ti.Size,
		}
		for _, m := range ti.Members {
			s.Members = append(s.Members, Member{Name: m.Name, Offset: m.Offset})
		}
		prev, ok := out[ti.Name]
		if ok && len(prev.Members) >= len(s.Members) {
			continue
		}
		out[ti.Name] = s
	}
	return out
}

func typeKind(kind string) TypeKind {
	switch kind {
	case "struct", "class":
		return KindStruct
	case "union":
		return KindUnion
	case "enum":
		return KindEnum
	}
	return KindOther
}

// readSectionBases reconstructs per-section virtual bases from the DBI
// section-contribution substream: sections are laid out in ascending
// index order from 0x1000, each sized by its largest contribution
// extent and aligned to the section boundary. gopdb does not expose
// the optional section-header stream, so the PE layout is rebuilt from
// the contributions instead.
func readSectionBases(path string, logger zerolog.Logger) map[uint16]uint64 {
	bases := make(map[uint16]uint64)

	m, err := msf.Open(path)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to reopen msf for section layout")
		return bases
	}
	defer vmerrors.DeferClose(logger, m, "closing msf after section layout")

	if m.NumStreams() <= pdb.StreamDBI {
		return bases
	}
	stream, err := m.Stream(pdb.StreamDBI)
	if err != nil || stream.Size() == 0 {
		return bases
	}
	data, err := stream.ReadAll()
	if err != nil {
		logger.Warn().Err(err).Msg("unable to read dbi stream")
		return bases
	}
	dbi, err := streams.ReadDBIStream(data)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to parse dbi stream")
		return bases
	}

	return sectionLayout(dbi.SectionContribs)
}

// sectionLayout computes virtual bases from contribution extents.
func sectionLayout(contribs []streams.SectionContrib) map[uint16]uint64 {
	extents := make(map[uint16]uint64)
	for _, c := range contribs {
		if c.Section == 0 || c.Offset < 0 || c.Size < 0 {
			continue
		}
		end := uint64(c.Offset) + uint64(c.Size)
		if end > extents[c.Section] {
			extents[c.Section] = end
		}
	}

	sections := make([]uint16, 0, len(extents))
	for sec := range extents {
		sections = append(sections, sec)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i] < sections[j] })

	bases := make(map[uint16]uint64, len(sections))
	cursor := uint64(sectionAlign)
	for _, sec := range sections {
		bases[sec] = cursor
		cursor += alignUp(extents[sec], sectionAlign)
	}
	return bases
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
