package sym

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vmsight/vmsight/internal/hexfmt"
	"github.com/vmsight/vmsight/internal/scan"
)

// The CodeView debug directory record embedded in PE images:
// "RSDS" magic, 16-byte GUID, 32-bit age, NUL-terminated PDB name.
const (
	cvHeaderLen = 4 + 16 + 4
	// A candidate needs the header plus at least one name byte and
	// its terminator.
	cvMinLen = cvHeaderLen + 2
)

var rsdsSearcher = scan.NewSearcher([]byte("RSDS"))

// CodeView is the debug-info identifier extracted from a raw image.
type CodeView struct {
	GUID uuid.UUID
	Age  uint32
	Name string
}

// Identifier renders the symbol-store key: 32 upper-case hex digits of
// the GUID immediately followed by the decimal age, no separator.
func (cv *CodeView) Identifier() string {
	return hexfmt.EncodeUpper(cv.GUID[:]) + strconv.FormatUint(uint64(cv.Age), 10)
}

// ReadCodeView scans a raw module image for its embedded CodeView
// record. A candidate hit with a malformed name is skipped and the
// scan resumes one byte past it; the search only fails once the magic
// no longer occurs in the remaining buffer.
func ReadCodeView(image []byte, logger zerolog.Logger) (*CodeView, bool) {
	rest := image
	for {
		hit := rsdsSearcher.Index(rest)
		if hit < 0 {
			logger.Error().Msg("unable to find RSDS pattern in module image")
			return nil, false
		}

		rec := rest[hit:]
		if len(rec) < cvMinLen {
			logger.Error().Msg("module image too small for CodeView header")
			return nil, false
		}

		rest = rest[hit+1:]

		nameEnd := bytes.IndexByte(rec[cvHeaderLen:], 0x00)
		if nameEnd < 0 {
			// No terminator before the end of the image; try the
			// next occurrence.
			continue
		}

		name, ok := readPdbName(rec[cvHeaderLen : cvHeaderLen+nameEnd])
		if !ok {
			continue
		}

		return &CodeView{
			GUID: swapGUID(rec[4 : 4+16]),
			Age:  binary.LittleEndian.Uint32(rec[4+16:]),
			Name: name,
		}, true
	}
}

// readPdbName validates that every name byte is printable ASCII.
func readPdbName(raw []byte) (string, bool) {
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return "", false
		}
	}
	return string(raw), true
}

// swapGUID converts the on-disk GUID layout (three little-endian
// fields plus eight verbatim bytes) into canonical big-endian order.
func swapGUID(raw []byte) uuid.UUID {
	var g uuid.UUID
	binary.BigEndian.PutUint32(g[0:4], binary.LittleEndian.Uint32(raw[0:4]))
	binary.BigEndian.PutUint16(g[4:6], binary.LittleEndian.Uint16(raw[4:6]))
	binary.BigEndian.PutUint16(g[6:8], binary.LittleEndian.Uint16(raw[6:8]))
	copy(g[8:], raw[8:16])
	return g
}
