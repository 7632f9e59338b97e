// Package meta reads and writes the companion records stored next to build
// artifacts. A Meta record carries the hash of the source the artifact was
// produced from, the hash of the artifact itself, and the list of source
// fragments the front-end marked for elision or rewriting when a public
// header is emitted.
package meta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kaomoneus/cppl/internal/contenthash"
	"github.com/kaomoneus/cppl/internal/fsutil"
)

// ErrCorrupt is returned when a record file exists but cannot be decoded.
// A missing record file is reported as fs.ErrNotExist instead; both are
// treated as "artifact is stale" by the incremental checker, never as a
// build failure.
var ErrCorrupt = errors.New("meta record corrupt")

// FragmentAction tells the header generator what to do with a byte range of
// the source when emitting a public header or declaration surrogate.
type FragmentAction uint8

const (
	// ActionSkip removes the range from the output entirely.
	ActionSkip FragmentAction = iota
	// ActionSkipInHeaderOnly removes the range in header output but keeps
	// it in declaration-surrogate output.
	ActionSkipInHeaderOnly
	// ActionReplaceWithSemicolon replaces the range with a single ';'.
	ActionReplaceWithSemicolon
	// ActionPutExtern inserts "extern " at the start of a zero-width range.
	ActionPutExtern
	// ActionStartUnit opens a unit name-scope in the emitted file.
	ActionStartUnit
	// ActionStartUnitFirstDecl opens a unit name-scope at the first
	// declaration of the unit.
	ActionStartUnitFirstDecl
	// ActionEndUnit closes a unit name-scope.
	ActionEndUnit
	// ActionEndUnitEOF closes a unit name-scope at end of file.
	ActionEndUnitEOF

	actionMax = ActionEndUnitEOF
)

// Fragment is a half-open byte range [Start, End) of the source with the
// action to apply to it.
type Fragment struct {
	Start  uint32
	End    uint32
	Action FragmentAction
}

// Meta is the record stored next to every non-trivial artifact.
type Meta struct {
	SourceHash   contenthash.Hash
	ArtifactHash contenthash.Hash
	Fragments    []Fragment
}

var magic = [4]byte{'C', 'P', 'L', 'M'}

const formatVersion = 1

// Encode serializes the record.
func (m *Meta) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU16(&buf, formatVersion)
	buf.Write(m.SourceHash[:])
	buf.Write(m.ArtifactHash[:])
	writeU32(&buf, uint32(len(m.Fragments)))
	for _, f := range m.Fragments {
		writeU32(&buf, f.Start)
		writeU32(&buf, f.End)
		buf.WriteByte(byte(f.Action))
	}
	return buf.Bytes()
}

// Decode parses a record, validating the fragment list invariants: ranges
// sorted by start and non-overlapping.
func Decode(data []byte) (*Meta, error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil || gotMagic != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	version, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated version", ErrCorrupt)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}

	var m Meta
	if _, err := io.ReadFull(r, m.SourceHash[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated source hash", ErrCorrupt)
	}
	if _, err := io.ReadFull(r, m.ArtifactHash[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated artifact hash", ErrCorrupt)
	}

	count, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated fragment count", ErrCorrupt)
	}
	if int64(count)*9 > int64(r.Len()) {
		return nil, fmt.Errorf("%w: fragment count %d exceeds record size", ErrCorrupt, count)
	}

	m.Fragments = make([]Fragment, 0, count)
	prevEnd := uint32(0)
	for i := uint32(0); i < count; i++ {
		var f Fragment
		if f.Start, err = readU32(r); err != nil {
			return nil, fmt.Errorf("%w: truncated fragment", ErrCorrupt)
		}
		if f.End, err = readU32(r); err != nil {
			return nil, fmt.Errorf("%w: truncated fragment", ErrCorrupt)
		}
		action, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated fragment", ErrCorrupt)
		}
		f.Action = FragmentAction(action)

		if f.Action > actionMax {
			return nil, fmt.Errorf("%w: unknown fragment action %d", ErrCorrupt, action)
		}
		if f.End < f.Start {
			return nil, fmt.Errorf("%w: inverted fragment [%d, %d)", ErrCorrupt, f.Start, f.End)
		}
		if f.Start < prevEnd {
			return nil, fmt.Errorf(
				"%w: fragment [%d, %d) overlaps previous range ending at %d",
				ErrCorrupt, f.Start, f.End, prevEnd,
			)
		}
		prevEnd = f.End
		m.Fragments = append(m.Fragments, f)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}

	return &m, nil
}

// Load reads and decodes the record at path. A missing file is reported as
// fs.ErrNotExist, which callers interpret as "rebuild required".
func Load(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Save encodes the record and writes it to path, creating parent
// directories as needed.
func (m *Meta) Save(path string) error {
	if err := fsutil.CreateDirsForFile(path); err != nil {
		return err
	}
	return os.WriteFile(path, m.Encode(), 0o644)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
