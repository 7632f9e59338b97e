// Package ldeps reads and writes the per-unit parsed-imports records
// produced by the front-end in parse-imports mode and consumed by the graph
// builder. A record lists the unit's ordinary import targets, its body-only
// import targets, and the unit's public/external flags.
package ldeps

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kaomoneus/cppl/internal/fsutil"
)

// ErrCorrupt is returned when a record file exists but cannot be decoded.
var ErrCorrupt = errors.New("parsed-imports record corrupt")

// Record is the parsed-imports record for one unit.
type Record struct {
	// UnitID is the identifier of the unit the record describes.
	UnitID string
	// DeclImports are ordinary import targets: both the declaration and
	// the definition of this unit depend on their declarations.
	DeclImports []string
	// BodyImports are body-only import targets: only the definition of
	// this unit depends on their declarations.
	BodyImports []string
	// IsPublic marks units annotated public; their declarations are part
	// of the exported library surface.
	IsPublic bool
	// IsExternal marks library units; they contribute a declaration node
	// only and their objects are never linked.
	IsExternal bool
}

var magic = [4]byte{'C', 'P', 'L', 'D'}

const formatVersion = 1

const (
	flagPublic   = 1 << 0
	flagExternal = 1 << 1
)

// Encode serializes the record.
func (rec *Record) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])

	var v [2]byte
	binary.LittleEndian.PutUint16(v[:], formatVersion)
	buf.Write(v[:])

	var flags byte
	if rec.IsPublic {
		flags |= flagPublic
	}
	if rec.IsExternal {
		flags |= flagExternal
	}
	buf.WriteByte(flags)

	writeString(&buf, rec.UnitID)
	writeStrings(&buf, rec.DeclImports)
	writeStrings(&buf, rec.BodyImports)

	return buf.Bytes()
}

// Decode parses a record.
func Decode(data []byte) (*Record, error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil || gotMagic != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	var v [2]byte
	if _, err := io.ReadFull(r, v[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated version", ErrCorrupt)
	}
	if version := binary.LittleEndian.Uint16(v[:]); version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated flags", ErrCorrupt)
	}

	rec := &Record{
		IsPublic:   flags&flagPublic != 0,
		IsExternal: flags&flagExternal != 0,
	}

	if rec.UnitID, err = readString(r); err != nil {
		return nil, fmt.Errorf("%w: unit id: %s", ErrCorrupt, err)
	}
	if rec.UnitID == "" {
		return nil, fmt.Errorf("%w: empty unit id", ErrCorrupt)
	}
	if rec.DeclImports, err = readStrings(r); err != nil {
		return nil, fmt.Errorf("%w: decl imports: %s", ErrCorrupt, err)
	}
	if rec.BodyImports, err = readStrings(r); err != nil {
		return nil, fmt.Errorf("%w: body imports: %s", ErrCorrupt, err)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}

	return rec, nil
}

// Load reads and decodes the record at path. A missing file is reported as
// fs.ErrNotExist.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Save encodes the record and writes it to path, creating parent
// directories as needed.
func (rec *Record) Save(path string) error {
	if err := fsutil.CreateDirsForFile(path); err != nil {
		return err
	}
	return os.WriteFile(path, rec.Encode(), 0o644)
}

func writeString(buf *bytes.Buffer, s string) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	buf.Write(b[:])
	buf.WriteString(s)
}

func writeStrings(buf *bytes.Buffer, ss []string) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(ss)))
	buf.Write(b[:])
	for _, s := range ss {
		writeString(buf, s)
	}
}

func readString(r *bytes.Reader) (string, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(b[:])
	if int64(n) > int64(r.Len()) {
		return "", fmt.Errorf("string length %d exceeds record size", n)
	}
	s := make([]byte, n)
	if _, err := io.ReadFull(r, s); err != nil {
		return "", err
	}
	return string(s), nil
}

func readStrings(r *bytes.Reader) ([]string, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(b[:])
	if int64(n)*4 > int64(r.Len()) {
		return nil, fmt.Errorf("list length %d exceeds record size", n)
	}
	ss := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	return ss, nil
}
