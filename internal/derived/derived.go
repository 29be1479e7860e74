// Package derived implements the `.pluto` binary container (spec.md §6,
// SPEC_FULL §4.H): a magic header followed by three length-prefixed
// frames — the serialised Program, the original source text, a
// DerivedInfo record caching what the type checker computed — and a
// trailing raw 32-byte source hash readers use to detect stale derived
// data.
//
// Frames 1 and 3 are encoded with vmihailenco/msgpack/v5 rather than the
// original Rust implementation's bincode, grounded on
// other_examples/manifests/vovakirdan-surge and purpleidea-mgmt, the
// pack's own language/DSL tools that picked msgpack over JSON for their
// on-disk artefacts. The container framing itself (magic, 3
// length-prefixed frames, trailing 256-bit hash) is unchanged.
package derived

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mkerian10/pluto/internal/ast"
)

// Magic distinguishes the binary container from the plain .pt source form.
var Magic = [4]byte{'P', 'L', 'T', 'B'}

// FnSignature caches a function's checked signature (spec.md §4's
// "Typed entities").
type FnSignature struct {
	ParamTypes []*ast.Type
	ReturnType *ast.Type
	IsFallible bool
}

// ClassInfo caches a class's field and method signature shape.
type ClassInfo struct {
	Fields  []FieldInfo
	Methods map[string]FnSignature
}

type FieldInfo struct {
	Name       string
	Type       *ast.Type
	IsInjected bool
}

// TraitInfo caches a trait's required method signatures.
type TraitInfo struct {
	Methods map[string]FnSignature
}

// EnumInfo/ErrorInfo cache variant/field lists.
type EnumInfo struct {
	Variants map[string][]*ast.Type
}

type ErrorInfo struct {
	Fields []FieldInfo
}

// DerivedInfo is everything the checker computed that's worth caching
// alongside the serialised Program, keyed by declaration UUID (string
// form, since msgpack has no native uuid.UUID codec registered here and a
// plain 16-byte array round-trips just as well as a string).
type DerivedInfo struct {
	FnSignatures      map[string]FnSignature
	FnErrorSets       map[string][]string // fn UUID -> ordered error UUIDs
	ClassInfos        map[string]ClassInfo
	TraitInfos        map[string]TraitInfo
	EnumInfos         map[string]EnumInfo
	ErrorInfos        map[string]ErrorInfo
	DIOrder           []string // class UUIDs, topological
	TraitImplementors map[string][]string
}

func NewDerivedInfo() *DerivedInfo {
	return &DerivedInfo{
		FnSignatures:      map[string]FnSignature{},
		FnErrorSets:       map[string][]string{},
		ClassInfos:        map[string]ClassInfo{},
		TraitInfos:        map[string]TraitInfo{},
		EnumInfos:         map[string]EnumInfo{},
		ErrorInfos:        map[string]ErrorInfo{},
		TraitImplementors: map[string][]string{},
	}
}

// Encode writes the four-frame container: magic, then each of
// program/source/derived length-prefixed (uint32 little-endian), then the
// 32-byte hash with no length prefix, computed over the source text frame
// only (per spec.md §6, the
// hash detects edits to the source, not derived-data drift).
func Encode(prog *ast.Program, source string, info *DerivedInfo) ([]byte, error) {
	progFrame, err := msgpack.Marshal(prog)
	if err != nil {
		return nil, fmt.Errorf("derived: encoding program frame: %w", err)
	}
	infoFrame, err := msgpack.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("derived: encoding derived-info frame: %w", err)
	}
	sourceFrame := []byte(source)
	hash := sha256.Sum256(sourceFrame)

	var buf bytes.Buffer
	buf.Write(Magic[:])
	for _, frame := range [][]byte{progFrame, sourceFrame, infoFrame} {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(frame))); err != nil {
			return nil, fmt.Errorf("derived: writing frame length: %w", err)
		}
		buf.Write(frame)
	}
	buf.Write(hash[:])
	return buf.Bytes(), nil
}

var (
	ErrBadMagic  = errors.New("derived: not a .pluto binary container")
	ErrTruncated = errors.New("derived: truncated container")
	ErrStaleHash = errors.New("derived: source hash mismatch, derived data is stale")
)

// Container is a decoded .pluto file.
type Container struct {
	Program *ast.Program
	Source  string
	Info    *DerivedInfo
}

// Decode parses data per Encode's layout and verifies the trailing hash
// against the embedded source frame, returning ErrStaleHash (not a hard
// error — callers re-run analysis and re-encode) on mismatch.
func Decode(data []byte) (*Container, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], Magic[:]) {
		return nil, ErrBadMagic
	}
	r := bytes.NewReader(data[4:])

	readFrame := func() ([]byte, error) {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, ErrTruncated
		}
		frame := make([]byte, n)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, ErrTruncated
		}
		return frame, nil
	}

	progFrame, err := readFrame()
	if err != nil {
		return nil, err
	}
	sourceFrame, err := readFrame()
	if err != nil {
		return nil, err
	}
	infoFrame, err := readFrame()
	if err != nil {
		return nil, err
	}

	hashFrame := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, hashFrame); err != nil {
		return nil, ErrTruncated
	}

	prog := ast.NewProgram()
	if err := msgpack.Unmarshal(progFrame, prog); err != nil {
		return nil, fmt.Errorf("derived: decoding program frame: %w", err)
	}
	info := NewDerivedInfo()
	if err := msgpack.Unmarshal(infoFrame, info); err != nil {
		return nil, fmt.Errorf("derived: decoding derived-info frame: %w", err)
	}

	want := sha256.Sum256(sourceFrame)
	cont := &Container{Program: prog, Source: string(sourceFrame), Info: info}
	if !bytes.Equal(want[:], hashFrame) {
		return cont, ErrStaleHash
	}
	return cont, nil
}
