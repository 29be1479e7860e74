package ast

import "strings"

// SourceFile is one file merged into the program's source map.
type SourceFile struct {
	ID       uint32
	Path     string
	Text     string
	lineTbl  []int // byte offset of the start of each line
}

func NewSourceFile(id uint32, path, text string) *SourceFile {
	f := &SourceFile{ID: id, Path: path, Text: text}
	f.lineTbl = append(f.lineTbl, 0)
	for i, r := range text {
		if r == '\n' {
			f.lineTbl = append(f.lineTbl, i+1)
		}
	}
	return f
}

// LineCol converts a byte offset into this file to a 1-based (line, col).
func (f *SourceFile) LineCol(offset int) (line, col int) {
	// binary search for the last line start <= offset
	lo, hi := 0, len(f.lineTbl)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineTbl[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line = lo + 1
	col = offset - f.lineTbl[lo] + 1
	return
}

// LineText returns the full text of the given 1-based line number.
func (f *SourceFile) LineText(line int) string {
	if line < 1 || line > len(f.lineTbl) {
		return ""
	}
	start := f.lineTbl[line-1]
	end := len(f.Text)
	if line < len(f.lineTbl) {
		end = f.lineTbl[line] - 1
	}
	if end < start {
		end = start
	}
	return strings.TrimRight(f.Text[start:end], "\r")
}

// SourceMap owns every merged source file, indexed by file ID, and is
// shared (read-only after construction) by every later pass — mirroring
// the teacher's single shared *token.FileSet threaded through the
// Interpreter.
type SourceMap struct {
	Files []*SourceFile
}

func NewSourceMap() *SourceMap { return &SourceMap{} }

func (sm *SourceMap) Add(path, text string) *SourceFile {
	f := NewSourceFile(uint32(len(sm.Files)), path, text)
	sm.Files = append(sm.Files, f)
	return f
}

func (sm *SourceMap) File(id uint32) *SourceFile {
	if int(id) >= len(sm.Files) {
		return nil
	}
	return sm.Files[id]
}

// Locate resolves a span to (file path, line, col, line text) for
// diagnostic rendering. ok is false for synthetic spans or an unknown file.
func (sm *SourceMap) Locate(span Span) (file string, line, col int, lineText string, ok bool) {
	if span.Synthetic() {
		return "", 0, 0, "", false
	}
	f := sm.File(span.FileID)
	if f == nil {
		return "", 0, 0, "", false
	}
	line, col = f.LineCol(span.Start)
	return f.Path, line, col, f.LineText(line), true
}
