package lexer

import "github.com/possum-systems/possum/pkg/intern"

// FileID identifies a source file within a FileTable.
type FileID int

// SourceLoc is a (file, line, column) triple. Line and column are
// 1-based.
type SourceLoc struct {
	File   FileID
	Line   int
	Column int
}

// FileTable maps FileIDs to interned absolute paths.
type FileTable struct {
	paths *intern.Paths
	ids   []intern.Handle
}

// NewFileTable returns an empty FileTable backed by paths.
func NewFileTable(paths *intern.Paths) *FileTable {
	return &FileTable{paths: paths}
}

// Add registers abs (already an interned absolute path handle) and returns
// its FileID.
func (t *FileTable) Add(abs intern.Handle) FileID {
	t.ids = append(t.ids, abs)
	return FileID(len(t.ids) - 1)
}

// Path returns the absolute path string for id.
func (t *FileTable) Path(id FileID) string {
	return t.paths.Get(t.ids[id])
}
