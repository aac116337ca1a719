package cf

import "os"

// ByteSliceMap is an in-memory MemoryMap, mainly useful for tests.
type ByteSliceMap []byte

func (m ByteSliceMap) Read(offset int) byte  { return m[offset] }
func (m ByteSliceMap) Write(offset int, v byte) { m[offset] = v }
func (m ByteSliceMap) Flush() error          { return nil }
func (m ByteSliceMap) Len() int              { return len(m) }

// FileMap backs a Card's sectors with a raw byte-addressed file, per spec
// §6's persisted-state format (length = 512 * sector_count, sector layout
// otherwise uninterpreted).
type FileMap struct {
	f    *os.File
	size int
}

// OpenFileMap opens (or creates) path as a FileMap of the given byte size,
// zero-extending it if it is smaller.
func OpenFileMap(path string, size int) (*FileMap, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}
	return &FileMap{f: f, size: size}, nil
}

func (m *FileMap) Read(offset int) byte {
	var b [1]byte
	if _, err := m.f.ReadAt(b[:], int64(offset)); err != nil {
		return 0
	}
	return b[0]
}

func (m *FileMap) Write(offset int, v byte) {
	m.f.WriteAt([]byte{v}, int64(offset))
}

func (m *FileMap) Flush() error { return m.f.Sync() }

func (m *FileMap) Len() int { return m.size }

// Close releases the underlying file handle.
func (m *FileMap) Close() error { return m.f.Close() }
