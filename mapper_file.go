package squashfs

import (
	"io"
	"os"
)

// fileMapper is the default Mapper, backed by any io.ReaderAt (typically an *os.File opened
// with Open). It performs no memory-mapping of its own; MapManager's slice cache is what
// bounds the number of outstanding reads. This mirrors the teacher's original behavior, which
// always accessed the archive through a plain io.ReaderAt.
type fileMapper struct {
	ra     io.ReaderAt
	closer io.Closer
	size   int64
}

// NewFileMapper wraps an io.ReaderAt (and, if it also implements io.Closer, closes it on
// Cleanup) as a Mapper.
func NewFileMapper(ra io.ReaderAt) Mapper {
	m := &fileMapper{ra: ra}
	if c, ok := ra.(io.Closer); ok {
		m.closer = c
	}
	return m
}

// OpenFileMapper opens path and returns a Mapper over it.
func OpenFileMapper(path string) (Mapper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewFileMapper(f), nil
}

func (m *fileMapper) Init(reportedSize *int64) error {
	if m.size == 0 {
		if sz, ok := m.ra.(interface{ Size() int64 }); ok {
			m.size = sz.Size()
		} else if f, ok := m.ra.(*os.File); ok {
			st, err := f.Stat()
			if err != nil {
				return mapError("init", err)
			}
			m.size = st.Size()
		}
	}
	if m.size > 0 {
		*reportedSize = m.size
	}
	return nil
}

func (m *fileMapper) BlockSizeHint() int {
	return 256 * 1024
}

func (m *fileMapper) Map(offset int64, size int) (MapSlice, error) {
	buf := make([]byte, size)
	n, err := m.ra.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && n > 0) {
		return nil, mapError("map", err)
	}
	return &byteSliceMap{b: buf[:n]}, nil
}

func (m *fileMapper) Data(slice MapSlice) []byte {
	return slice.(*byteSliceMap).b
}

func (m *fileMapper) Unmap(slice MapSlice) {}

func (m *fileMapper) Cleanup() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}
