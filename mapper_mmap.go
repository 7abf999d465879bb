//go:build unix

package squashfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapSlice records the page-aligned region actually mmap'd so Unmap can give it back to the
// kernel, plus the stored page offset that hides the rounding-down §4.1 requires (the slice's
// Data() view starts pageOfft bytes into the mapped region).
type mmapSlice struct {
	region   []byte
	pageOfft int
	size     int
}

func (s *mmapSlice) Len() int { return s.size }

// mmapMapper is the mmap Mapper backend of §4.1. offset is rounded down to the system page
// size before calling unix.Mmap; the extra leading bytes are hidden behind pageOfft so Data()
// always returns exactly the requested [offset, offset+size) window.
type mmapMapper struct {
	f        *os.File
	size     int64
	pageSize int64
}

// NewMmapMapper opens path and returns an mmap-backed Mapper over it.
func NewMmapMapper(path string) (Mapper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &mmapMapper{f: f, pageSize: int64(os.Getpagesize())}, nil
}

func (m *mmapMapper) Init(reportedSize *int64) error {
	st, err := m.f.Stat()
	if err != nil {
		return mapError("init", err)
	}
	m.size = st.Size()
	*reportedSize = m.size
	return nil
}

func (m *mmapMapper) BlockSizeHint() int {
	return 256 * 1024
}

func (m *mmapMapper) Map(offset int64, size int) (MapSlice, error) {
	if offset < 0 || size < 0 {
		return nil, ErrInvalidArgument
	}
	end := offset + int64(size)
	if end > m.size {
		end = m.size
	}
	if end <= offset {
		return &mmapSlice{}, nil
	}

	aligned := (offset / m.pageSize) * m.pageSize
	pageOfft := int(offset - aligned)
	length := int(end - aligned)

	region, err := unix.Mmap(int(m.f.Fd()), aligned, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, mapError("map", err)
	}
	return &mmapSlice{region: region, pageOfft: pageOfft, size: int(end - offset)}, nil
}

func (m *mmapMapper) Data(slice MapSlice) []byte {
	s := slice.(*mmapSlice)
	if s.region == nil {
		return nil
	}
	return s.region[s.pageOfft : s.pageOfft+s.size]
}

func (m *mmapMapper) Unmap(slice MapSlice) {
	s := slice.(*mmapSlice)
	if s.region != nil {
		unix.Munmap(s.region)
		s.region = nil
	}
}

func (m *mmapMapper) Cleanup() error {
	return m.f.Close()
}
