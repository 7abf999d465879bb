package squashfs

// staticMapper is the "static memory" backend of §4.1: a zero-copy Mapper over a byte slice
// already resident in memory (e.g. an embedded archive, or one read fully into RAM by the
// caller). Map returns sub-slices of the backing array directly - no allocation, no copy.
type staticMapper struct {
	buf []byte
}

// NewStaticMapper wraps buf as a zero-copy Mapper. The caller must not mutate buf afterwards;
// the archive format is immutable by contract and the mapper assumes that holds.
func NewStaticMapper(buf []byte) Mapper {
	return &staticMapper{buf: buf}
}

func (m *staticMapper) Init(reportedSize *int64) error {
	*reportedSize = int64(len(m.buf))
	return nil
}

func (m *staticMapper) BlockSizeHint() int {
	// a single block covering the whole buffer is cheapest: everything is already resident.
	return len(m.buf)
}

func (m *staticMapper) Map(offset int64, size int) (MapSlice, error) {
	if offset < 0 || offset > int64(len(m.buf)) {
		return nil, ErrOutOfBounds
	}
	end := offset + int64(size)
	if end > int64(len(m.buf)) {
		end = int64(len(m.buf))
	}
	return &byteSliceMap{b: m.buf[offset:end]}, nil
}

func (m *staticMapper) Data(slice MapSlice) []byte {
	return slice.(*byteSliceMap).b
}

func (m *staticMapper) Unmap(slice MapSlice) {}

func (m *staticMapper) Cleanup() error { return nil }
