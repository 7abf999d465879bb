package squashfs

import "sync"

// mapBlock is a MapManager cache entry: the retained Mapper slice plus the bytes it covers
// (cached so Data() needn't be recomputed on every access) and its logical length (the last
// block of the archive may be shorter than blockSize).
type mapBlock struct {
	slice MapSlice
	data  []byte
}

// MapManager caches Mapper slices in a reference-counted bounded LRU (§4.2). archiveOffset is
// applied here, not by the Mapper itself (the convention this module picks for the open
// question in spec.md §9): every blockIndex maps to the byte range
// [archiveOffset+blockIndex*blockSize, ...+blockSize) of the underlying source.
type MapManager struct {
	mu     sync.Mutex
	mapper Mapper

	archiveOffset int64
	blockSize     int64
	bytesUsed     int64

	cache *refcountLRU[uint64, *mapBlock]
}

// NewMapManager constructs a MapManager over mapper. bytesUsed bounds valid block indices;
// lruSize bounds the number of simultaneously cached blocks (default 32 per §6.1).
func NewMapManager(mapper Mapper, archiveOffset int64, blockSize int64, bytesUsed int64, lruSize int) *MapManager {
	if lruSize <= 0 {
		lruSize = 32
	}
	return &MapManager{
		mapper:        mapper,
		archiveOffset: archiveOffset,
		blockSize:     blockSize,
		bytesUsed:     bytesUsed,
		cache:         newRefcountLRU[uint64, *mapBlock](lruSize),
	}
}

func (m *MapManager) blockCount() uint64 {
	if m.blockSize <= 0 {
		return 0
	}
	return uint64((m.bytesUsed + m.blockSize - 1) / m.blockSize)
}

// Get retains and returns the block at blockIndex, mapping it on a cache miss. The caller
// must call Release exactly once per successful Get.
func (m *MapManager) Get(blockIndex uint64) (*mapBlock, error) {
	if blockIndex >= m.blockCount() {
		return nil, ErrOutOfBounds
	}

	m.mu.Lock()
	if blk, ok := m.cache.get(blockIndex); ok {
		m.mu.Unlock()
		return blk, nil
	}
	m.mu.Unlock()

	offset := int64(blockIndex) * m.blockSize
	if offset < 0 || offset/m.blockSize != int64(blockIndex) {
		return nil, ErrIntegerOverflow
	}
	size := m.blockSize
	if remaining := m.bytesUsed - offset; remaining < size {
		size = remaining
	}

	// Map without holding the lock: concurrent Get of the same absent key may race, both
	// perform the mapper call, and the loser's slice is dropped (§4.2).
	slice, err := m.mapper.Map(m.archiveOffset+offset, int(size))
	if err != nil {
		return nil, err
	}
	blk := &mapBlock{slice: slice, data: m.mapper.Data(slice)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.cache.get(blockIndex); ok {
		// someone else populated it first; drop ours.
		m.mapper.Unmap(slice)
		return existing, nil
	}
	m.cache.insert(blockIndex, blk)
	return blk, nil
}

// Release drops one reference on blockIndex's cached block.
func (m *MapManager) Release(blockIndex uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.release(blockIndex)
}

// BlockSize returns the configured mapper block granularity.
func (m *MapManager) BlockSize() int64 { return m.blockSize }

// BytesUsed returns the archive's logical size as configured at construction.
func (m *MapManager) BytesUsed() int64 { return m.bytesUsed }
