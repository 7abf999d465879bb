package squashfs

// FileIterator streams a regular file's data blocks followed by its optional tail fragment
// (§4.11). It implements the chunkIterator contract so it can also be driven through the
// generic Reader adapter (FileReader) for absolute-offset random access.
type FileIterator struct {
	sb *Superblock
	f  *File

	blockIndex int
	fragDone   bool

	curView *ExtractView
	curFrag *FragmentView
	curData []byte
}

// OpenFileIterator opens a FileIterator over f's content (blocks, then fragment tail if any).
func (sb *Superblock) OpenFileIterator(f *File) (*FileIterator, error) {
	if !f.Type.IsFile() {
		return nil, ErrNotAFile
	}
	it := &FileIterator{sb: sb, f: f}
	if err := it.loadCurrent(); err != nil {
		return nil, err
	}
	return it, nil
}

// blockLogicalSize returns the number of uncompressed bytes block i contributes to the file.
func (it *FileIterator) blockLogicalSize(i int) int64 {
	blockSize := int64(it.sb.BlockSize)
	remaining := int64(it.f.FileSize) - int64(i)*blockSize
	if remaining > blockSize {
		return blockSize
	}
	return remaining
}

// loadCurrent materializes the block or fragment at the iterator's current position.
func (it *FileIterator) loadCurrent() error {
	if it.curView != nil {
		it.curView.Close()
		it.curView = nil
	}
	if it.curFrag != nil {
		it.curFrag.Close()
		it.curFrag = nil
	}

	if it.blockIndex < len(it.f.BlockSizes) {
		size := it.f.BlockOnDiskSize(it.blockIndex)
		logical := it.blockLogicalSize(it.blockIndex)

		if size == 0 {
			// Sparse: no data is stored on disk for this block (§8.2 scenario 8).
			it.curData = make([]byte, logical)
			it.blockIndex++
			return nil
		}

		address := int64(it.f.BlocksStart) + int64(it.f.BlockOffsets[it.blockIndex])
		raw := make([]byte, size)
		if err := it.sb.readRawAt(raw, address); err != nil {
			return err
		}
		view, err := it.sb.dataExtract.Uncompress(address, raw, !it.f.BlockIsCompressed(it.blockIndex))
		if err != nil {
			return err
		}
		data := view.Data()
		if int64(len(data)) > logical {
			data = data[:logical]
		}
		it.curView = view
		it.curData = data
		it.blockIndex++
		return nil
	}

	if it.f.HasFragment() && !it.fragDone {
		it.fragDone = true
		fv, err := it.sb.openFragmentView(it.f)
		if err != nil {
			return err
		}
		it.curFrag = fv
		it.curData = fv.Data()
		return nil
	}

	return ErrNoSuchElement
}

// next implements chunkIterator.
func (it *FileIterator) next(desiredSize int) error {
	return it.loadCurrent()
}

// skip implements chunkIterator: fast-forwards to the block containing *offset, summing
// on-disk sizes is unnecessary since block index is derived directly from the uniform
// block_size (§4.11 skip()).
func (it *FileIterator) skip(offset *int64, desiredSize int) error {
	blockSize := int64(it.sb.BlockSize)
	n := *offset / blockSize
	it.blockIndex += int(n)
	*offset -= n * blockSize
	it.fragDone = it.blockIndex > len(it.f.BlockSizes)
	return it.loadCurrent()
}

// data implements chunkIterator.
func (it *FileIterator) data() []byte {
	return it.curData
}

// Next advances to the next chunk; returns ErrNoSuchElement once content is exhausted.
func (it *FileIterator) Next() error {
	return it.loadCurrent()
}

// Data returns the bytes of the chunk most recently loaded.
func (it *FileIterator) Data() []byte {
	return it.curData
}

// Close releases any block or fragment buffer currently retained.
func (it *FileIterator) Close() {
	if it.curView != nil {
		it.curView.Close()
		it.curView = nil
	}
	if it.curFrag != nil {
		it.curFrag.Close()
		it.curFrag = nil
	}
}

// FileReader wraps FileIterator in the generic Reader adapter (§4.13), exposing
// Advance(offset, size) for absolute-offset random access into a file's content.
type FileReader struct {
	it *FileIterator
	gr *genericReader
}

// OpenFileReader opens a FileReader over f's content.
func (sb *Superblock) OpenFileReader(f *File) (*FileReader, error) {
	it, err := sb.OpenFileIterator(f)
	if err != nil {
		return nil, err
	}
	return &FileReader{it: it, gr: newGenericReader(it)}, nil
}

// Advance moves the cursor forward by offset bytes and returns the following size bytes.
func (r *FileReader) Advance(offset int64, size int) ([]byte, error) {
	return r.gr.Advance(offset, size)
}

// Close releases the underlying FileIterator's retained buffers.
func (r *FileReader) Close() {
	r.it.Close()
}
