package squashfs

// FragmentView reads a shared fragment block and exposes the slice of it belonging to one
// file's tail (§4.12).
type FragmentView struct {
	view *ExtractView
	data []byte
}

// openFragmentView resolves f's fragment_block_index through the FragmentTable, decompresses
// the fragment block (via the datablock ExtractManager), and slices out
// [block_offset, block_offset + file_size%block_size).
func (sb *Superblock) openFragmentView(f *File) (*FragmentView, error) {
	entry, err := sb.fragTable.Get(f.FragBlockIndex)
	if err != nil {
		return nil, err
	}

	tailSize := int(f.FileSize % uint64(sb.BlockSize))
	end := int(f.FragBlockOfft) + tailSize

	raw := make([]byte, entry.Size)
	if err := sb.readRawAt(raw, int64(entry.Start)); err != nil {
		return nil, err
	}

	view, err := sb.dataExtract.Uncompress(int64(entry.Start), raw, entry.Uncompressed)
	if err != nil {
		return nil, err
	}
	data := view.Data()
	if end > len(data) {
		view.Close()
		return nil, ErrSizeMismatch
	}
	return &FragmentView{view: view, data: data[f.FragBlockOfft:end]}, nil
}

// Data returns the bytes belonging to this file's tail within the fragment block.
func (fv *FragmentView) Data() []byte {
	return fv.data
}

// Close releases the decompressed fragment block buffer.
func (fv *FragmentView) Close() {
	if fv == nil || fv.view == nil {
		return
	}
	fv.view.Close()
	fv.view = nil
}
