package squashfs

import "bytes"

// DirIndexEntry is one record of an extended directory's index array (§3.5): Index is the byte
// offset from the directory's logical start that Start's metablock begins covering, enabling
// an O(log n) seek to the metablock containing a target name instead of a linear scan.
type DirIndexEntry struct {
	Index uint32
	Start uint32
	Name  []byte
}

// seekViaIndex implements the DirectoryIndexIterator half of §4.10 lookup(): pick the greatest
// index entry whose name is <= target, then reposition the MetablockReader at that entry's
// metablock and discard remainingSize up to its Index, so the subsequent linear scan in
// DirectoryIterator.Lookup starts close to the target instead of at the directory's beginning.
func (it *DirectoryIterator) seekViaIndex(name string) error {
	target := []byte(name)
	idx := it.dir.DirIndex
	if len(idx) == 0 {
		return nil
	}

	// idx is sorted by Name; find the last entry whose Name <= target (§7: "index lookup with
	// key smaller than first entry falls back to linear scan from start").
	best := -1
	lo, hi := 0, len(idx)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if bytes.Compare(idx[mid].Name, target) <= 0 {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best < 0 {
		return nil
	}

	entry := idx[best]
	mr, err := NewMetablockReader(it.sb.mapMgr, it.sb.metaExtract, it.sb.order, int64(it.sb.DirTableStart), 0, entry.Start)
	if err != nil {
		return err
	}
	it.mr.Close()
	it.mr = mr
	it.remainingSize = int64(it.dir.DirFileSize) - 3 - int64(entry.Index)
	it.remainingEntries = 0
	return nil
}
