package squashfs

import "sync"

// inodeMapSentinel marks an unset dynamic inode-map slot. Stored values are the raw ref, not
// complemented: this is safe because the all-ones pattern is nullInodeRef, "no inode" (§3.1),
// which Set never receives as a real mapping, so it stays distinguishable from every ref that
// can legitimately be stored here - including ref == 0, the inode table's very first byte (§4.14).
const inodeMapSentinel = ^uint64(0)

// InodeMap resolves inode_number to inodeRef (§4.14): backed directly by the export table when
// the archive has one, otherwise a lazily-populated two-level radix built as entries are
// discovered while walking directories.
type InodeMap struct {
	sb    *Superblock
	count uint32

	mu     sync.Mutex
	dyn    map[uint32][256]uint64 // outer index (inode_num>>8) -> inner array of raw ref (or sentinel)
	useExp bool
}

// newInodeMap constructs the InodeMap appropriate for this archive's flags.
func (sb *Superblock) newInodeMap() *InodeMap {
	m := &InodeMap{sb: sb, count: sb.InodeCnt}
	if sb.HasExportTable() {
		m.useExp = true
	} else {
		m.dyn = make(map[uint32][256]uint64)
	}
	return m
}

func (m *InodeMap) checkRange(inodeNumber uint32) error {
	if inodeNumber == 0 || inodeNumber > m.count {
		return ErrInvalidArgument
	}
	return nil
}

// Get resolves inodeNumber to its inodeRef.
func (m *InodeMap) Get(inodeNumber uint32) (inodeRef, error) {
	if err := m.checkRange(inodeNumber); err != nil {
		return 0, err
	}
	if m.useExp {
		return m.sb.exportTable.Get(inodeNumber)
	}

	outer := inodeNumber >> 8
	inner := inodeNumber & 0xff

	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.dyn[outer]
	if !ok || row[inner] == inodeMapSentinel {
		return 0, ErrNoSuchElement
	}
	return inodeRef(row[inner]), nil
}

// Set records inodeNumber -> ref, discovered while walking a directory. For export-table
// backed archives this only asserts consistency with the table (it owns the mapping already).
func (m *InodeMap) Set(inodeNumber uint32, ref inodeRef) error {
	if err := m.checkRange(inodeNumber); err != nil {
		return err
	}
	if m.useExp {
		existing, err := m.sb.exportTable.Get(inodeNumber)
		if err != nil {
			return err
		}
		if existing != ref {
			return ErrInodeMapIsInconsistent
		}
		return nil
	}

	outer := inodeNumber >> 8
	inner := inodeNumber & 0xff
	stored := uint64(ref)

	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.dyn[outer]
	if !ok {
		for i := range row {
			row[i] = inodeMapSentinel
		}
	}
	if row[inner] != inodeMapSentinel && row[inner] != stored {
		return ErrInodeMapIsInconsistent
	}
	row[inner] = stored
	m.dyn[outer] = row
	return nil
}
