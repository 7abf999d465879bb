package squashfs

// Table is the two-level lookup structure of §4.8 shared by the id, fragment, export, and
// xattr-id tables: tableStart points to an (uncompressed) array of absolute u64 metablock
// addresses; element i of an elementSize-byte record array lives at
// metablock floor(i*elementSize/8192), inner offset (i*elementSize)%8192 within it.
type Table struct {
	sb          *Superblock
	tableStart  int64
	elementSize int
}

func (sb *Superblock) newTable(tableStart int64, elementSize int) *Table {
	return &Table{sb: sb, tableStart: tableStart, elementSize: elementSize}
}

// Get copies the elementSize-byte record at logical index i into out (which must be at least
// elementSize bytes).
func (t *Table) Get(i uint32, out []byte) error {
	metablockIndex := uint64(i) * uint64(t.elementSize) / metablockMaxSize
	innerOffset := uint32((uint64(i) * uint64(t.elementSize)) % metablockMaxSize)

	lookupAddr := t.tableStart + int64(metablockIndex)*8
	buf := make([]byte, 8)
	if err := t.sb.readRawAt(buf, lookupAddr); err != nil {
		return err
	}
	metablockAddr := int64(t.sb.order.Uint64(buf))

	mr, err := NewMetablockReader(t.sb.mapMgr, t.sb.metaExtract, t.sb.order, metablockAddr, 0, 0)
	if err != nil {
		return err
	}
	defer mr.Close()

	data, err := mr.Advance(int64(innerOffset), t.elementSize)
	if err != nil {
		return err
	}
	copy(out, data)
	return nil
}

// IdTable resolves the uid/gid index table: each record is a plain u32 value (§6.2).
type IdTable struct{ t *Table }

func (sb *Superblock) newIdTable() *IdTable {
	return &IdTable{t: sb.newTable(int64(sb.IdTableStart), 4)}
}

func (it *IdTable) Get(idx uint16) (uint32, error) {
	var buf [4]byte
	if err := it.t.Get(uint32(idx), buf[:]); err != nil {
		return 0, err
	}
	return it.t.sb.order.Uint32(buf[:]), nil
}

// FragmentEntry is one 16-byte fragment table record (§3.6).
type FragmentEntry struct {
	Start        uint64
	Size         uint32
	Uncompressed bool
}

// FragmentTable resolves fragment_block_index to the fragment block's location and size.
type FragmentTable struct{ t *Table }

func (sb *Superblock) newFragmentTable() *FragmentTable {
	return &FragmentTable{t: sb.newTable(int64(sb.FragTableStart), 16)}
}

func (ft *FragmentTable) Get(idx uint32) (*FragmentEntry, error) {
	var buf [16]byte
	if err := ft.t.Get(idx, buf[:]); err != nil {
		return nil, err
	}
	order := ft.t.sb.order
	sizeInfo := order.Uint32(buf[8:12])
	return &FragmentEntry{
		Start:        order.Uint64(buf[0:8]),
		Size:         sizeInfo &^ 0x1000000,
		Uncompressed: sizeInfo&0x1000000 != 0,
	}, nil
}

// ExportTable resolves inode_number-1 to an inode reference, when the EXPORTABLE flag is set.
type ExportTable struct{ t *Table }

func (sb *Superblock) newExportTable() *ExportTable {
	return &ExportTable{t: sb.newTable(int64(sb.ExportTableStart), 8)}
}

func (et *ExportTable) Get(inodeNumber uint32) (inodeRef, error) {
	if inodeNumber == 0 {
		return 0, ErrInvalidArgument
	}
	var buf [8]byte
	if err := et.t.Get(inodeNumber-1, buf[:]); err != nil {
		return 0, err
	}
	return inodeRef(et.t.sb.order.Uint64(buf[:])), nil
}

// xattrLookupEntry is the 16-byte (xattr_ref, count, size) record §3.7 describes.
type xattrLookupEntry struct {
	ref   inodeRef
	count uint32
	size  uint32
}

// xattrIDTable resolves an inode's xattr_idx to the location/size of its attribute sequence
// in the xattr metablock stream.
type xattrIDTable struct{ t *Table }

func (sb *Superblock) newXattrIDTable() *xattrIDTable {
	return &xattrIDTable{t: sb.newTable(int64(sb.XattrIdTableStart)+16, 16)}
}

func (xt *xattrIDTable) Get(idx uint32) (*xattrLookupEntry, error) {
	var buf [16]byte
	if err := xt.t.Get(idx, buf[:]); err != nil {
		return nil, err
	}
	order := xt.t.sb.order
	return &xattrLookupEntry{
		ref:   inodeRef(order.Uint64(buf[0:8])),
		count: order.Uint32(buf[8:12]),
		size:  order.Uint32(buf[12:16]),
	}, nil
}
