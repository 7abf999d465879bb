package squashfs

import (
	"io"
	"io/fs"
	"path"
	"time"
)

// fsFile adapts a regular File to io/fs.File (and io.Seeker, io.ReaderAt) via FileReader.
type fsFile struct {
	f    *File
	name string
	fr   *FileReader
	pos  int64 // position Read/Seek callers see
	rpos int64 // bytes already consumed from fr
}

// fsDir adapts a directory File to fs.ReadDirFile via DirectoryIterator.
type fsDir struct {
	f    *File
	name string
	it   *DirectoryIterator
}

// fsDirEntry implements fs.DirEntry over one parsed DirectoryEntry, deferring the inode read
// until Info() is actually called.
type fsDirEntry struct {
	sb   *Superblock
	name string
	typ  Type
	ref  inodeRef
}

type fileinfo struct {
	name string
	ino  *File
}

var _ fs.File = (*fsFile)(nil)
var _ io.ReaderAt = (*fsFile)(nil)
var _ io.Seeker = (*fsFile)(nil)

var _ fs.ReadDirFile = (*fsDir)(nil)
var _ fs.DirEntry = (*fsDirEntry)(nil)
var _ fs.FileInfo = (*fileinfo)(nil)

// openFSFile wraps f (already open) as an io/fs.File named name.
func openFSFile(f *File, name string) (fs.File, error) {
	if f.Type.IsDir() {
		it, err := f.sb.IterDir(f)
		if err != nil {
			return nil, err
		}
		return &fsDir{f: f, name: name, it: it}, nil
	}
	if !f.Type.IsFile() {
		// devices, fifos, sockets, symlinks: expose stat-only, no content stream.
		return &fsFile{f: f, name: name}, nil
	}
	fr, err := f.sb.OpenFileReader(f)
	if err != nil {
		return nil, err
	}
	return &fsFile{f: f, name: name, fr: fr}, nil
}

func (f *fsFile) Stat() (fs.FileInfo, error) {
	return &fileinfo{name: path.Base(f.name), ino: f.f}, nil
}

// readAt advances the shared FileReader (reopening it if off requires moving backward, since
// the reader only supports forward advancement) and copies up to len(p) bytes from off.
func (f *fsFile) readAt(p []byte, off int64) (int, error) {
	if f.fr == nil {
		return 0, fs.ErrInvalid
	}
	remaining := int64(f.f.FileSize) - off
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	if off < f.rpos {
		f.fr.Close()
		fr, err := f.f.sb.OpenFileReader(f.f)
		if err != nil {
			return 0, err
		}
		f.fr = fr
		f.rpos = 0
	}
	data, err := f.fr.Advance(off-f.rpos, len(p))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	f.rpos = off + int64(n)
	return n, nil
}

func (f *fsFile) Read(p []byte) (int, error) {
	n, err := f.readAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *fsFile) ReadAt(p []byte, off int64) (int, error) {
	return f.readAt(p, off)
}

func (f *fsFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.pos = offset
	case io.SeekCurrent:
		f.pos += offset
	case io.SeekEnd:
		f.pos = int64(f.f.FileSize) + offset
	}
	return f.pos, nil
}

func (f *fsFile) Sys() any {
	return f.f
}

func (f *fsFile) Close() error {
	f.f.Close()
	if f.fr != nil {
		f.fr.Close()
	}
	return nil
}

func (d *fsDir) Read(p []byte) (int, error) {
	return 0, fs.ErrInvalid
}

func (d *fsDir) Stat() (fs.FileInfo, error) {
	return &fileinfo{name: path.Base(d.name), ino: d.f}, nil
}

func (d *fsDir) Sys() any {
	return d.f
}

func (d *fsDir) Close() error {
	d.it.Close()
	d.f.Close()
	return nil
}

func (d *fsDir) ReadDir(n int) ([]fs.DirEntry, error) {
	var res []fs.DirEntry
	for {
		err := d.it.Next()
		if err != nil {
			if err == ErrNoSuchElement {
				return res, nil
			}
			return res, err
		}
		e := d.it.Entry()
		res = append(res, &fsDirEntry{sb: d.f.sb, name: string(e.Name), typ: e.Type, ref: e.Ref})
		if n > 0 && len(res) >= n {
			return res, nil
		}
	}
}

func (e *fsDirEntry) Name() string      { return e.name }
func (e *fsDirEntry) IsDir() bool       { return e.typ.IsDir() }
func (e *fsDirEntry) Type() fs.FileMode { return e.typ.Mode() }

func (e *fsDirEntry) Info() (fs.FileInfo, error) {
	f, err := e.sb.OpenFile(e.ref)
	if err != nil {
		return nil, err
	}
	return &fileinfo{name: e.name, ino: f}, nil
}

func (fi *fileinfo) Name() string       { return fi.name }
func (fi *fileinfo) Size() int64        { return int64(fi.ino.Size()) }
func (fi *fileinfo) Mode() fs.FileMode  { return fi.ino.FSMode() }
func (fi *fileinfo) IsDir() bool        { return fi.ino.Type.IsDir() }
func (fi *fileinfo) Sys() any           { return fi.ino }
func (fi *fileinfo) ModTime() time.Time { return fi.ino.ModifiedTime() }
