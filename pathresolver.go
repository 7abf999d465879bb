package squashfs

import "strings"

// defaultMaxSymlinkDepth is the PathResolver bound from §6.1 when no option overrides it.
const defaultMaxSymlinkDepth = 100

// PathResolver walks names to inodes over a single directory cursor (§4.15): cwd is the
// current directory File, it is a DirectoryIterator bound to cwd, and candidate tracks either
// "beginning" (candidate == cwd.InodeRef(), the iterator has not yet been advanced onto a
// child) or the iterator's current entry.
type PathResolver struct {
	ar  *Archive
	cwd *File
	it  *DirectoryIterator

	candidate inodeRef
	atBeg     bool

	rootRef inodeRef

	symlinkDepth    int
	maxSymlinkDepth int
}

// NewPathResolver opens a resolver rooted (and initially positioned) at start, which must be a
// directory.
func (ar *Archive) NewPathResolver(start *File) (*PathResolver, error) {
	if !start.Type.IsDir() {
		return nil, ErrNotDirectory
	}
	it, err := ar.sb.IterDir(start)
	if err != nil {
		return nil, err
	}
	return &PathResolver{
		ar:              ar,
		cwd:             start,
		it:              it,
		candidate:       start.InodeRef(),
		atBeg:           true,
		rootRef:         ar.sb.RootInodeRef(),
		maxSymlinkDepth: ar.maxSymlinkDepth,
	}, nil
}

// Close releases the resolver's directory cursor.
func (r *PathResolver) Close() {
	r.it.Close()
}

// toRef replaces cwd with a new File at ref, which must be a directory.
func (r *PathResolver) toRef(ref inodeRef) error {
	f, err := r.ar.sb.OpenFile(ref)
	if err != nil {
		return err
	}
	if !f.Type.IsDir() {
		f.Close()
		return ErrNotDirectory
	}
	it, err := r.ar.sb.IterDir(f)
	if err != nil {
		f.Close()
		return err
	}
	r.it.Close()
	r.cwd.Close()
	r.cwd = f
	r.it = it
	r.candidate = ref
	r.atBeg = true
	return nil
}

// ToRoot resets the resolver to the filesystem root.
func (r *PathResolver) ToRoot() error {
	return r.toRef(r.rootRef)
}

// Down descends into the directory the cursor currently points at.
func (r *PathResolver) Down() error {
	if r.atBeg {
		return ErrWalkerCannotGoDown
	}
	return r.toRef(r.candidate)
}

// Up returns to the beginning of cwd if not already there, otherwise ascends to cwd's parent.
func (r *PathResolver) Up() error {
	if !r.atBeg {
		if err := r.it.rewind(); err != nil {
			return err
		}
		r.candidate = r.cwd.InodeRef()
		r.atBeg = true
		return nil
	}
	if r.cwd.InodeRef() == r.rootRef {
		return ErrWalkerCannotGoUp
	}
	parentRef, err := r.ar.sb.inodeMap.Get(r.cwd.DirParentIno)
	if err != nil {
		return err
	}
	return r.toRef(parentRef)
}

// Lookup rewinds the directory cursor and searches for name, updating the candidate.
func (r *PathResolver) Lookup(name string) error {
	if err := r.it.Lookup(name); err != nil {
		return err
	}
	r.candidate = r.it.Entry().Ref
	r.atBeg = false
	return nil
}

// Candidate returns the File the cursor currently points at (cwd itself, if at beginning).
func (r *PathResolver) Candidate() (*File, error) {
	return r.ar.sb.OpenFile(r.candidate)
}

// followSymlink resolves the candidate (which must be a symlink) against cwd, restarting at
// root for absolute targets (§4.15 follow_symlink()).
func (r *PathResolver) followSymlink() error {
	r.symlinkDepth++
	if r.symlinkDepth > r.maxSymlinkDepth {
		return ErrTooManySymlinks
	}
	f, err := r.ar.sb.OpenFile(r.candidate)
	if err != nil {
		return err
	}
	target := string(f.SymTarget)
	f.Close()
	if !f.Type.IsSymlink() {
		return ErrNotASymlink
	}
	if strings.HasPrefix(target, "/") {
		if err := r.ToRoot(); err != nil {
			return err
		}
	}
	return r.Resolve(target, true)
}

// Resolve walks path segment by segment, following symlinks on every internal segment and on
// the terminal one iff followSymlinks is set (§4.15 resolve()).
func (r *PathResolver) Resolve(path string, followSymlinks bool) error {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		last := i == len(segments)-1
		if seg == "" || seg == "." {
			continue
		}
		if seg == ".." {
			if err := r.Up(); err != nil {
				return err
			}
			continue
		}
		if err := r.Lookup(seg); err != nil {
			return err
		}

		follow := !last || followSymlinks
		if follow {
			for r.it.Entry().Type.IsSymlink() {
				if err := r.followSymlink(); err != nil {
					return err
				}
			}
		}

		if !last && !r.atBeg {
			if !r.it.Entry().Type.IsDir() {
				return ErrNotDirectory
			}
			if err := r.Down(); err != nil {
				return err
			}
		}
	}
	return nil
}
