package squashfs

// TraversalState is one state of the §4.16 state machine: INIT -> (DIRECTORY_BEGIN -> FILE* ->
// DIRECTORY_END)* -> DONE.
type TraversalState int

const (
	TraversalInit TraversalState = iota
	TraversalDirBegin
	TraversalFile
	TraversalDirEnd
	TraversalDone
)

// recursionCheckDepth is the depth (§8.2 scenario 6) at which the cycle guard starts walking
// the ancestor stack before every descent.
const recursionCheckDepth = 128

// traversalFrame is one stack entry: the open directory File plus the iterator currently
// walking its entries, and the name that led to it (for path_dup()).
type traversalFrame struct {
	file *File
	it   *DirectoryIterator
	name string
}

// TreeTraversal is a depth-first walk (§4.16) with cycle detection: once the stack depth
// reaches recursionCheckDepth, every candidate descent is checked against every ancestor's
// inodeRef before proceeding.
type TreeTraversal struct {
	ar    *Archive
	stack []traversalFrame

	state    TraversalState
	maxDepth int

	curName string
	curRef  inodeRef
	curType Type
}

// NewTreeTraversal starts a traversal rooted at root.
func (ar *Archive) NewTreeTraversal(root *File) (*TreeTraversal, error) {
	if !root.Type.IsDir() {
		return nil, ErrNotDirectory
	}
	it, err := ar.sb.IterDir(root)
	if err != nil {
		return nil, err
	}
	return &TreeTraversal{
		ar:       ar,
		stack:    []traversalFrame{{file: root, it: it, name: ""}},
		state:    TraversalInit,
		maxDepth: 1 << 30,
	}, nil
}

// SetMaxDepth bounds how deep the traversal is allowed to descend.
func (t *TreeTraversal) SetMaxDepth(n int) {
	t.maxDepth = n
}

// State returns the state produced by the most recent Next call.
func (t *TreeTraversal) State() TraversalState { return t.state }

// Depth returns the current stack depth (number of open directory frames).
func (t *TreeTraversal) Depth() int { return len(t.stack) }

// PathSegment returns the name recorded at stack level i.
func (t *TreeTraversal) PathSegment(i int) string {
	if i < 0 || i >= len(t.stack) {
		return ""
	}
	return t.stack[i].name
}

// PathDup concatenates every stack frame's current name with '/' separators.
func (t *TreeTraversal) PathDup() string {
	out := ""
	for i, fr := range t.stack {
		if i == 0 {
			continue // root frame carries no name
		}
		if out != "" {
			out += "/"
		}
		out += fr.name
	}
	return out
}

// wouldRecurse reports whether ref matches any ancestor currently on the stack.
func (t *TreeTraversal) wouldRecurse(ref inodeRef) bool {
	for _, fr := range t.stack {
		if fr.file.InodeRef() == ref {
			return true
		}
	}
	return false
}

// Close releases every directory cursor and File still held on the stack.
func (t *TreeTraversal) Close() {
	for _, fr := range t.stack {
		fr.it.Close()
		fr.file.Close()
	}
	t.stack = nil
}

// Next advances the state machine by one state change (§4.16).
func (t *TreeTraversal) Next() error {
	switch t.state {
	case TraversalInit:
		t.state = TraversalDirBegin
		return nil

	case TraversalDirBegin, TraversalFile:
		top := &t.stack[len(t.stack)-1]
		err := top.it.Next()
		if err == ErrNoSuchElement {
			t.state = TraversalDirEnd
			return nil
		}
		if err != nil {
			return err
		}
		entry := top.it.Entry()
		t.curName = string(entry.Name)
		t.curRef = entry.Ref
		t.curType = entry.Type

		if entry.Type.IsDir() && len(t.stack) < t.maxDepth {
			if len(t.stack) >= recursionCheckDepth && t.wouldRecurse(entry.Ref) {
				return ErrDirectoryRecursion
			}
			f, err := top.it.OpenFile()
			if err != nil {
				return err
			}
			it, err := t.ar.sb.IterDir(f)
			if err != nil {
				f.Close()
				return err
			}
			t.stack = append(t.stack, traversalFrame{file: f, it: it, name: t.curName})
			t.state = TraversalDirBegin
			return nil
		}

		t.state = TraversalFile
		return nil

	case TraversalDirEnd:
		top := t.stack[len(t.stack)-1]
		top.it.Close()
		top.file.Close()
		t.stack = t.stack[:len(t.stack)-1]
		if len(t.stack) == 0 {
			t.state = TraversalDone
			return nil
		}
		// resume the parent's iterator so this call yields its next real state
		t.state = TraversalFile
		return t.Next()

	case TraversalDone:
		return ErrNoSuchElement
	}
	return ErrInvalidArgument
}

// OpenFile opens the File the most recently yielded FILE state refers to.
func (t *TreeTraversal) OpenFile() (*File, error) {
	return t.ar.sb.OpenFile(t.curRef)
}

// CurrentName returns the name of the entry the most recent FILE/DIRECTORY_BEGIN state refers to.
func (t *TreeTraversal) CurrentName() string {
	return t.curName
}
