package squashfs

// EasyFileContent opens path (following a terminal symlink) and returns its entire content in
// one call, the common case of "I just want the bytes" a caller reaches for instead of driving
// OpenPath/FileReader by hand.
func (ar *Archive) EasyFileContent(path string) ([]byte, error) {
	f, err := ar.OpenPath(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if !f.Type.IsFile() {
		return nil, ErrNotAFile
	}

	fr, err := ar.sb.OpenFileReader(f)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	out := make([]byte, 0, f.FileSize)
	remaining := int64(f.FileSize)
	const chunkSize = 1 << 20
	for remaining > 0 {
		n := chunkSize
		if int64(n) > remaining {
			n = int(remaining)
		}
		chunk, err := fr.Advance(0, n)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		remaining -= int64(len(chunk))
	}
	return out, nil
}

// EasyDirectoryList opens path (following a terminal symlink) and returns the names of every
// entry it contains, in on-disk order.
func (ar *Archive) EasyDirectoryList(path string) ([]string, error) {
	f, err := ar.OpenPath(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if !f.Type.IsDir() {
		return nil, ErrNotDirectory
	}

	it, err := ar.sb.IterDir(f)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var names []string
	for {
		err := it.Next()
		if err != nil {
			if err == ErrNoSuchElement {
				break
			}
			return nil, err
		}
		names = append(names, string(it.Entry().Name))
	}
	return names, nil
}

// EasyFileExists reports whether path resolves to anything at all, following a terminal symlink.
func (ar *Archive) EasyFileExists(path string) bool {
	f, err := ar.OpenPath(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
