package vfs

import (
	"errors"
	"strings"
)

// LastDir walks every component of path except the last and returns an
// owned reference to the containing directory together with the final
// component. The final component is not looked up; it may be empty for a
// path ending in a separator. Absolute paths start at the namespace
// root, relative paths at base, which is only borrowed.
func (v *VFS) LastDir(base *Vnode, path string) (*Vnode, string, error) {
	if len(path) > PathMax {
		return nil, "", ENAMETOOLONG
	}
	if path == "" {
		return nil, "", EINVAL
	}

	dir := base
	if path[0] == '/' {
		dir = v.root
		path = path[1:]
	}
	dir.Ref()

	rest := path
	for rest != "" {
		if !dir.Mode.IsDir() {
			dir.Put()
			return nil, "", ENOTDIR
		}
		i := strings.IndexByte(rest, '/')
		if i < 0 {
			break
		}
		next, err := v.Lookup(dir, rest[:i])
		if err != nil {
			dir.Put()
			return nil, "", err
		}
		dir.Put()
		dir = next
		rest = rest[i+1:]
	}

	if len(rest) > NameMax {
		dir.Put()
		return nil, "", ENAMETOOLONG
	}
	return dir, rest, nil
}

// Resolve walks the whole of path and returns an owned reference to the
// target vnode. With create set, a missing final component is created
// as a regular file in its parent directory.
func (v *VFS) Resolve(base *Vnode, path string, create bool) (*Vnode, error) {
	vn, _, err := v.resolve(base, path, create)
	return vn, err
}

// resolve additionally reports whether the final component was created
// rather than found, which the open path needs for O_EXCL.
func (v *VFS) resolve(base *Vnode, path string, create bool) (*Vnode, bool, error) {
	dir, name, err := v.LastDir(base, path)
	if err != nil {
		return nil, false, err
	}
	defer dir.Put()

	if !dir.Mode.IsDir() {
		return nil, false, ENOTDIR
	}

	if create {
		// Absence check and creation must be one atomic step across
		// concurrent resolutions.
		v.createMu.Lock()
		defer v.createMu.Unlock()
	}

	vn, err := v.Lookup(dir, name)
	if err == nil {
		return vn, false, nil
	}
	if !create || !errors.Is(err, ENOENT) {
		return nil, false, err
	}

	ops, ok := dir.Ops.(DirOps)
	if !ok {
		return nil, false, ENOTSUP
	}
	vn, err = ops.Create(dir, name)
	if err != nil {
		return nil, false, err
	}
	v.log.Debug("created", "path", path, "ino", vn.Ino)
	return vn, true, nil
}
