package vfs

// Lookup resolves a single path component against a directory vnode and
// returns an owned reference to the result. "." and the empty component
// resolve to dir itself without consulting the filesystem. On failure no
// reference is returned and the caller keeps its reference to dir.
func (v *VFS) Lookup(dir *Vnode, name string) (*Vnode, error) {
	if !dir.Mode.IsDir() {
		return nil, ENOTDIR
	}
	if len(name) > NameMax {
		return nil, ENAMETOOLONG
	}
	if name == "" || name == "." {
		return dir.Ref(), nil
	}
	ops, ok := dir.Ops.(DirOps)
	if !ok {
		return nil, ENOTSUP
	}
	return ops.Lookup(dir, name)
}
