// Package ramfs is an in-memory filesystem behind the vfs capability
// interfaces: directories with "." and ".." entries, regular files, and
// device special files. It exists to back a namespace with no storage
// underneath, which is also what the vfs tests mount.
package ramfs

import (
	"sort"
	"sync"

	"uvfs/pkg/vfs"
)

// FS is one in-memory filesystem instance. A single lock covers the
// whole tree; every capability method and Reclaim take it.
type FS struct {
	mu      sync.Mutex
	root    *vfs.Vnode
	nextIno uint64
}

// New returns a filesystem whose root directory is its own parent.
func New() *FS {
	fs := &FS{nextIno: 1}
	d := &dnode{fs: fs, nlink: 1, entries: make(map[string]*vfs.Vnode)}
	root := vfs.NewVnode(fs, fs.ino(), vfs.ModeDir, d)
	d.entries["."] = root
	d.entries[".."] = root
	fs.root = root
	return fs
}

// ino hands out the next inode number. Callers hold fs.mu, except New.
func (fs *FS) ino() uint64 {
	n := fs.nextIno
	fs.nextIno++
	return n
}

// Root returns an owned reference to the root directory.
func (fs *FS) Root() *vfs.Vnode {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.root.Ref()
}

// Reclaim is called when a vnode's reference count reaches zero. Nodes
// still linked somewhere stay resident so a later lookup can hand them
// out again; unlinked files drop their contents.
func (fs *FS) Reclaim(vn *vfs.Vnode) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	// A concurrent lookup may have resurrected the node.
	if vn.RefCount() > 0 {
		return
	}
	if fn, ok := vn.Ops.(*fnode); ok && fn.nlink == 0 {
		fn.data = nil
		vn.Len = 0
	}
}

// dnode is a directory. entries includes "." and "..".
type dnode struct {
	fs      *FS
	nlink   int
	entries map[string]*vfs.Vnode
}

// fnode is a regular file.
type fnode struct {
	fs    *FS
	nlink int
	data  []byte
}

// devnode is a device special file; the device id lives on the vnode.
type devnode struct {
	fs    *FS
	nlink int
}

func addLink(vn *vfs.Vnode, delta int) {
	switch n := vn.Ops.(type) {
	case *dnode:
		n.nlink += delta
	case *fnode:
		n.nlink += delta
	case *devnode:
		n.nlink += delta
	}
}

var (
	_ vfs.DirOps   = (*dnode)(nil)
	_ vfs.StatOps  = (*dnode)(nil)
	_ vfs.FileOps  = (*fnode)(nil)
	_ vfs.StatOps  = (*fnode)(nil)
	_ vfs.TruncOps = (*fnode)(nil)
	_ vfs.StatOps  = (*devnode)(nil)
)

func (d *dnode) Lookup(dir *vfs.Vnode, name string) (*vfs.Vnode, error) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	vn, ok := d.entries[name]
	if !ok {
		return nil, vfs.ENOENT
	}
	return vn.Ref(), nil
}

func (d *dnode) Create(dir *vfs.Vnode, name string) (*vfs.Vnode, error) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	if _, ok := d.entries[name]; ok {
		return nil, vfs.EEXIST
	}
	fn := &fnode{fs: d.fs, nlink: 1}
	vn := vfs.NewVnode(d.fs, d.fs.ino(), vfs.ModeRegular, fn)
	d.entries[name] = vn
	return vn.Ref(), nil
}

func (d *dnode) Mknod(dir *vfs.Vnode, name string, mode vfs.Mode, dev vfs.DevID) error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	if _, ok := d.entries[name]; ok {
		return vfs.EEXIST
	}
	vn := vfs.NewVnode(d.fs, d.fs.ino(), mode, &devnode{fs: d.fs, nlink: 1})
	vn.Dev = dev
	d.entries[name] = vn
	return nil
}

func (d *dnode) Mkdir(dir *vfs.Vnode, name string) error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	if _, ok := d.entries[name]; ok {
		return vfs.EEXIST
	}
	child := &dnode{fs: d.fs, nlink: 1, entries: make(map[string]*vfs.Vnode)}
	vn := vfs.NewVnode(d.fs, d.fs.ino(), vfs.ModeDir, child)
	child.entries["."] = vn
	child.entries[".."] = dir
	d.entries[name] = vn
	return nil
}

func (d *dnode) Rmdir(dir *vfs.Vnode, name string) error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	vn, ok := d.entries[name]
	if !ok {
		return vfs.ENOENT
	}
	child, ok := vn.Ops.(*dnode)
	if !ok {
		return vfs.ENOTDIR
	}
	if len(child.entries) > 2 {
		return vfs.ENOTEMPTY
	}
	delete(d.entries, name)
	child.nlink--
	if child.nlink == 0 && vn.RefCount() == 0 {
		child.entries = nil
	}
	return nil
}

func (d *dnode) Unlink(dir *vfs.Vnode, name string) error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	vn, ok := d.entries[name]
	if !ok {
		return vfs.ENOENT
	}
	if vn.Mode.IsDir() {
		return vfs.EPERM
	}
	delete(d.entries, name)
	addLink(vn, -1)
	if fn, ok := vn.Ops.(*fnode); ok && fn.nlink == 0 && vn.RefCount() == 0 {
		fn.data = nil
		vn.Len = 0
	}
	return nil
}

func (d *dnode) Link(src *vfs.Vnode, dir *vfs.Vnode, name string) error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	if _, ok := d.entries[name]; ok {
		return vfs.EEXIST
	}
	d.entries[name] = src
	addLink(src, 1)
	return nil
}

func (d *dnode) Readdir(dir *vfs.Vnode, pos int64, ent *vfs.Dirent) (int64, error) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	if pos < 0 {
		return 0, vfs.EINVAL
	}
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	if pos >= int64(len(names)) {
		return 0, nil
	}
	name := names[pos]
	ent.Ino = d.entries[name].Ino
	ent.Off = pos + 1
	ent.Name = name
	return 1, nil
}

func (d *dnode) Stat(vn *vfs.Vnode, st *vfs.Stat) error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	*st = vfs.Stat{
		Ino:   vn.Ino,
		Mode:  vn.Mode,
		Nlink: d.nlink,
		Size:  int64(len(d.entries)) * vfs.DirentSize,
	}
	return nil
}

func (f *fnode) Read(vn *vfs.Vnode, pos int64, b []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if pos < 0 {
		return 0, vfs.EINVAL
	}
	if pos >= int64(len(f.data)) {
		return 0, nil
	}
	return copy(b, f.data[pos:]), nil
}

func (f *fnode) Write(vn *vfs.Vnode, pos int64, b []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if pos < 0 {
		return 0, vfs.EINVAL
	}
	if end := pos + int64(len(b)); end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[pos:], b)
	vn.Len = int64(len(f.data))
	return len(b), nil
}

func (f *fnode) Truncate(vn *vfs.Vnode, size int64) error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if size < 0 {
		return vfs.EINVAL
	}
	if size < int64(len(f.data)) {
		f.data = f.data[:size]
	}
	vn.Len = int64(len(f.data))
	return nil
}

func (f *fnode) Stat(vn *vfs.Vnode, st *vfs.Stat) error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	*st = vfs.Stat{
		Ino:   vn.Ino,
		Mode:  vn.Mode,
		Nlink: f.nlink,
		Size:  int64(len(f.data)),
	}
	return nil
}

func (dv *devnode) Stat(vn *vfs.Vnode, st *vfs.Stat) error {
	dv.fs.mu.Lock()
	defer dv.fs.mu.Unlock()

	*st = vfs.Stat{
		Ino:   vn.Ino,
		Mode:  vn.Mode,
		Nlink: dv.nlink,
		Rdev:  vn.Dev,
	}
	return nil
}
