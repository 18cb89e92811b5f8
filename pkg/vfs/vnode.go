package vfs

import (
	"fmt"
	"sync/atomic"
)

// Limits of the namespace layer. A single path component may not exceed
// NameMax bytes and a whole path may not exceed PathMax bytes.
const (
	NameMax = 28
	PathMax = 1024
)

// Mode encodes the kind of object a vnode represents.
type Mode uint16

const (
	ModeRegular Mode = 1 + iota
	ModeDir
	ModeChar
	ModeBlock
)

func (m Mode) IsDir() bool     { return m == ModeDir }
func (m Mode) IsRegular() bool { return m == ModeRegular }
func (m Mode) IsDevice() bool  { return m == ModeChar || m == ModeBlock }

func (m Mode) String() string {
	switch m {
	case ModeRegular:
		return "regular"
	case ModeDir:
		return "directory"
	case ModeChar:
		return "chardev"
	case ModeBlock:
		return "blockdev"
	}
	return fmt.Sprintf("mode(%d)", uint16(m))
}

// DevID identifies the device a special file represents.
type DevID uint32

// Filesystem is the concrete implementation backing a namespace. Root
// hands out an owned reference to the root directory; Reclaim is invoked
// whenever a vnode's reference count drops to zero, at which point the
// filesystem may free the node or keep it around for a future lookup.
type Filesystem interface {
	Root() *Vnode
	Reclaim(*Vnode)
}

// NodeOps is the per-vnode capability table. Concrete filesystems attach
// a value implementing whichever of the capability interfaces (DirOps,
// FileOps, StatOps, TruncOps) the node supports; an absent capability
// makes the corresponding operation fail with ENOTSUP.
type NodeOps interface{}

// DirOps is the capability table of a directory vnode. Lookup and Create
// return an owned reference; the remaining operations only mutate the
// directory. Readdir fills one entry at the opaque position pos and
// returns the number of position units consumed, or 0 at end of
// directory.
type DirOps interface {
	Lookup(dir *Vnode, name string) (*Vnode, error)
	Create(dir *Vnode, name string) (*Vnode, error)
	Mknod(dir *Vnode, name string, mode Mode, dev DevID) error
	Mkdir(dir *Vnode, name string) error
	Rmdir(dir *Vnode, name string) error
	Unlink(dir *Vnode, name string) error
	Link(src *Vnode, dir *Vnode, name string) error
	Readdir(dir *Vnode, pos int64, d *Dirent) (int64, error)
}

// FileOps is the capability table of a readable/writable vnode.
type FileOps interface {
	Read(vn *Vnode, pos int64, b []byte) (int, error)
	Write(vn *Vnode, pos int64, b []byte) (int, error)
}

// StatOps reports node metadata.
type StatOps interface {
	Stat(vn *Vnode, st *Stat) error
}

// TruncOps discards file contents beyond size.
type TruncOps interface {
	Truncate(vn *Vnode, size int64) error
}

// Stat is the metadata record filled in by the stat syscall.
type Stat struct {
	Ino   uint64
	Mode  Mode
	Nlink int
	Size  int64
	Rdev  DevID
}

// Dirent is one directory entry as produced by getdent. Off is the
// position of the entry following this one, in the filesystem's opaque
// readdir units.
type Dirent struct {
	Ino  uint64
	Off  int64
	Name string
}

// DirentSize is the fixed record size getdent reports for one entry:
// 8-byte ino, 8-byte off, NameMax name bytes.
const DirentSize = 8 + 8 + NameMax

// Vnode is one file-system object, independent of the concrete
// filesystem backing it. It is shared by every holder (path-walk locals,
// open files, a process cwd) and freed by the owning filesystem once its
// reference count drops to zero.
//
// Len is maintained by the filesystem for regular files; Dev is set for
// device special files.
type Vnode struct {
	Ino  uint64
	Mode Mode
	Len  int64
	Dev  DevID
	Ops  NodeOps

	fs   Filesystem
	refs atomic.Int32
}

// NewVnode returns a vnode with a zero reference count. The filesystem
// takes the first reference explicitly when it hands the node out.
func NewVnode(fs Filesystem, ino uint64, mode Mode, ops NodeOps) *Vnode {
	return &Vnode{Ino: ino, Mode: mode, Ops: ops, fs: fs}
}

// Ref acquires one reference and returns the same vnode. Incrementing
// from zero is legal only while the owning filesystem's own lock pins
// the node, which is how lookups resurrect cached nodes.
func (vn *Vnode) Ref() *Vnode {
	vn.refs.Add(1)
	return vn
}

// Put releases one reference. At zero the owning filesystem is asked to
// reclaim the node. Releasing below zero is a usage error, not a
// runtime condition, and panics.
func (vn *Vnode) Put() {
	switch n := vn.refs.Add(-1); {
	case n == 0:
		vn.fs.Reclaim(vn)
	case n < 0:
		panic(fmt.Sprintf("vfs: vnode %d released below zero", vn.Ino))
	}
}

// RefCount reports the current reference count.
func (vn *Vnode) RefCount() int { return int(vn.refs.Load()) }
