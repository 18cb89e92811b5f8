package vfs

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// OpenFlags are the open(2)-style access and modifier bits.
type OpenFlags int

const (
	O_RDONLY OpenFlags = unix.O_RDONLY
	O_WRONLY OpenFlags = unix.O_WRONLY
	O_RDWR   OpenFlags = unix.O_RDWR
	O_APPEND OpenFlags = unix.O_APPEND
	O_CREAT  OpenFlags = unix.O_CREAT
	O_EXCL   OpenFlags = unix.O_EXCL
	O_TRUNC  OpenFlags = unix.O_TRUNC

	O_ACCMODE OpenFlags = unix.O_ACCMODE
)

func (f OpenFlags) CanRead() bool {
	acc := f & O_ACCMODE
	return acc == O_RDONLY || acc == O_RDWR
}

func (f OpenFlags) CanWrite() bool {
	acc := f & O_ACCMODE
	return acc == O_WRONLY || acc == O_RDWR
}

func (f OpenFlags) IsCreate() bool { return f&O_CREAT != 0 }
func (f OpenFlags) IsExcl() bool   { return f&O_EXCL != 0 }
func (f OpenFlags) IsAppend() bool { return f&O_APPEND != 0 }
func (f OpenFlags) IsTrunc() bool  { return f&O_TRUNC != 0 }

// Whence values for Seek.
const (
	SeekSet = unix.SEEK_SET
	SeekCur = unix.SEEK_CUR
	SeekEnd = unix.SEEK_END
)

// File is one opened instance of a vnode: a shared vnode reference, a
// cursor, and the flags the file was opened with. Several descriptors
// may share one File through dup, so it carries its own count; the
// vnode reference is released when the last holder lets go.
//
// A mutex guards the cursor because reads, writes, and seeks on shared
// descriptors may race.
type File struct {
	mu    sync.Mutex
	count int
	pos   int64
	vn    *Vnode
	flags OpenFlags
}

// NewFile takes ownership of one reference to vn and returns a File
// with a single holder and the cursor at zero.
func NewFile(vn *Vnode, flags OpenFlags) *File {
	return &File{count: 1, vn: vn, flags: flags}
}

// Ref adds a holder.
func (f *File) Ref() *File {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return f
}

// Put drops a holder; the last one releases the vnode reference.
// Dropping below zero panics: it means a descriptor slot was released
// twice.
func (f *File) Put() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count--
	if f.count == 0 {
		f.vn.Put()
		return
	}
	if f.count < 0 {
		panic(fmt.Sprintf("vfs: open file for vnode %d released below zero", f.vn.Ino))
	}
}

// Vnode returns the borrowed vnode behind this file.
func (f *File) Vnode() *Vnode { return f.vn }

// Flags returns the open-mode flags.
func (f *File) Flags() OpenFlags { return f.flags }

// RefCount reports the current number of holders.
func (f *File) RefCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Read dispatches to the vnode's read operation at the current cursor
// and advances the cursor by the bytes transferred.
func (f *File) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ops, ok := f.vn.Ops.(FileOps)
	if !ok {
		return 0, ENOTSUP
	}
	n, err := ops.Read(f.vn, f.pos, b)
	if err != nil {
		return 0, err
	}
	f.pos += int64(n)
	return n, nil
}

// Write dispatches to the vnode's write operation. Append-mode files
// first reposition the cursor to end of file.
func (f *File) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ops, ok := f.vn.Ops.(FileOps)
	if !ok {
		return 0, ENOTSUP
	}
	if f.flags.IsAppend() {
		f.pos = f.vn.Len
	}
	n, err := ops.Write(f.vn, f.pos, b)
	if err != nil {
		return 0, err
	}
	f.pos += int64(n)
	return n, nil
}

// Readdir fills d with the entry at the current cursor and advances the
// cursor by the filesystem-defined unit count it returns. A zero return
// means end of directory; the cursor is not advanced.
func (f *File) Readdir(d *Dirent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ops, ok := f.vn.Ops.(DirOps)
	if !ok {
		return 0, ENOTSUP
	}
	n, err := ops.Readdir(f.vn, f.pos, d)
	if err != nil {
		return 0, err
	}
	f.pos += n
	return n, nil
}

// Seek repositions the cursor. A whence outside the three recognized
// kinds, or any resulting offset below zero, fails with EINVAL and
// leaves the cursor where it was.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pos int64
	switch whence {
	case SeekSet:
		pos = offset
	case SeekCur:
		pos = f.pos + offset
	case SeekEnd:
		pos = f.vn.Len + offset
	default:
		return 0, EINVAL
	}
	if pos < 0 {
		return 0, EINVAL
	}
	f.pos = pos
	return pos, nil
}
