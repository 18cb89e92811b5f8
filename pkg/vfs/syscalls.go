package vfs

import "errors"

// The syscall layer. Every operation validates its arguments, walks the
// namespace as needed, checks type constraints, delegates to the vnode's
// capability table, and releases every reference it acquired exactly
// once on every exit path.

// Open resolves path, creating the final component when O_CREAT is set,
// and installs an open file in the lowest free descriptor slot.
func (p *Proc) Open(path string, flags OpenFlags) (int, error) {
	acc := flags & O_ACCMODE
	if acc != O_RDONLY && acc != O_WRONLY && acc != O_RDWR {
		return 0, EINVAL
	}

	cwd := p.cwdRef()
	vn, created, err := p.vfs.resolve(cwd, path, flags.IsCreate())
	cwd.Put()
	if err != nil {
		return 0, err
	}

	if flags.IsCreate() && flags.IsExcl() && !created {
		vn.Put()
		return 0, EEXIST
	}
	if vn.Mode.IsDir() && flags.CanWrite() {
		vn.Put()
		return 0, EISDIR
	}
	if flags.IsTrunc() && flags.CanWrite() && vn.Mode.IsRegular() {
		tr, ok := vn.Ops.(TruncOps)
		if !ok {
			vn.Put()
			return 0, ENOTSUP
		}
		if err := tr.Truncate(vn, 0); err != nil {
			vn.Put()
			return 0, err
		}
	}

	f := NewFile(vn, flags)
	fd, err := p.fds.Allocate(f)
	if err != nil {
		f.Put()
		return 0, err
	}
	p.vfs.log.Debug("open", "path", path, "fd", fd, "ino", vn.Ino)
	return fd, nil
}

// Read transfers up to len(buf) bytes from the descriptor's cursor.
func (p *Proc) Read(fd int, buf []byte) (int, error) {
	f, err := p.fds.Get(fd)
	if err != nil {
		return 0, err
	}
	defer f.Put()

	if !f.Flags().CanRead() {
		return 0, EBADF
	}
	if f.Vnode().Mode.IsDir() {
		return 0, EISDIR
	}
	return f.Read(buf)
}

// Write transfers up to len(buf) bytes at the descriptor's cursor, or
// at end of file for append-mode descriptors.
func (p *Proc) Write(fd int, buf []byte) (int, error) {
	f, err := p.fds.Get(fd)
	if err != nil {
		return 0, err
	}
	defer f.Put()

	if !f.Flags().CanWrite() {
		return 0, EBADF
	}
	return f.Write(buf)
}

// Close releases the descriptor slot.
func (p *Proc) Close(fd int) error {
	return p.fds.Close(fd)
}

// Dup duplicates fd into the lowest free slot.
func (p *Proc) Dup(fd int) (int, error) {
	return p.fds.Dup(fd)
}

// Dup2 duplicates oldfd onto newfd, closing newfd first if occupied.
func (p *Proc) Dup2(oldfd, newfd int) (int, error) {
	return p.fds.Dup2(oldfd, newfd)
}

// Lseek repositions the descriptor's cursor.
func (p *Proc) Lseek(fd int, offset int64, whence int) (int64, error) {
	f, err := p.fds.Get(fd)
	if err != nil {
		return 0, err
	}
	defer f.Put()
	return f.Seek(offset, whence)
}

// Getdent fills d with the next directory entry. It returns DirentSize
// when an entry was produced and 0 at end of directory.
func (p *Proc) Getdent(fd int, d *Dirent) (int, error) {
	f, err := p.fds.Get(fd)
	if err != nil {
		return 0, err
	}
	defer f.Put()

	if !f.Vnode().Mode.IsDir() {
		return 0, ENOTDIR
	}
	n, err := f.Readdir(d)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return DirentSize, nil
}

// Mknod creates a device special file. Only the two device modes are
// accepted.
func (p *Proc) Mknod(path string, mode Mode, dev DevID) error {
	if mode != ModeChar && mode != ModeBlock {
		return EINVAL
	}

	cwd := p.cwdRef()
	defer cwd.Put()
	dir, name, err := p.vfs.LastDir(cwd, path)
	if err != nil {
		return err
	}
	defer dir.Put()

	if !dir.Mode.IsDir() {
		return ENOTDIR
	}
	if vn, err := p.vfs.Lookup(dir, name); err == nil {
		vn.Put()
		return EEXIST
	} else if !errors.Is(err, ENOENT) {
		return err
	}

	ops, ok := dir.Ops.(DirOps)
	if !ok {
		return ENOTSUP
	}
	return ops.Mknod(dir, name, mode, dev)
}

// Mkdir creates a directory at path.
func (p *Proc) Mkdir(path string) error {
	cwd := p.cwdRef()
	defer cwd.Put()
	dir, name, err := p.vfs.LastDir(cwd, path)
	if err != nil {
		return err
	}
	defer dir.Put()

	if !dir.Mode.IsDir() {
		return ENOTDIR
	}
	if vn, err := p.vfs.Lookup(dir, name); err == nil {
		vn.Put()
		return EEXIST
	} else if !errors.Is(err, ENOENT) {
		return err
	}

	ops, ok := dir.Ops.(DirOps)
	if !ok {
		return ENOTSUP
	}
	return ops.Mkdir(dir, name)
}

// Rmdir removes the directory named by path. "." and ".." are illegal
// final components, with distinct errors.
func (p *Proc) Rmdir(path string) error {
	cwd := p.cwdRef()
	defer cwd.Put()
	dir, name, err := p.vfs.LastDir(cwd, path)
	if err != nil {
		return err
	}
	defer dir.Put()

	if !dir.Mode.IsDir() {
		return ENOTDIR
	}
	switch name {
	case ".":
		return EINVAL
	case "..":
		return ENOTEMPTY
	}

	ops, ok := dir.Ops.(DirOps)
	if !ok {
		return ENOTSUP
	}
	return ops.Rmdir(dir, name)
}

// Unlink removes the non-directory named by path. Unlinking a directory
// is structurally disallowed.
func (p *Proc) Unlink(path string) error {
	cwd := p.cwdRef()
	defer cwd.Put()
	dir, name, err := p.vfs.LastDir(cwd, path)
	if err != nil {
		return err
	}
	defer dir.Put()

	vn, err := p.vfs.Lookup(dir, name)
	if err != nil {
		return err
	}
	defer vn.Put()

	if vn.Mode.IsDir() {
		return EPERM
	}
	ops, ok := dir.Ops.(DirOps)
	if !ok {
		return ENOTSUP
	}
	return ops.Unlink(dir, name)
}

// Link makes to a new name for the object at from. The target name must
// not already exist.
func (p *Proc) Link(from, to string) error {
	cwd := p.cwdRef()
	defer cwd.Put()

	src, err := p.vfs.Resolve(cwd, from, false)
	if err != nil {
		return err
	}
	defer src.Put()

	dir, name, err := p.vfs.LastDir(cwd, to)
	if err != nil {
		return err
	}
	defer dir.Put()

	if !dir.Mode.IsDir() {
		return ENOTDIR
	}
	if vn, err := p.vfs.Lookup(dir, name); err == nil {
		vn.Put()
		return EEXIST
	} else if !errors.Is(err, ENOENT) {
		return err
	}

	ops, ok := dir.Ops.(DirOps)
	if !ok {
		return ENOTSUP
	}
	return ops.Link(src, dir, name)
}

// Rename links newpath to the object at oldpath and then removes
// oldpath. The two steps are not atomic: if the removal fails, both
// names remain linked.
func (p *Proc) Rename(oldpath, newpath string) error {
	if err := p.Link(oldpath, newpath); err != nil {
		return err
	}

	cwd := p.cwdRef()
	vn, err := p.vfs.Resolve(cwd, oldpath, false)
	cwd.Put()
	if err != nil {
		return err
	}
	isDir := vn.Mode.IsDir()
	vn.Put()

	p.vfs.log.Debug("rename", "from", oldpath, "to", newpath)
	if isDir {
		return p.Rmdir(oldpath)
	}
	return p.Unlink(oldpath)
}

// Chdir replaces the process working directory with the directory at
// path, releasing the old reference.
func (p *Proc) Chdir(path string) error {
	cwd := p.cwdRef()
	vn, err := p.vfs.Resolve(cwd, path, false)
	cwd.Put()
	if err != nil {
		return err
	}
	if !vn.Mode.IsDir() {
		vn.Put()
		return ENOTDIR
	}

	p.mu.Lock()
	old := p.cwd
	p.cwd = vn
	p.mu.Unlock()
	old.Put()
	return nil
}

// Stat fills st with the metadata of the object at path.
func (p *Proc) Stat(path string, st *Stat) error {
	cwd := p.cwdRef()
	defer cwd.Put()
	dir, name, err := p.vfs.LastDir(cwd, path)
	if err != nil {
		return err
	}
	defer dir.Put()

	if !dir.Mode.IsDir() {
		return ENOTDIR
	}
	vn, err := p.vfs.Lookup(dir, name)
	if err != nil {
		return err
	}
	defer vn.Put()

	ops, ok := vn.Ops.(StatOps)
	if !ok {
		return ENOTSUP
	}
	return ops.Stat(vn, st)
}
