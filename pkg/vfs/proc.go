package vfs

import "sync"

// Proc is the per-process state the syscall layer operates on: a
// current working directory reference and a descriptor table.
type Proc struct {
	vfs *VFS
	fds *FDTable

	mu  sync.Mutex
	cwd *Vnode
}

// NewProc creates a process whose working directory is the namespace
// root and whose descriptor table holds up to maxFiles descriptors
// (DefaultMaxFiles if maxFiles is not positive).
func (v *VFS) NewProc(maxFiles int) *Proc {
	return &Proc{
		vfs: v,
		fds: NewFDTable(maxFiles),
		cwd: v.Root(),
	}
}

// FDTable exposes the process descriptor table.
func (p *Proc) FDTable() *FDTable { return p.fds }

// cwdRef returns an owned reference to the current working directory.
func (p *Proc) cwdRef() *Vnode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cwd.Ref()
}

// Cwd returns an owned reference to the current working directory.
func (p *Proc) Cwd() *Vnode { return p.cwdRef() }

// Exit releases everything the process owns: every occupied descriptor
// slot and the working directory reference. The process must not be
// used afterwards.
func (p *Proc) Exit() {
	p.fds.CloseAll()

	p.mu.Lock()
	cwd := p.cwd
	p.cwd = nil
	p.mu.Unlock()
	if cwd != nil {
		cwd.Put()
	}
}
