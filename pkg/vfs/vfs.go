package vfs

import (
	"log/slog"
	"sync"
)

// VFS is one namespace: a root directory plus the path-walking and
// lookup-then-create machinery above a concrete Filesystem.
type VFS struct {
	fs   Filesystem
	root *Vnode
	log  *slog.Logger

	// createMu serializes the lookup-then-maybe-create sequence in
	// Resolve so two concurrent creators cannot both observe absence.
	createMu sync.Mutex
}

// Option configures a VFS.
type Option func(*VFS)

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *VFS) { v.log = l }
}

// New builds a namespace over fs. The VFS holds one reference to the
// root for its lifetime; Shutdown releases it.
func New(fs Filesystem, opts ...Option) *VFS {
	v := &VFS{fs: fs, root: fs.Root(), log: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Root returns an owned reference to the namespace root.
func (v *VFS) Root() *Vnode {
	return v.root.Ref()
}

// Shutdown releases the namespace's root reference. Processes must have
// exited first.
func (v *VFS) Shutdown() {
	v.root.Put()
	v.root = nil
}
