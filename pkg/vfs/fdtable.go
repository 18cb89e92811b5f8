package vfs

import "sync"

// DefaultMaxFiles is the descriptor-table capacity used when a process
// is created without an explicit limit.
const DefaultMaxFiles = 32

// FDTable maps small non-negative descriptors onto open files. The
// capacity is fixed at construction; a descriptor is valid exactly when
// it lies in [0, capacity) and its slot is occupied. Every occupied slot
// owns exactly one File reference.
type FDTable struct {
	mu    sync.Mutex
	files []*File
}

func NewFDTable(capacity int) *FDTable {
	if capacity <= 0 {
		capacity = DefaultMaxFiles
	}
	return &FDTable{files: make([]*File, capacity)}
}

// Cap returns the table capacity.
func (t *FDTable) Cap() int { return len(t.files) }

// Get returns the file behind fd with an extra reference the caller
// must release.
func (t *FDTable) Get(fd int) (*File, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if fd < 0 || fd >= len(t.files) || t.files[fd] == nil {
		return nil, EBADF
	}
	return t.files[fd].Ref(), nil
}

// Allocate installs f in the lowest free slot, taking ownership of one
// reference. With no free slot it fails with EMFILE and f is untouched.
func (t *FDTable) Allocate(f *File) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for fd, slot := range t.files {
		if slot == nil {
			t.files[fd] = f
			return fd, nil
		}
	}
	return 0, EMFILE
}

// Close releases the slot's reference and clears it.
func (t *FDTable) Close(fd int) error {
	t.mu.Lock()
	if fd < 0 || fd >= len(t.files) || t.files[fd] == nil {
		t.mu.Unlock()
		return EBADF
	}
	f := t.files[fd]
	t.files[fd] = nil
	t.mu.Unlock()

	f.Put()
	return nil
}

// Dup installs a second descriptor for the file behind oldfd in the
// lowest free slot.
func (t *FDTable) Dup(oldfd int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if oldfd < 0 || oldfd >= len(t.files) || t.files[oldfd] == nil {
		return 0, EBADF
	}
	f := t.files[oldfd].Ref()
	for fd, slot := range t.files {
		if slot == nil {
			t.files[fd] = f
			return fd, nil
		}
	}
	f.Put()
	return 0, EMFILE
}

// Dup2 makes newfd refer to the file behind oldfd, closing newfd first
// if it was occupied. Duplicating a descriptor onto itself is a no-op.
func (t *FDTable) Dup2(oldfd, newfd int) (int, error) {
	t.mu.Lock()
	if oldfd < 0 || oldfd >= len(t.files) || t.files[oldfd] == nil ||
		newfd < 0 || newfd >= len(t.files) {
		t.mu.Unlock()
		return 0, EBADF
	}
	if newfd == oldfd {
		t.mu.Unlock()
		return newfd, nil
	}
	closed := t.files[newfd]
	t.files[newfd] = t.files[oldfd].Ref()
	t.mu.Unlock()

	if closed != nil {
		closed.Put()
	}
	return newfd, nil
}

// CloseAll releases every occupied slot.
func (t *FDTable) CloseAll() {
	t.mu.Lock()
	open := make([]*File, 0, len(t.files))
	for fd, f := range t.files {
		if f != nil {
			open = append(open, f)
			t.files[fd] = nil
		}
	}
	t.mu.Unlock()

	for _, f := range open {
		f.Put()
	}
}
