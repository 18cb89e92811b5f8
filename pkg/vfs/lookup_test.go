package vfs_test

import (
	"strings"
	"testing"

	"uvfs/pkg/ramfs"
	"uvfs/pkg/vfs"

	"github.com/stretchr/testify/require"
)

// newTestNS builds a fresh ramfs-backed namespace with one process.
func newTestNS(t *testing.T) (*vfs.VFS, *vfs.Proc) {
	t.Helper()
	v := newBareNS(t)
	p := v.NewProc(8)
	t.Cleanup(p.Exit)
	return v, p
}

// newBareNS builds a namespace whose process lifecycle the test drives
// itself.
func newBareNS(t *testing.T) *vfs.VFS {
	t.Helper()
	v := vfs.New(ramfs.New())
	t.Cleanup(v.Shutdown)
	return v
}

func TestLookupDotReturnsNewReference(t *testing.T) {
	v, _ := newTestNS(t)

	root := v.Root()
	defer root.Put()
	before := root.RefCount()

	for _, name := range []string{".", ""} {
		vn, err := v.Lookup(root, name)
		require.NoError(t, err)
		require.Same(t, root, vn)
		require.Equal(t, before+1, root.RefCount())
		vn.Put()
		require.Equal(t, before, root.RefCount())
	}
}

func TestLookupOnNonDirectory(t *testing.T) {
	v, _ := newTestNS(t)

	root := v.Root()
	defer root.Put()
	file, err := v.Resolve(root, "/f", true)
	require.NoError(t, err)
	defer file.Put()

	_, err = v.Lookup(file, "x")
	require.ErrorIs(t, err, vfs.ENOTDIR)
}

func TestLookupNameTooLong(t *testing.T) {
	v, _ := newTestNS(t)

	root := v.Root()
	defer root.Put()

	_, err := v.Lookup(root, strings.Repeat("a", vfs.NameMax+1))
	require.ErrorIs(t, err, vfs.ENAMETOOLONG)
}

func TestLookupMissingLeavesCountUnchanged(t *testing.T) {
	v, _ := newTestNS(t)

	root := v.Root()
	defer root.Put()
	before := root.RefCount()

	_, err := v.Lookup(root, "nope")
	require.ErrorIs(t, err, vfs.ENOENT)
	require.Equal(t, before, root.RefCount())
}

func TestLookupWithoutDirOps(t *testing.T) {
	v, _ := newTestNS(t)

	// A directory-mode vnode whose capability table has no directory
	// operations at all.
	bare := vfs.NewVnode(nil, 99, vfs.ModeDir, struct{}{})
	_, err := v.Lookup(bare, "x")
	require.ErrorIs(t, err, vfs.ENOTSUP)
}
