package vfs_test

import (
	"testing"

	"uvfs/pkg/vfs"

	"github.com/stretchr/testify/require"
)

// openFile resolves (creating) path and wraps it in a File with one
// holder.
func openFile(t *testing.T, v *vfs.VFS, p *vfs.Proc, path string) *vfs.File {
	t.Helper()
	cwd := p.Cwd()
	defer cwd.Put()
	vn, err := v.Resolve(cwd, path, true)
	require.NoError(t, err)
	return vfs.NewFile(vn, vfs.O_RDWR)
}

func TestFDTableAllocateLowestSlot(t *testing.T) {
	v, p := newTestNS(t)
	tbl := vfs.NewFDTable(4)
	defer tbl.CloseAll()

	f := openFile(t, v, p, "/f")
	fd0, err := tbl.Allocate(f)
	require.NoError(t, err)
	require.Equal(t, 0, fd0)

	fd1, err := tbl.Allocate(openFile(t, v, p, "/g"))
	require.NoError(t, err)
	require.Equal(t, 1, fd1)

	require.NoError(t, tbl.Close(fd0))
	fd, err := tbl.Dup(fd1)
	require.NoError(t, err)
	require.Equal(t, 0, fd, "dup reuses the lowest free slot")
}

func TestFDTableGetBounds(t *testing.T) {
	tbl := vfs.NewFDTable(4)

	for _, fd := range []int{-1, 0, 3, 4, 100} {
		_, err := tbl.Get(fd)
		require.ErrorIs(t, err, vfs.EBADF, "fd %d", fd)
	}
}

func TestFDTableDupRefCounts(t *testing.T) {
	v, p := newTestNS(t)
	tbl := vfs.NewFDTable(4)

	f := openFile(t, v, p, "/f")
	fd, err := tbl.Allocate(f)
	require.NoError(t, err)
	require.Equal(t, 1, f.RefCount())

	dup, err := tbl.Dup(fd)
	require.NoError(t, err)
	require.Equal(t, 2, f.RefCount(), "one reference per occupied slot")

	require.NoError(t, tbl.Close(dup))
	require.Equal(t, 1, f.RefCount())
	require.NoError(t, tbl.Close(fd))
}

func TestFDTableDupExhausted(t *testing.T) {
	v, p := newTestNS(t)
	tbl := vfs.NewFDTable(2)
	defer tbl.CloseAll()

	f := openFile(t, v, p, "/f")
	fd, err := tbl.Allocate(f)
	require.NoError(t, err)
	_, err = tbl.Dup(fd)
	require.NoError(t, err)

	_, err = tbl.Dup(fd)
	require.ErrorIs(t, err, vfs.EMFILE)
	require.Equal(t, 2, f.RefCount(), "failed dup must release its extra reference")
}

func TestFDTableDup2(t *testing.T) {
	v, p := newTestNS(t)
	tbl := vfs.NewFDTable(4)
	defer tbl.CloseAll()

	f := openFile(t, v, p, "/f")
	g := openFile(t, v, p, "/g")
	ffd, err := tbl.Allocate(f)
	require.NoError(t, err)
	gfd, err := tbl.Allocate(g)
	require.NoError(t, err)

	// Self-dup is a no-op.
	fd, err := tbl.Dup2(ffd, ffd)
	require.NoError(t, err)
	require.Equal(t, ffd, fd)
	require.Equal(t, 1, f.RefCount())

	// Duplicating onto an occupied slot closes it first.
	fd, err = tbl.Dup2(ffd, gfd)
	require.NoError(t, err)
	require.Equal(t, gfd, fd)
	require.Equal(t, 2, f.RefCount())
	require.Equal(t, 0, g.RefCount())

	_, err = tbl.Dup2(ffd, 4)
	require.ErrorIs(t, err, vfs.EBADF)
	_, err = tbl.Dup2(3, 0)
	require.ErrorIs(t, err, vfs.EBADF)
}

func TestFDTableCloseAllReturnsVnodeRefs(t *testing.T) {
	v, p := newTestNS(t)
	tbl := vfs.NewFDTable(8)

	cwd := p.Cwd()
	vn, err := v.Resolve(cwd, "/f", true)
	cwd.Put()
	require.NoError(t, err)
	baseline := vn.RefCount() // our own handle

	f := vfs.NewFile(vn.Ref(), vfs.O_RDONLY)
	fd, err := tbl.Allocate(f)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := tbl.Dup(fd)
		require.NoError(t, err)
	}
	require.Equal(t, 4, f.RefCount())

	tbl.CloseAll()
	require.Equal(t, 0, f.RefCount())
	require.Equal(t, baseline, vn.RefCount(), "close must shed exactly the open file's vnode reference")
	vn.Put()
}
