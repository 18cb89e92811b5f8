package vfs_test

import (
	"strings"
	"sync"
	"testing"

	"uvfs/pkg/vfs"

	"github.com/stretchr/testify/require"
)

func TestLastDirSplitsParentAndName(t *testing.T) {
	v, p := newTestNS(t)
	require.NoError(t, p.Mkdir("/a"))
	require.NoError(t, p.Mkdir("/a/b"))

	cwd := p.Cwd()
	defer cwd.Put()

	dir, name, err := v.LastDir(cwd, "/a/b/c")
	require.NoError(t, err)
	require.Equal(t, "c", name)

	b, err := v.Resolve(cwd, "/a/b", false)
	require.NoError(t, err)
	require.Same(t, b, dir)
	b.Put()
	dir.Put()
}

func TestLastDirRelativeUsesBase(t *testing.T) {
	v, p := newTestNS(t)
	require.NoError(t, p.Mkdir("/a"))
	require.NoError(t, p.Chdir("/a"))

	cwd := p.Cwd()
	defer cwd.Put()

	dir, name, err := v.LastDir(cwd, "x")
	require.NoError(t, err)
	require.Equal(t, "x", name)
	require.Same(t, cwd, dir)
	dir.Put()
}

func TestLastDirTrailingSeparator(t *testing.T) {
	v, p := newTestNS(t)
	require.NoError(t, p.Mkdir("/a"))

	cwd := p.Cwd()
	defer cwd.Put()

	dir, name, err := v.LastDir(cwd, "/a/")
	require.NoError(t, err)
	require.Equal(t, "", name)
	require.True(t, dir.Mode.IsDir())
	dir.Put()
}

func TestLastDirErrors(t *testing.T) {
	v, p := newTestNS(t)
	require.NoError(t, p.Mkdir("/d"))
	fd, err := p.Open("/f", vfs.O_WRONLY|vfs.O_CREAT)
	require.NoError(t, err)
	require.NoError(t, p.Close(fd))

	cwd := p.Cwd()
	defer cwd.Put()

	_, _, err = v.LastDir(cwd, "")
	require.ErrorIs(t, err, vfs.EINVAL)

	_, _, err = v.LastDir(cwd, "/"+strings.Repeat("a", vfs.PathMax))
	require.ErrorIs(t, err, vfs.ENAMETOOLONG)

	_, _, err = v.LastDir(cwd, "/"+strings.Repeat("a", vfs.NameMax+1)+"/x")
	require.ErrorIs(t, err, vfs.ENAMETOOLONG)

	_, _, err = v.LastDir(cwd, "/"+strings.Repeat("a", vfs.NameMax+1))
	require.ErrorIs(t, err, vfs.ENAMETOOLONG)

	// A regular file used as an intermediate component.
	_, _, err = v.LastDir(cwd, "/f/x")
	require.ErrorIs(t, err, vfs.ENOTDIR)

	// A missing intermediate component.
	_, _, err = v.LastDir(cwd, "/ghost/x")
	require.ErrorIs(t, err, vfs.ENOENT)
}

func TestLastDirReleasesOnError(t *testing.T) {
	v, p := newTestNS(t)
	require.NoError(t, p.Mkdir("/a"))

	root := v.Root()
	defer root.Put()
	before := root.RefCount()

	_, _, err := v.LastDir(root, "/a/ghost/x")
	require.ErrorIs(t, err, vfs.ENOENT)
	require.Equal(t, before, root.RefCount())
}

func TestResolveCreatesOnAbsence(t *testing.T) {
	v, p := newTestNS(t)

	cwd := p.Cwd()
	defer cwd.Put()

	_, err := v.Resolve(cwd, "/new", false)
	require.ErrorIs(t, err, vfs.ENOENT)

	vn, err := v.Resolve(cwd, "/new", true)
	require.NoError(t, err)
	require.True(t, vn.Mode.IsRegular())
	ino := vn.Ino
	vn.Put()

	// A second resolution finds the same node instead of creating.
	vn, err = v.Resolve(cwd, "/new", true)
	require.NoError(t, err)
	require.Equal(t, ino, vn.Ino)
	vn.Put()
}

func TestResolveCreateIsSerialized(t *testing.T) {
	v, p := newTestNS(t)

	cwd := p.Cwd()
	defer cwd.Put()

	const workers = 8
	inos := make([]uint64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vn, err := v.Resolve(cwd, "/shared", true)
			if err != nil {
				return
			}
			inos[i] = vn.Ino
			vn.Put()
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		require.Equal(t, inos[0], inos[i], "two creators observed absence")
	}
}

func TestResolveRoot(t *testing.T) {
	v, p := newTestNS(t)

	cwd := p.Cwd()
	defer cwd.Put()

	root := v.Root()
	defer root.Put()

	vn, err := v.Resolve(cwd, "/", false)
	require.NoError(t, err)
	require.Same(t, root, vn)
	vn.Put()
}
