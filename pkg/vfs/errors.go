package vfs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// The syscall layer reports failures as plain errno sentinels, matched
// with errors.Is. Nothing in this layer wraps or recovers; every error
// surfaces to the caller unchanged.
var (
	EBADF        error = unix.EBADF
	EISDIR       error = unix.EISDIR
	ENOTDIR      error = unix.ENOTDIR
	ENOENT       error = unix.ENOENT
	ENAMETOOLONG error = unix.ENAMETOOLONG
	EEXIST       error = unix.EEXIST
	EINVAL       error = unix.EINVAL
	ENOTEMPTY    error = unix.ENOTEMPTY
	EPERM        error = unix.EPERM
	EMFILE       error = unix.EMFILE
	ENOTSUP      error = unix.ENOTSUP
)

// S_ISDIR-style predicates live on Mode; see vnode.go.

// Errno converts an error from this layer into the negative-integer
// convention used by syscall entry shims: 0 for nil, -errno for a known
// errno, -EINVAL otherwise.
func Errno(err error) int {
	if err == nil {
		return 0
	}
	var no unix.Errno
	if errors.As(err, &no) {
		return -int(no)
	}
	return -int(unix.EINVAL)
}
