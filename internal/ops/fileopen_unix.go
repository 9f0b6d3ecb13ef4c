//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/memebox/internal/errors"
)

// openFileNoFollow opens a backup file for writing and refuses a symlink as
// the last path component. Parent directories are checked by ValidatePath.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return openNoFollow(path, flag, perm, "write to")
}

// openFileNoFollowRead opens a backup file for reading with the same symlink
// rule. A missing file is FILE_NOT_FOUND.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := openNoFollow(path, syscall.O_RDONLY, 0, "read from")
	if stderrors.Is(err, syscall.ENOENT) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}

func openNoFollow(path string, flag int, perm os.FileMode, verb string) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if stderrors.Is(err, syscall.ELOOP) {
		return nil, errors.NewInvalidRequest("cannot " + verb + " symlink")
	}
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
