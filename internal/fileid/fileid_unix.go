//go:build !windows

package fileid

import (
	"os"

	"golang.org/x/sys/unix"
)

// derivePlatform on POSIX-like systems hashes (device, inode) independently.
// fi is accepted for symmetry with other platforms but POSIX identity needs
// a dedicated unix.Stat call to reach the raw Dev/Ino fields.
func derivePlatform(path string, _ os.FileInfo) (ID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return ID{}, err
	}
	return fromDeviceInode(uint64(st.Dev), uint64(st.Ino)), nil
}
