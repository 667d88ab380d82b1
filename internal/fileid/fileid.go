// Package fileid derives the 128-bit stable identity used to key index
// records across renames, keyed by volume+inode where the platform exposes
// one.
package fileid

import (
	"encoding/binary"
	"os"

	"github.com/cespare/xxhash"
)

// ID is the 128-bit stable identifier of a file. Equality implies "same
// file, same volume" for as long as the volume's device/inode numbers are
// stable, which excludes most removable/network filesystems across remounts.
type ID [16]byte

// IsZero reports whether id is the zero value (never a valid derived id).
func (id ID) IsZero() bool {
	return id == ID{}
}

var (
	seedWindowsHigh = []byte("lunio-fileid-windows-high")
	seedWindowsLow  = []byte("lunio-fileid-windows-low")
	seedPathHigh    = []byte("lunio-fileid-path-high")
	seedPathLow     = []byte("lunio-fileid-path-low")
)

// Derive computes the FileId for path, using fi for already-stat'd metadata
// when the caller has it (avoids a second syscall). If fi is nil, path is
// stat'd internally.
func Derive(path string, fi os.FileInfo) (ID, error) {
	if fi == nil {
		var err error
		fi, err = os.Stat(path)
		if err != nil {
			return ID{}, err
		}
	}
	return derivePlatform(path, fi)
}

// fromPath is the fallback used when the Windows file-id query fails: both
// halves are independent xxhash passes over the path with distinct seed
// prefixes, so the two halves don't degenerate into the same 64 bits
// repeated.
func fromPath(path string) ID {
	var id ID
	binary.BigEndian.PutUint64(id[:8], xxhash.Sum64(append(append([]byte{}, seedPathHigh...), path...)))
	binary.BigEndian.PutUint64(id[8:], xxhash.Sum64(append(append([]byte{}, seedPathLow...), path...)))
	return id
}

// fromDeviceInode builds the POSIX form: high 8 bytes are the hash of the
// device number, low 8 bytes are the hash of the inode number, each hashed
// independently so a collision in one half doesn't mask the other.
func fromDeviceInode(dev, ino uint64) ID {
	var id ID
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], dev)
	binary.BigEndian.PutUint64(id[:8], xxhash.Sum64(buf[:]))
	binary.LittleEndian.PutUint64(buf[:], ino)
	binary.BigEndian.PutUint64(id[8:], xxhash.Sum64(buf[:]))
	return id
}

// fromHighResFileID mirrors the POSIX construction for platforms exposing a
// single high-resolution file-id blob instead of separate device/inode
// numbers: two independent hash passes over the same bytes with distinct
// seeds stand in for the two halves.
func fromHighResFileID(idBytes []byte) ID {
	var id ID
	binary.BigEndian.PutUint64(id[:8], xxhash.Sum64(append(append([]byte{}, seedWindowsHigh...), idBytes...)))
	binary.BigEndian.PutUint64(id[8:], xxhash.Sum64(append(append([]byte{}, seedWindowsLow...), idBytes...)))
	return id
}
