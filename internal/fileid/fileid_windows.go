//go:build windows

package fileid

import (
	"encoding/binary"
	"os"
	"syscall"
)

// derivePlatform on Windows hashes the OS's high-resolution file id
// (volume serial + file index), which survives renames within the volume.
func derivePlatform(path string, _ os.FileInfo) (ID, error) {
	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return ID{}, err
	}
	h, err := syscall.CreateFile(p, 0, syscall.FILE_SHARE_READ|syscall.FILE_SHARE_WRITE|syscall.FILE_SHARE_DELETE,
		nil, syscall.OPEN_EXISTING, syscall.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return fromPath(path), nil
	}
	defer syscall.CloseHandle(h)

	var info syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(h, &info); err != nil {
		return fromPath(path), nil
	}

	idBytes := make([]byte, 12)
	binary.LittleEndian.PutUint32(idBytes[0:4], info.VolumeSerialNumber)
	binary.LittleEndian.PutUint32(idBytes[4:8], info.FileIndexHigh)
	binary.LittleEndian.PutUint32(idBytes[8:12], info.FileIndexLow)
	return fromHighResFileID(idBytes), nil
}
