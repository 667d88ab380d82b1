// Package index implements the in-memory, multi-indexed file catalog: the
// store, its tokenizer, snapshot+journal persistence, and the boolean/field
// query engine with scoring.
package index

import (
	"path/filepath"
	"strings"

	"lunio/internal/fileid"
)

// FileID is the store's primary key, derived by internal/fileid.
type FileID = fileid.ID

// FileRecord is the indexed entity for one file or directory.
type FileRecord struct {
	ID           FileID `json:"id"`
	Path         string `json:"path"`
	Parent       string `json:"parent"`
	Name         string `json:"name"`
	Ext          string `json:"ext"`
	IsDir        bool   `json:"is_dir"`
	IsSymlink    bool   `json:"is_symlink"`
	Size         int64  `json:"size"`
	ModifiedUnix int64  `json:"modified_unix"`
	Generation   uint64 `json:"generation"`
}

// NewRecord builds a FileRecord from raw metadata, filling Parent/Name/Ext
// from Path the way the index expects them (lowercased, dotless extension).
func NewRecord(id FileID, path string, isDir, isSymlink bool, size, modifiedUnix int64) FileRecord {
	clean := filepath.Clean(path)
	name := filepath.Base(clean)
	ext := ""
	if !isDir {
		if e := filepath.Ext(name); e != "" {
			ext = strings.ToLower(e[1:])
		}
	}
	return FileRecord{
		ID:           id,
		Path:         clean,
		Parent:       filepath.Dir(clean),
		Name:         name,
		Ext:          ext,
		IsDir:        isDir,
		IsSymlink:    isSymlink,
		Size:         size,
		ModifiedUnix: modifiedUnix,
	}
}
