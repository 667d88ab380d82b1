// Package thumbs implements the cache-first, priority-scheduled thumbnail
// render pipeline: content-keyed disk cache, LRU eviction, atomic writes,
// and format-dispatching render workers.
package thumbs

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// SourceKind discriminates how a thumbnail source is rendered.
type SourceKind string

const (
	SourceImage   SourceKind = "Image"
	SourceVideo   SourceKind = "Video"
	SourcePdf     SourceKind = "Pdf"
	SourceUnknown SourceKind = "Unknown"
)

// Source is the tagged variant {Image|Video|Pdf|Unknown}(path) that drives
// format dispatch in the worker pool.
type Source struct {
	Kind SourceKind `json:"kind"`
	Path string     `json:"path"`
}

// Spec is a request to render (or fetch from cache) a thumbnail.
type Spec struct {
	ID       string `json:"id"`
	Source   Source `json:"source"`
	Size     uint32 `json:"size"`
	Priority uint8  `json:"priority"` // 0 lowest, 255 highest
}

// StatusTag discriminates Result.
type StatusTag string

const (
	StatusQueued    StatusTag = "Queued"
	StatusRunning   StatusTag = "Running"
	StatusCompleted StatusTag = "Completed"
	StatusFailed    StatusTag = "Failed"
	StatusCancelled StatusTag = "Cancelled"
)

// Result is what a submission or a finished render reports back.
type Result struct {
	SpecID  string    `json:"spec_id"`
	Status  StatusTag `json:"status"`
	PngPath string    `json:"png_path,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Meta is persisted per generated thumbnail; an entry is valid only while
// the source's mtime/size haven't changed and PngPath still exists on disk.
type Meta struct {
	SourcePath    string `json:"source_path"`
	SourceMtime   int64  `json:"source_mtime"`
	SourceSize    int64  `json:"source_size"`
	Size          uint32 `json:"size"`
	CacheKey      string `json:"cache_key"`
	PngPath       string `json:"png_path"`
	CreatedAt     int64  `json:"created_at"`
	LastAccessed  int64  `json:"last_accessed"`
}

// CacheKey derives the content-addressed key for (path, size):
// SHA-256(path_utf8 || size_u32_le), hex-encoded.
func CacheKey(path string, size uint32) string {
	h := sha256.New()
	h.Write([]byte(path))
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], size)
	h.Write(sizeBuf[:])
	return hex.EncodeToString(h.Sum(nil))
}
