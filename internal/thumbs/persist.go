package thumbs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	snapshotFile = "thumbs.index"
	journalFile  = "thumbs.journal"
)

// JournalEntry is one mutation appended to thumbs.journal. Exactly one of
// Meta/CacheKey is set, selected by Op.
type JournalEntry struct {
	Op       string `json:"op"` // "insert" | "remove"
	Meta     *Meta  `json:"meta,omitempty"`
	CacheKey string `json:"cache_key,omitempty"`
}

// Index is the in-memory thumbnail metadata table, keyed by cache key, kept
// consistent with its on-disk snapshot+journal pair.
type Index struct {
	mu      sync.RWMutex
	entries map[string]Meta

	root         string
	snapshotPath string
	journalPath  string
	journal      *os.File
}

// OpenIndex loads dir/thumbs.index (if present), replays dir/thumbs.journal
// on top of it, drops entries whose PngPath no longer exists, then re-saves
// a compacted snapshot and truncates the journal (spec §4.8 boot sequence).
func OpenIndex(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	idx := &Index{
		entries:      make(map[string]Meta),
		root:         dir,
		snapshotPath: filepath.Join(dir, snapshotFile),
		journalPath:  filepath.Join(dir, journalFile),
	}

	corrupt := false
	if data, err := os.ReadFile(idx.snapshotPath); err == nil {
		var metas []Meta
		if err := jsonCodec.Unmarshal(data, &metas); err != nil {
			corrupt = true
		} else {
			for _, m := range metas {
				idx.entries[m.CacheKey] = m
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if !corrupt {
		if err := idx.replayJournal(); err != nil {
			corrupt = true
		}
	}
	if corrupt {
		idx.entries = make(map[string]Meta)
		_ = os.Remove(idx.snapshotPath)
		_ = os.Remove(idx.journalPath)
	}

	for key, m := range idx.entries {
		if _, err := os.Stat(m.PngPath); err != nil {
			delete(idx.entries, key)
		}
	}

	f, err := os.OpenFile(idx.journalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	idx.journal = f

	if err := idx.compactLocked(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) replayJournal() error {
	f, err := os.Open(idx.journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(f, lenBuf[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		buf := make([]byte, n)
		if _, err := io.ReadFull(f, buf); err != nil {
			return err
		}
		var entry JournalEntry
		if err := jsonCodec.Unmarshal(buf, &entry); err != nil {
			return err
		}
		switch entry.Op {
		case "insert":
			if entry.Meta != nil {
				idx.entries[entry.Meta.CacheKey] = *entry.Meta
			}
		case "remove":
			delete(idx.entries, entry.CacheKey)
		default:
			return fmt.Errorf("thumbs: unknown journal op %q", entry.Op)
		}
	}
}

func (idx *Index) appendEntry(entry JournalEntry) error {
	data, err := jsonCodec.Marshal(entry)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := idx.journal.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := idx.journal.Write(data); err != nil {
		return err
	}
	return idx.journal.Sync()
}

// Get returns a copy of the metadata for key, if present.
func (idx *Index) Get(key string) (Meta, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	m, ok := idx.entries[key]
	return m, ok
}

// Touch advances last_accessed for key to nowUnix and journals the update.
func (idx *Index) Touch(key string, nowUnix int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	m, ok := idx.entries[key]
	if !ok {
		return nil
	}
	m.LastAccessed = nowUnix
	idx.entries[key] = m
	return idx.appendEntry(JournalEntry{Op: "insert", Meta: &m})
}

// Insert adds or replaces an entry and journals it.
func (idx *Index) Insert(m Meta) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[m.CacheKey] = m
	return idx.appendEntry(JournalEntry{Op: "insert", Meta: &m})
}

// Remove deletes an entry's metadata (not the PNG file itself; callers
// remove the file separately) and journals the removal.
func (idx *Index) Remove(key string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, key)
	return idx.appendEntry(JournalEntry{Op: "remove", CacheKey: key})
}

// All returns a snapshot slice of every entry, sorted by LastAccessed
// ascending (oldest first) — the order eviction scans in.
func (idx *Index) All() []Meta {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Meta, 0, len(idx.entries))
	for _, m := range idx.entries {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessed < out[j].LastAccessed })
	return out
}

func (idx *Index) compactLocked() error {
	metas := make([]Meta, 0, len(idx.entries))
	for _, m := range idx.entries {
		metas = append(metas, m)
	}
	data, err := jsonCodec.Marshal(metas)
	if err != nil {
		return err
	}
	if err := writeAtomic(idx.snapshotPath, data); err != nil {
		return err
	}
	if err := idx.journal.Truncate(0); err != nil {
		return err
	}
	_, err = idx.journal.Seek(0, io.SeekStart)
	return err
}

// Compact re-saves the snapshot and truncates the journal.
func (idx *Index) Compact() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.compactLocked()
}

// Close releases the journal file handle.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.journal.Close()
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
