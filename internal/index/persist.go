package index

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	snapshotFile = "index.snapshot"
	journalFile  = "index.journal"
)

// JournalEntry is one mutation appended to index.journal. Exactly one of
// Record/ID is set, selected by Op.
type JournalEntry struct {
	Op     string      `json:"op"` // "upsert" | "delete"
	Record *FileRecord `json:"record,omitempty"`
	ID     *FileID     `json:"id,omitempty"`
}

// Persistence owns the on-disk snapshot+journal pair for one Store,
// appending a journal entry for every mutation and periodically
// compacting by re-saving the snapshot and truncating the journal.
type Persistence struct {
	mu           sync.Mutex
	snapshotPath string
	journalPath  string
	journal      *os.File
}

// OpenPersistence loads dir/index.snapshot (if present), replays
// dir/index.journal on top of it, and leaves the journal open for append.
// If decoding either file fails, the store starts empty and the caller
// should schedule a full rescan (spec §7, IndexCorrupt).
func OpenPersistence(dir string) (*Persistence, *Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	snapshotPath := filepath.Join(dir, snapshotFile)
	journalPath := filepath.Join(dir, journalFile)

	store := NewStore()
	corrupt := false

	if data, err := os.ReadFile(snapshotPath); err == nil {
		var records []FileRecord
		if err := jsonCodec.Unmarshal(data, &records); err != nil {
			corrupt = true
			store = NewStore()
		} else {
			for _, r := range records {
				store.Upsert(r)
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, err
	}

	if !corrupt {
		if err := replayJournal(journalPath, store); err != nil {
			corrupt = true
			store = NewStore()
		}
	}

	if corrupt {
		_ = os.Remove(snapshotPath)
		_ = os.Remove(journalPath)
	}

	f, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	return &Persistence{snapshotPath: snapshotPath, journalPath: journalPath, journal: f}, store, nil
}

func replayJournal(path string, store *Store) error {
	f, err := os.Open(path)
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
		case "upsert":
			if entry.Record != nil {
				store.Upsert(*entry.Record)
			}
		case "delete":
			if entry.ID != nil {
				store.RemoveByPath(pathForID(store, *entry.ID))
			}
		default:
			return fmt.Errorf("index: unknown journal op %q", entry.Op)
		}
	}
}

func pathForID(store *Store, id FileID) string {
	if r, ok := store.GetByID(id); ok {
		return r.Path
	}
	return ""
}

func (p *Persistence) appendEntry(entry JournalEntry) error {
	data, err := jsonCodec.Marshal(entry)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := p.journal.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := p.journal.Write(data); err != nil {
		return err
	}
	return p.journal.Sync()
}

// RecordUpsert appends an Upsert entry to the journal.
func (p *Persistence) RecordUpsert(r FileRecord) error {
	rec := r
	return p.appendEntry(JournalEntry{Op: "upsert", Record: &rec})
}

// RecordDelete appends a Delete entry to the journal.
func (p *Persistence) RecordDelete(id FileID) error {
	return p.appendEntry(JournalEntry{Op: "delete", ID: &id})
}

// Compact re-saves the snapshot from store's current contents (atomically,
// via tmp+rename) and truncates the journal.
func (p *Persistence) Compact(store *Store) error {
	records := store.All()
	data, err := jsonCodec.Marshal(records)
	if err != nil {
		return err
	}

	if err := writeAtomic(p.snapshotPath, data); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.journal.Truncate(0); err != nil {
		return err
	}
	if _, err := p.journal.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return nil
}

// Close releases the journal file handle.
func (p *Persistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.journal.Close()
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partial write.
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
