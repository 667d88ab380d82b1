package index

import (
	"sort"
	"sync"
)

type idSet map[FileID]struct{}

func (s idSet) add(id FileID)    { s[id] = struct{}{} }
func (s idSet) remove(id FileID) { delete(s, id) }

// orderedEntry is one (id, key) pair kept in a size- or mtime-sorted slice
// so the query engine can answer range predicates without a full scan.
type orderedEntry struct {
	key int64
	id  FileID
}

// Store is the in-memory, multi-indexed file catalog. All mutation methods
// take the write lock; all reads take the read lock, so callers never
// observe a partially updated record (spec §5, "Index store: one writer at
// a time, many readers").
type Store struct {
	mu sync.RWMutex

	byID   map[FileID]FileRecord
	byPath map[string]FileID

	byName   map[string]idSet
	byExt    map[string]idSet
	byParent map[string]idSet
	byDir    idSet
	byFile   idSet
	byToken  map[string]idSet

	bySize  []orderedEntry
	byMtime []orderedEntry

	deleted idSet
}

func NewStore() *Store {
	return &Store{
		byID:     make(map[FileID]FileRecord),
		byPath:   make(map[string]FileID),
		byName:   make(map[string]idSet),
		byExt:    make(map[string]idSet),
		byParent: make(map[string]idSet),
		byDir:    make(idSet),
		byFile:   make(idSet),
		byToken:  make(map[string]idSet),
		deleted:  make(idSet),
	}
}

// Upsert inserts or replaces the record at record.Path. If a record already
// lives at that path, its secondary index entries are removed first, and
// the new record's Generation is set to the old one's plus one.
func (s *Store) Upsert(record FileRecord) FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oldID, exists := s.byPath[record.Path]; exists {
		old := s.byID[oldID]
		record.Generation = old.Generation + 1
		s.removeFromIndicesLocked(old)
		delete(s.byID, oldID)
	} else {
		record.Generation = 0
	}

	delete(s.deleted, record.ID)

	s.byID[record.ID] = record
	s.byPath[record.Path] = record.ID
	s.addToIndicesLocked(record)

	return record
}

// RemoveByPath deletes the record at path from every index, tombstones its
// id, and returns the removed record (ok=false if nothing was there).
func (s *Store) RemoveByPath(path string) (FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.byPath[path]
	if !exists {
		return FileRecord{}, false
	}
	record := s.byID[id]

	delete(s.byPath, path)
	delete(s.byID, id)
	s.removeFromIndicesLocked(record)
	s.deleted.add(id)

	return record, true
}

func (s *Store) addToIndicesLocked(r FileRecord) {
	addSet(s.byName, r.Name, r.ID)
	if r.Ext != "" {
		addSet(s.byExt, r.Ext, r.ID)
	}
	addSet(s.byParent, r.Parent, r.ID)
	if r.IsDir {
		s.byDir.add(r.ID)
	} else {
		s.byFile.add(r.ID)
	}
	for _, tok := range Tokenize(r.Name) {
		addSet(s.byToken, tok, r.ID)
	}
	s.bySize = insertOrdered(s.bySize, orderedEntry{key: r.Size, id: r.ID})
	s.byMtime = insertOrdered(s.byMtime, orderedEntry{key: r.ModifiedUnix, id: r.ID})
}

func (s *Store) removeFromIndicesLocked(r FileRecord) {
	removeSet(s.byName, r.Name, r.ID)
	if r.Ext != "" {
		removeSet(s.byExt, r.Ext, r.ID)
	}
	removeSet(s.byParent, r.Parent, r.ID)
	s.byDir.remove(r.ID)
	s.byFile.remove(r.ID)
	for _, tok := range Tokenize(r.Name) {
		removeSet(s.byToken, tok, r.ID)
	}
	s.bySize = removeOrdered(s.bySize, orderedEntry{key: r.Size, id: r.ID})
	s.byMtime = removeOrdered(s.byMtime, orderedEntry{key: r.ModifiedUnix, id: r.ID})
}

func addSet(m map[string]idSet, key string, id FileID) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set.add(id)
}

func removeSet(m map[string]idSet, key string, id FileID) {
	set, ok := m[key]
	if !ok {
		return
	}
	set.remove(id)
	if len(set) == 0 {
		delete(m, key)
	}
}

func insertOrdered(s []orderedEntry, e orderedEntry) []orderedEntry {
	i := sort.Search(len(s), func(i int) bool { return s[i].key >= e.key })
	s = append(s, orderedEntry{})
	copy(s[i+1:], s[i:])
	s[i] = e
	return s
}

func removeOrdered(s []orderedEntry, e orderedEntry) []orderedEntry {
	lo := sort.Search(len(s), func(i int) bool { return s[i].key >= e.key })
	for i := lo; i < len(s) && s[i].key == e.key; i++ {
		if s[i].id == e.id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// GetByID returns the record for id.
func (s *Store) GetByID(id FileID) (FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// GetByPath returns the record at path.
func (s *Store) GetByPath(path string) (FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[path]
	if !ok {
		return FileRecord{}, false
	}
	return s.byID[id], true
}

// All returns every live record. The returned slice is a snapshot copy.
func (s *Store) All() []FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FileRecord, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	return out
}

// IsDeleted reports whether id carries a tombstone.
func (s *Store) IsDeleted(id FileID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.deleted[id]
	return ok
}

// Len reports the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
