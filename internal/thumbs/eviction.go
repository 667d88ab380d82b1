package thumbs

import "os"

// EvictionPolicy bounds the thumbnail cache's total size and entry count.
type EvictionPolicy struct {
	MaxBytes   int64
	MaxEntries int
}

// DefaultEvictionPolicy mirrors spec.md's stated defaults: 5 GiB / 200,000
// entries.
func DefaultEvictionPolicy() EvictionPolicy {
	return EvictionPolicy{MaxBytes: 5 * 1024 * 1024 * 1024, MaxEntries: 200000}
}

// Evict removes the least-recently-accessed entries (by Meta.LastAccessed)
// until both MaxBytes and MaxEntries are satisfied, deleting each evicted
// PNG from disk and recording its removal in idx.
func Evict(idx *Index, policy EvictionPolicy) error {
	entries := idx.All() // ascending by LastAccessed: oldest first

	var total int64
	sizes := make([]int64, len(entries))
	for i, m := range entries {
		if info, err := os.Stat(m.PngPath); err == nil {
			sizes[i] = info.Size()
			total += sizes[i]
		}
	}

	count := len(entries)
	for i := 0; i < len(entries) && (total > policy.MaxBytes || count > policy.MaxEntries); i++ {
		m := entries[i]
		if err := os.Remove(m.PngPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		if err := idx.Remove(m.CacheKey); err != nil {
			return err
		}
		total -= sizes[i]
		count--
	}
	return nil
}
