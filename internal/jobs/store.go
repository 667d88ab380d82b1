package jobs

import (
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var jobCodec = jsoniter.ConfigCompatibleWithStandardLibrary

const persistVersion = 1

// PersistentJob is the on-disk record for one job: its immutable spec plus
// its latest known mutable state, written atomically to jobs/<uuid>.bin
// every time the state changes so a crash never leaves a job half-written.
type PersistentJob struct {
	Version    int     `json:"version"`
	SavedAtUnix int64  `json:"saved_at_unix"`
	Spec       JobSpec `json:"spec"`
	State      State   `json:"state"`
}

// Store persists one file per job under dir/jobs/.
type Store struct {
	mu  sync.Mutex
	dir string
}

// OpenStore ensures dir/jobs exists and returns a handle to it.
func OpenStore(dir string) (*Store, error) {
	jobsDir := filepath.Join(dir, "jobs")
	if err := os.MkdirAll(jobsDir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: jobsDir}, nil
}

func (s *Store) pathFor(id ID) string {
	return filepath.Join(s.dir, id.String()+".bin")
}

// Save atomically writes job's current spec+state to disk via tmp+rename.
func (s *Store) Save(spec JobSpec, state State, savedAtUnix int64) error {
	rec := PersistentJob{Version: persistVersion, SavedAtUnix: savedAtUnix, Spec: spec, State: state}
	data, err := jobCodec.Marshal(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomicJob(s.pathFor(spec.ID), data)
}

// Delete removes a job's persisted record (used once a terminal job ages
// out of retention, not called during normal operation).
func (s *Store) Delete(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.pathFor(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// LoadAll reads every persisted job. Files that fail to decode are skipped
// (logged by the caller) rather than aborting the whole boot sequence —
// one corrupt job record shouldn't block recovery of the rest.
func (s *Store) LoadAll() ([]PersistentJob, []string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, err
	}

	var jobsOut []PersistentJob
	var corrupt []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".bin" {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			corrupt = append(corrupt, path)
			continue
		}
		var rec PersistentJob
		if err := jobCodec.Unmarshal(data, &rec); err != nil {
			corrupt = append(corrupt, path)
			continue
		}
		jobsOut = append(jobsOut, rec)
	}
	return jobsOut, corrupt, nil
}

func writeAtomicJob(path string, data []byte) error {
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
