package fsops

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/shirou/gopsutil/v4/disk"
)

const copyBufferSize = 128 * 1024

// Canceller is the cooperative-cancellation checkpoint every fs op polls
// before each write and at every loop boundary. internal/jobs.CancelRegistry
// satisfies this.
type Canceller interface {
	IsCancelled(jobID string) bool
}

func checkCancelled(jobID string, c Canceller) error {
	if c != nil && c.IsCancelled(jobID) {
		return ErrCancelled
	}
	return nil
}

// ProgressFunc reports (done, total) bytes copied so far.
type ProgressFunc func(done, total int64)

func noopProgress(int64, int64) {}

// CopyFile copies src to dest (resolved through policy), streaming in
// 128 KiB chunks and reporting progress after each. A cancellation observed
// mid-copy removes the partially written destination.
func CopyFile(jobID string, c Canceller, src, dest string, policy ConflictPolicy, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = noopProgress
	}
	if err := checkCancelled(jobID, c); err != nil {
		return "", newErr("copy_file", src, err)
	}

	r, err := resolve(policy, dest)
	if err != nil {
		return "", err
	}
	if r.skip {
		return r.path, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", newErr("copy_file", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", newErr("copy_file", src, err)
	}
	total := info.Size()

	if err := checkDiskSpace(filepath.Dir(r.path), total); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return "", newErr("copy_file", r.path, err)
	}
	out, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", newErr("copy_file", r.path, err)
	}

	buf := make([]byte, copyBufferSize)
	var done int64
	for {
		if err := checkCancelled(jobID, c); err != nil {
			out.Close()
			os.Remove(r.path)
			return "", newErr("copy_file", r.path, err)
		}

		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(r.path)
				return "", newErr("copy_file", r.path, werr)
			}
			done += int64(n)
			progress(done, total)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			os.Remove(r.path)
			return "", newErr("copy_file", src, rerr)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(r.path)
		return "", newErr("copy_file", r.path, err)
	}
	return r.path, nil
}

// checkDiskSpace ensures the volume backing dir has at least needed bytes
// free, consulting gopsutil's disk usage for the containing mount point.
func checkDiskSpace(dir string, needed int64) error {
	usage, err := disk.Usage(dir)
	if err != nil {
		// Can't determine free space (e.g. path doesn't exist yet); let the
		// actual write surface any real ENOSPC instead of blocking on this.
		return nil
	}
	if int64(usage.Free) < needed {
		return newErr("copy_file", dir, syscallENOSPC{})
	}
	return nil
}

// CopyTree performs an iterative depth-first copy of src into dest,
// mirroring directories and streaming files through CopyFile with no-op
// progress.
func CopyTree(jobID string, c Canceller, src, dest string, policy ConflictPolicy) error {
	type item struct{ src, dest string }
	stack := []item{{src, dest}}

	for len(stack) > 0 {
		if err := checkCancelled(jobID, c); err != nil {
			return newErr("copy_tree", src, err)
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := os.Lstat(cur.src)
		if err != nil {
			return newErr("copy_tree", cur.src, err)
		}

		if info.IsDir() {
			if err := os.MkdirAll(cur.dest, info.Mode().Perm()); err != nil {
				return newErr("copy_tree", cur.dest, err)
			}
			entries, err := os.ReadDir(cur.src)
			if err != nil {
				return newErr("copy_tree", cur.src, err)
			}
			for _, e := range entries {
				stack = append(stack, item{filepath.Join(cur.src, e.Name()), filepath.Join(cur.dest, e.Name())})
			}
			continue
		}

		if _, err := CopyFile(jobID, c, cur.src, cur.dest, policy, nil); err != nil {
			return err
		}
	}
	return nil
}

// MovePath tries an atomic rename first, falling back to copy-then-delete
// when rename fails (typically a cross-device move).
func MovePath(jobID string, c Canceller, src, dest string, policy ConflictPolicy) (string, error) {
	if err := checkCancelled(jobID, c); err != nil {
		return "", newErr("move_path", src, err)
	}

	r, err := resolve(policy, dest)
	if err != nil {
		return "", err
	}
	if r.skip {
		return r.path, nil
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return "", newErr("move_path", r.path, err)
	}

	if err := os.Rename(src, r.path); err == nil {
		return r.path, nil
	}

	info, err := os.Lstat(src)
	if err != nil {
		return "", newErr("move_path", src, err)
	}
	if info.IsDir() {
		if err := CopyTree(jobID, c, src, r.path, policy); err != nil {
			return "", err
		}
	} else {
		if _, err := CopyFile(jobID, c, src, r.path, policy, nil); err != nil {
			return "", err
		}
	}
	if err := DeleteTree(jobID, c, src); err != nil {
		return "", err
	}
	return r.path, nil
}

// CreateDir recursively creates path.
func CreateDir(jobID string, c Canceller, path string) error {
	if err := checkCancelled(jobID, c); err != nil {
		return newErr("create_dir", path, err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return newErr("create_dir", path, err)
	}
	return nil
}

// DeleteTree removes files and symlinks eagerly during a DFS walk, queues
// directories for post-order deletion, then removes directories deepest
// first so a directory is never removed while it still has children.
func DeleteTree(jobID string, c Canceller, root string) error {
	info, err := os.Lstat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return newErr("delete_tree", root, err)
	}
	if !info.IsDir() {
		if err := checkCancelled(jobID, c); err != nil {
			return newErr("delete_tree", root, err)
		}
		if err := os.Remove(root); err != nil {
			return newErr("delete_tree", root, err)
		}
		return nil
	}

	var dirs []string
	var walk func(path string) error
	walk = func(path string) error {
		if err := checkCancelled(jobID, c); err != nil {
			return newErr("delete_tree", path, err)
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return newErr("delete_tree", path, err)
		}
		for _, e := range entries {
			child := filepath.Join(path, e.Name())
			if e.IsDir() && e.Type()&os.ModeSymlink == 0 {
				if err := walk(child); err != nil {
					return err
				}
				continue
			}
			if err := checkCancelled(jobID, c); err != nil {
				return newErr("delete_tree", child, err)
			}
			if err := os.Remove(child); err != nil && !os.IsNotExist(err) {
				return newErr("delete_tree", child, err)
			}
		}
		dirs = append(dirs, path)
		return nil
	}
	if err := walk(root); err != nil {
		return err
	}

	// Deepest-first: longer paths are deeper, so sort descending by length.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		if err := checkCancelled(jobID, c); err != nil {
			return newErr("delete_tree", d, err)
		}
		if err := os.Remove(d); err != nil && !os.IsNotExist(err) {
			return newErr("delete_tree", d, err)
		}
	}
	return nil
}

type syscallENOSPC struct{}

func (syscallENOSPC) Error() string { return "no space left on device" }
