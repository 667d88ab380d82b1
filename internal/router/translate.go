// Package router dispatches incoming wire.Command messages to the index,
// jobs, thumbnail, and fs-op subsystems, and bridges their internal event
// streams back out to wire.Event broadcasts.
package router

import (
	"lunio/internal/fsops"
	"lunio/internal/index"
	"lunio/internal/jobs"
	"lunio/internal/thumbs"
	"lunio/internal/wire"
)

func conflictToFsops(c wire.ConflictPolicy) fsops.ConflictPolicy {
	switch c {
	case wire.ConflictSkip:
		return fsops.ConflictSkip
	case wire.ConflictRename:
		return fsops.ConflictRename
	case wire.ConflictError:
		return fsops.ConflictError
	default:
		return fsops.ConflictOverwrite
	}
}

func priorityToJobs(p wire.Priority) jobs.Priority {
	switch p {
	case wire.PriorityLow:
		return jobs.PriorityLow
	case wire.PriorityHigh:
		return jobs.PriorityHigh
	case wire.PriorityCritical:
		return jobs.PriorityCritical
	default:
		return jobs.PriorityNormal
	}
}

func priorityToThumbs(p wire.Priority) uint8 {
	switch p {
	case wire.PriorityLow:
		return 64
	case wire.PriorityHigh:
		return 192
	case wire.PriorityCritical:
		return 255
	default:
		return 128
	}
}

func queryFromWire(n wire.QueryNode) index.Query {
	q := index.Query{
		Name:        n.Name,
		Tokens:      n.Tokens,
		Ext:         n.Ext,
		InDir:       n.InDir,
		PathPrefix:  n.PathPrefix,
		SizeLess:    n.SizeLess,
		SizeGreater: n.SizeGreater,
	}
	for _, c := range n.And {
		q.And = append(q.And, queryFromWire(c))
	}
	for _, c := range n.Or {
		q.Or = append(q.Or, queryFromWire(c))
	}
	if n.Not != nil {
		sub := queryFromWire(*n.Not)
		q.Not = &sub
	}
	return q
}

func recordToView(r index.FileRecord) wire.FileRecordView {
	return wire.FileRecordView{
		Path:         r.Path,
		Name:         r.Name,
		Ext:          r.Ext,
		IsDir:        r.IsDir,
		IsSymlink:    r.IsSymlink,
		Size:         r.Size,
		ModifiedUnix: r.ModifiedUnix,
	}
}

func sourceKindFor(path string) thumbs.SourceKind {
	ext := extOf(path)
	switch ext {
	case "jpg", "jpeg", "png", "gif", "bmp", "webp":
		return thumbs.SourceImage
	case "mp4", "mov", "mkv", "avi", "webm":
		return thumbs.SourceVideo
	case "pdf":
		return thumbs.SourcePdf
	default:
		return thumbs.SourceUnknown
	}
}

func extOf(path string) string {
	dot := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			dot = i
			break
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	if dot < 0 {
		return ""
	}
	out := make([]byte, 0, len(path)-dot-1)
	for _, c := range []byte(path[dot+1:]) {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func jobStatusString(s jobs.Status) string { return string(s) }
