package main

import (
	"context"
	"os"

	"lunio/internal/fsops"
	"lunio/internal/index"
	"lunio/internal/jobs"
)

// registerJobHandlers binds the fs-op and index JobKind tags to their
// executors: filesystem mutations run through fsops, index maintenance
// through the index service. KindThumbnail is not bound here; a job of that
// kind fails with "no handler registered".
func registerJobHandlers(sched *jobs.Scheduler, idxSvc *index.Service) {
	sched.RegisterHandler(jobs.KindCopy, func(ctx context.Context, spec jobs.JobSpec, progress jobs.Progress, cancel *jobs.CancelRegistry) error {
		k := spec.Kind
		jobID := spec.ID.String()
		dest, err := fsops.CopyFile(jobID, cancel, k.From, k.To, fsops.ConflictPolicy(k.Conflict), func(done, total int64) {
			progress(uint64(done), uint64(total))
		})
		if err != nil {
			return err
		}
		if info, statErr := os.Stat(dest); statErr == nil {
			idxSvc.Upsert(dest, info)
		}
		return nil
	})

	sched.RegisterHandler(jobs.KindMove, func(ctx context.Context, spec jobs.JobSpec, progress jobs.Progress, cancel *jobs.CancelRegistry) error {
		k := spec.Kind
		jobID := spec.ID.String()
		dest, err := fsops.MovePath(jobID, cancel, k.From, k.To, fsops.ConflictPolicy(k.Conflict))
		if err != nil {
			return err
		}
		idxSvc.Remove(k.From)
		if info, statErr := os.Stat(dest); statErr == nil {
			idxSvc.Upsert(dest, info)
		}
		return nil
	})

	sched.RegisterHandler(jobs.KindDeleteTree, func(ctx context.Context, spec jobs.JobSpec, progress jobs.Progress, cancel *jobs.CancelRegistry) error {
		k := spec.Kind
		jobID := spec.ID.String()
		if err := fsops.DeleteTree(jobID, cancel, k.Target); err != nil {
			return err
		}
		idxSvc.Remove(k.Target)
		return nil
	})

	sched.RegisterHandler(jobs.KindIndexScan, func(ctx context.Context, spec jobs.JobSpec, progress jobs.Progress, cancel *jobs.CancelRegistry) error {
		count, err := idxSvc.Scan(ctx, spec.Kind.Target)
		if err != nil {
			return err
		}
		progress(uint64(count), uint64(count))
		return nil
	})

	sched.RegisterHandler(jobs.KindRebuildIdx, func(ctx context.Context, spec jobs.JobSpec, progress jobs.Progress, cancel *jobs.CancelRegistry) error {
		if err := idxSvc.Compact(); err != nil {
			return err
		}
		count, err := idxSvc.Scan(ctx, spec.Kind.Target)
		if err != nil {
			return err
		}
		progress(uint64(count), uint64(count))
		return nil
	})
}
