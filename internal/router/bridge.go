package router

import (
	"context"

	"lunio/internal/jobs"
	"lunio/internal/thumbs"
	"lunio/internal/wire"
)

// RunJobBridge drains scheduler job events and republishes them as
// wire.Event broadcasts on the Jobs topic until ctx is cancelled.
func (r *Router) RunJobBridge(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.scheduler.Events():
			if !ok {
				return
			}
			r.registry.Broadcast(wire.TopicJobs, jobEventToWire(ev))
		}
	}
}

func jobEventToWire(ev jobs.Event) wire.Event {
	jobID := ev.JobID.String()
	switch ev.Tag {
	case jobs.EventStarted, jobs.EventCompleted:
		status := jobStatusString(jobs.StatusRunning)
		if ev.Tag == jobs.EventCompleted {
			status = jobStatusString(jobs.StatusCompleted)
		}
		return wire.Event{Type: wire.EvtJobUpdate, JobUpdate: &wire.JobUpdateEvent{JobID: jobID, Status: status, Done: ev.Done, Total: ev.Total}}
	case jobs.EventProgress:
		return wire.Event{Type: wire.EvtJobProgress, JobProgress: &wire.JobProgressEvent{JobID: jobID, Done: ev.Done, Total: ev.Total}}
	case jobs.EventFailed:
		return wire.Event{Type: wire.EvtJobFailed, JobFailed: &wire.JobFailedEvent{JobID: jobID, Reason: ev.Reason}}
	default:
		status := jobStatusString(jobs.StatusQueued)
		if ev.Tag == jobs.EventCancelled {
			status = jobStatusString(jobs.StatusCancelled)
		}
		return wire.Event{Type: wire.EvtJobUpdate, JobUpdate: &wire.JobUpdateEvent{JobID: jobID, Status: status}}
	}
}

// RunThumbBridge drains thumbnail results and republishes them as
// wire.Event broadcasts on the Thumbnails topic. Cancelled results are
// dropped per spec §4.9.
func (r *Router) RunThumbBridge(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-r.thumbSvc.Results():
			if !ok {
				return
			}
			if ev, emit := thumbResultToWire(res); emit {
				r.registry.Broadcast(wire.TopicThumbnails, ev)
			}
		}
	}
}

func thumbResultToWire(res thumbs.Result) (wire.Event, bool) {
	switch res.Status {
	case thumbs.StatusQueued, thumbs.StatusRunning:
		return wire.Event{Type: wire.EvtThumbStarted, ThumbStarted: &wire.ThumbStartedEvent{}}, true
	case thumbs.StatusCompleted:
		return wire.Event{Type: wire.EvtThumbReady, ThumbReady: &wire.ThumbReadyEvent{ThumbPath: res.PngPath}}, true
	case thumbs.StatusFailed:
		return wire.Event{Type: wire.EvtThumbFailed, ThumbFailed: &wire.ThumbFailedEvent{Reason: res.Reason}}, true
	default: // Cancelled
		return wire.Event{}, false
	}
}
