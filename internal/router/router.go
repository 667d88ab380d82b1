package router

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"lunio/internal/index"
	"lunio/internal/jobs"
	"lunio/internal/logger"
	"lunio/internal/registry"
	"lunio/internal/thumbs"
	"lunio/internal/wire"
)

// ServerVersion is reported in the handshake Welcome event.
const ServerVersion = "0.1.0"

// Router owns the subsystems a connected client can drive and dispatches
// each decoded Command to the right one.
type Router struct {
	log        *logger.Logger
	registry   *registry.Registry
	indexSvc   *index.Service
	scheduler  *jobs.Scheduler
	thumbSvc   *thumbs.Service
	cancel     *jobs.CancelRegistry
	nowUnix    func() int64
}

// New builds a Router around already-running subsystems.
func New(log *logger.Logger, reg *registry.Registry, indexSvc *index.Service, scheduler *jobs.Scheduler, thumbSvc *thumbs.Service, cancel *jobs.CancelRegistry, nowUnix func() int64) *Router {
	return &Router{
		log:       log,
		registry:  reg,
		indexSvc:  indexSvc,
		scheduler: scheduler,
		thumbSvc:  thumbSvc,
		cancel:    cancel,
		nowUnix:   nowUnix,
	}
}

// Hello handles the handshake: on a protocol match it registers the session
// and returns a Welcome event; on mismatch it returns Incompatible and the
// caller must close the connection.
func (r *Router) Hello(cmd wire.HelloCommand) (sessionID string, event wire.Event, ok bool) {
	if cmd.Protocol != wire.ProtocolVersion {
		return "", wire.Event{
			Type: wire.EvtIncompatible,
			Incompatible: &wire.IncompatibleEvent{
				Reason:            fmt.Sprintf("server speaks protocol %d, client sent %d", wire.ProtocolVersion, cmd.Protocol),
				SupportedProtocol: wire.ProtocolVersion,
			},
		}, false
	}

	sessionID = uuid.NewString()
	r.registry.Register(sessionID)
	return sessionID, wire.Event{
		Type: wire.EvtWelcome,
		Welcome: &wire.WelcomeEvent{
			SessionID:     sessionID,
			ServerVersion: ServerVersion,
			ServerCapabilities: []wire.ServerCapability{
				wire.ServerCapThumbnails, wire.ServerCapJobs, wire.ServerCapSearch,
			},
		},
	}, true
}

// Dispatch handles one decoded command for an already-registered session.
// Commands with an immediate reply return it via the registry's SendTo;
// others only have side effects (job submission, broadcasts from bridges).
func (r *Router) Dispatch(sessionID string, cmd wire.Command) {
	switch cmd.Type {
	case wire.CmdDisconnect:
		r.registry.Remove(sessionID)

	case wire.CmdSubscribe:
		if cmd.Subscribe != nil {
			for _, t := range cmd.Subscribe.Topics {
				r.registry.Subscribe(sessionID, t)
			}
		}

	case wire.CmdUnsubscribe:
		if cmd.Unsubscribe != nil {
			for _, t := range cmd.Unsubscribe.Topics {
				r.registry.Unsubscribe(sessionID, t)
			}
		}

	case wire.CmdDelete:
		if cmd.Delete != nil {
			r.submitJob(jobs.JobKind{Tag: jobs.KindDeleteTree, Target: cmd.Delete.Path}, jobs.PriorityNormal, nil)
		}

	case wire.CmdCopy:
		if cmd.Copy != nil {
			kind := jobs.JobKind{Tag: jobs.KindCopy, From: cmd.Copy.From, To: cmd.Copy.To, Conflict: string(conflictToFsops(cmd.Copy.Conflict))}
			r.submitJob(kind, priorityToJobs(cmd.Copy.Priority), nil)
		}

	case wire.CmdMove:
		if cmd.Move != nil {
			kind := jobs.JobKind{Tag: jobs.KindMove, From: cmd.Move.From, To: cmd.Move.To, Conflict: string(conflictToFsops(cmd.Move.Conflict))}
			r.submitJob(kind, priorityToJobs(cmd.Move.Priority), nil)
		}

	case wire.CmdOpenFolder:
		if cmd.OpenFolder != nil {
			r.submitJob(jobs.JobKind{Tag: jobs.KindIndexScan, Target: cmd.OpenFolder.Path}, jobs.PriorityNormal, nil)
		}

	case wire.CmdSearch:
		if cmd.Search != nil {
			r.handleSearch(sessionID, *cmd.Search)
		}

	case wire.CmdBrowse:
		if cmd.Browse != nil {
			r.handleBrowse(sessionID, *cmd.Browse)
		}

	case wire.CmdRequestThumbnail:
		if cmd.RequestThumbnail != nil {
			r.handleThumbnail(*cmd.RequestThumbnail)
		}

	case wire.CmdListJobs:
		r.handleListJobs(sessionID)

	case wire.CmdCancelJob:
		if cmd.CancelJob != nil {
			r.handleCancelJob(*cmd.CancelJob)
		}
	}
}

func (r *Router) handleListJobs(sessionID string) {
	summaries := r.scheduler.ListAll()
	out := make([]wire.JobSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, wire.JobSummary{
			JobID:    s.Spec.ID.String(),
			Kind:     string(s.Spec.Kind.Tag),
			Status:   jobStatusString(s.State.Status),
			Priority: s.Spec.Priority.String(),
			Attempts: s.State.Attempts,
			Done:     s.State.Done,
			Total:    s.State.Total,
		})
	}
	r.registry.SendTo(sessionID, wire.Event{Type: wire.EvtJobList, JobList: &wire.JobListEvent{Jobs: out}})
}

func (r *Router) submitJob(kind jobs.JobKind, priority jobs.Priority, deps []jobs.ID) jobs.ID {
	id := jobs.NewID()
	r.scheduler.Submit(jobs.JobSpec{
		ID:            id,
		Kind:          kind,
		Priority:      priority,
		Retry:         jobs.RetryPolicy{MaxRetries: 3, DelayMS: 500},
		Dependencies:  deps,
		CreatedAtUnix: r.nowUnix(),
	})
	return id
}

func (r *Router) handleSearch(sessionID string, cmd wire.SearchCommand) {
	results := index.Evaluate(r.indexSvc.Store(), queryFromWire(cmd.Query))
	if cmd.Limit > 0 && len(results) > cmd.Limit {
		results = results[:cmd.Limit]
	}
	views := make([]wire.FileRecordView, 0, len(results))
	for _, res := range results {
		views = append(views, recordToView(res.Record))
	}
	r.registry.SendTo(sessionID, wire.Event{Type: wire.EvtSearchResults, SearchResults: &wire.SearchResultsEvent{Results: views}})
}

func (r *Router) handleBrowse(sessionID string, cmd wire.BrowseCommand) {
	results := index.Evaluate(r.indexSvc.Store(), index.Query{InDir: cmd.Path})
	views := make([]wire.FileRecordView, 0, len(results))
	for _, res := range results {
		views = append(views, recordToView(res.Record))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	r.registry.SendTo(sessionID, wire.Event{Type: wire.EvtBrowseResults, BrowseResults: &wire.BrowseResultsEvent{Path: cmd.Path, Entries: views}})
}

func (r *Router) handleThumbnail(cmd wire.RequestThumbnailCommand) {
	r.thumbSvc.Submit(thumbs.Spec{
		ID:       uuid.NewString(),
		Source:   thumbs.Source{Kind: sourceKindFor(cmd.Path), Path: cmd.Path},
		Size:     cmd.Size,
		Priority: priorityToThumbs(cmd.Priority),
	})
}

func (r *Router) handleCancelJob(cmd wire.CancelJobCommand) {
	id, err := uuid.Parse(cmd.JobID)
	if err != nil {
		r.log.Warn("router: invalid job id in CancelJob: %s", cmd.JobID)
		return
	}
	r.scheduler.Cancel(id)
}
