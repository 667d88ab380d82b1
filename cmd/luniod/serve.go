package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lunio/internal/admin"
	"lunio/internal/bootstrap"
	"lunio/internal/config"
	"lunio/internal/index"
	"lunio/internal/jobs"
	"lunio/internal/registry"
	"lunio/internal/router"
	"lunio/internal/thumbs"
	"lunio/internal/watch"
	"lunio/internal/wire"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the luniod daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runDaemon(cfg)
	},
}

func runDaemon(cfg config.Config) error {
	log, err := newDaemonLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Close()

	log.Info("luniod %s starting, data dir %s", daemonVersion, cfg.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idxSvc, err := index.Open(cfg.DataDir, log, 8)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer idxSvc.Close()

	jobStore, err := jobs.OpenStore(filepath.Join(cfg.DataDir, "data", "jobs"))
	if err != nil {
		return fmt.Errorf("opening job store: %w", err)
	}
	sched := jobs.New(log, jobStore, cfg.Jobs.Workers, cfg.JobsPollInterval(), nowUnix)
	registerJobHandlers(sched, idxSvc)
	if err := sched.Reconcile(); err != nil {
		return fmt.Errorf("reconciling jobs: %w", err)
	}

	caps := bootstrap.Probe(cfg.DataDir)
	renderer := thumbs.NewRenderer(thumbs.ExternalTools{FFmpegPath: caps.FFmpegPath, PdfiumPath: caps.PdfiumPath})
	thumbSvc, err := thumbs.Open(
		cfg.Thumbs.CacheDir, log, renderer,
		thumbs.EvictionPolicy{MaxBytes: cfg.Thumbs.MaxCacheBytes, MaxEntries: cfg.Thumbs.MaxEntries},
		sched.Cancellable(), nowUnix,
	)
	if err != nil {
		return fmt.Errorf("opening thumbnail service: %w", err)
	}
	defer thumbSvc.Close()

	reg := registry.New(log)
	rtr := router.New(log, reg, idxSvc, sched, thumbSvc, jobs.NewCancelRegistry(), nowUnix)

	var adminSrv *admin.Server
	if cfg.Admin.Enabled {
		adminSrv = admin.New(log, cfg.Admin.Addr, idxSvc, sched, reg.ClientCount)
		reg.SetTap(adminSrv.Tail)
	}

	backend, err := watch.NewFSNotifyBackend()
	if err != nil {
		return fmt.Errorf("starting watch backend: %w", err)
	}
	watchSvc := watch.NewService(backend, idxSvc, log, cfg.DebounceDuration(), watch.WithEventHook(func(ev watch.WatchEvent) {
		reg.Broadcast(wire.TopicFileSystem, fileChangeEvent(ev))
	}))
	for _, root := range cfg.Roots {
		if err := watchSvc.AddRoot(root); err != nil {
			log.Warn("serve: failed to watch root %s: %v", root, err)
			continue
		}
		sched.Submit(jobs.JobSpec{
			ID:            jobs.NewID(),
			Kind:          jobs.JobKind{Tag: jobs.KindIndexScan, Target: root},
			Priority:      jobs.PriorityHigh,
			CreatedAtUnix: time.Now().Unix(),
		})
	}

	go sched.Run(ctx)
	go thumbSvc.Run(ctx, cfg.Thumbs.Workers)
	go rtr.RunJobBridge(ctx)
	go rtr.RunThumbBridge(ctx)
	go func() {
		if err := watchSvc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("serve: watch service stopped: %v", err)
		}
	}()

	if adminSrv != nil {
		go func() {
			if err := adminSrv.Serve(ctx); err != nil {
				log.Error("serve: admin server stopped: %v", err)
			}
		}()
	}

	ln, err := listen(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.SocketPath, err)
	}
	defer ln.Close()
	log.Info("serve: accepting connections on %s", cfg.SocketPath)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Info("serve: shutting down")
				return nil
			}
			log.Error("serve: accept error: %v", err)
			continue
		}
		go rtr.ServeConnection(conn)
	}
}

func nowUnix() int64 { return time.Now().Unix() }

func fileChangeEvent(ev watch.WatchEvent) wire.Event {
	var kind wire.FileChangeKind
	var evtType wire.EventType
	switch ev.Kind {
	case watch.Created:
		kind, evtType = wire.FileChangeCreated, wire.EvtFileCreated
	case watch.Modified:
		kind, evtType = wire.FileChangeModified, wire.EvtFileModified
	default:
		kind, evtType = wire.FileChangeDeleted, wire.EvtFileDeleted
	}
	return wire.Event{Type: evtType, FileChange: &wire.FileChangeEvent{Kind: kind, Path: ev.Path}}
}

// listen opens the daemon's local transport socket. On POSIX this is a Unix
// domain socket at SocketPath, removed first if left behind by an unclean
// shutdown; Windows builds use a named pipe (see serve_windows.go).
func listen(socketPath string) (net.Listener, error) {
	return listenUnix(socketPath)
}
