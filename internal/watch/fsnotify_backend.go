package watch

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyBackend is the production Backend, wrapping fsnotify's
// non-recursive (per-watched-directory) notifications. Like fsnotify itself,
// it only watches directories explicitly added via Watch; callers add every
// subdirectory they care about (watch.Service does this in AddRoot and on
// first sight of a new directory).
type FSNotifyBackend struct {
	watcher *fsnotify.Watcher
}

func NewFSNotifyBackend() (*FSNotifyBackend, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FSNotifyBackend{watcher: w}, nil
}

func (b *FSNotifyBackend) Watch(path string) error {
	return b.watcher.Add(path)
}

func (b *FSNotifyBackend) Unwatch(path string) error {
	return b.watcher.Remove(path)
}

func (b *FSNotifyBackend) Run(ctx context.Context, out chan<- RawEvent) error {
	defer b.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-b.watcher.Events:
			if !ok {
				return nil
			}
			raw := mapEvent(ev)
			if raw.Kind == RawOther {
				continue
			}
			select {
			case out <- raw:
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				continue
			}
		}
	}
}

func mapEvent(ev fsnotify.Event) RawEvent {
	switch {
	case ev.Has(fsnotify.Create):
		return RawEvent{Kind: RawCreate, Paths: []string{ev.Name}}
	case ev.Has(fsnotify.Write):
		return RawEvent{Kind: RawModify, Paths: []string{ev.Name}}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return RawEvent{Kind: RawDelete, Paths: []string{ev.Name}}
	default:
		return RawEvent{Kind: RawOther, Paths: []string{ev.Name}}
	}
}
