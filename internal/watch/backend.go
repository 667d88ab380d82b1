// Package watch turns OS filesystem change notifications into a debounced,
// normalized WatchEvent stream that internal/index ingests.
package watch

import "context"

// RawEventKind is the OS-level change kind a Backend reports before the
// pump stage normalizes and debounces it.
type RawEventKind int

const (
	RawCreate RawEventKind = iota
	RawModify
	RawDelete
	RawOther
)

// RawEvent is what a Backend emits. Only Create/Modify/Delete are mapped
// onward; Other is dropped by the pump. Paths holds every path the
// underlying notification bundled together; only the first is used.
type RawEvent struct {
	Kind  RawEventKind
	Paths []string
}

// Backend is the capability set a watcher implementation must provide: add
// a root, remove one, and run the event pump until ctx is cancelled. This
// is a plain interface rather than an inheritance hierarchy (spec §9,
// "Dynamic dispatch").
type Backend interface {
	Watch(path string) error
	Unwatch(path string) error
	Run(ctx context.Context, out chan<- RawEvent) error
}
