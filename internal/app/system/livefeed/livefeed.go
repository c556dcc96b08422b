// Package livefeed merges several live project queries into one
// continuously updated, deduplicated result set.
//
// A viewer's visible-project list is the union of three independent live
// queries (ownership, membership, role). Each query is a Feed delivering
// keyed upsert/remove events; Merge folds them into a single map keyed by
// project ID and re-emits the full snapshot to the caller on every change.
//
// Eviction is explicit: the merge tracks which feeds currently assert each
// key and drops the document only when no feed asserts it anymore. A
// project delivered by two feeds therefore survives dropping out of one of
// them, and disappears as soon as the last asserting feed removes it.
package livefeed

import (
	"context"
	"sort"
	"sync"

	"github.com/atelieropen/obratrack/internal/domain/models"
)

// EventType says whether a feed asserts or retracts a key.
type EventType int

const (
	// Upsert asserts the key with a fresh copy of the document.
	Upsert EventType = iota
	// Remove retracts the key; the document no longer matches the feed's
	// predicate (or was deleted).
	Remove
)

// Event is one delivery from a feed.
type Event struct {
	Type EventType
	Key  string
	Doc  models.Project
}

// Feed is one live query. Run blocks until ctx is cancelled, invoking
// onEvent for each delivery and onError for failures. Failures must not
// stop the other feeds; a feed may keep running (or return) after
// reporting an error.
type Feed interface {
	Name() string
	Run(ctx context.Context, onEvent func(Event), onError func(error))
}

type mergeEntry struct {
	doc        models.Project
	assertedBy map[int]struct{} // feed index -> asserting
}

// Merge opens every feed and pushes a deduplicated snapshot to onChange
// after each delivery. Per-feed failures go to onError (which may be nil)
// tagged with the feed's name and never interrupt the other feeds.
//
// The returned cancel tears down all feeds; once it returns, no further
// onChange or onError invocations occur. Cancel is idempotent.
func Merge(onChange func([]models.Project), onError func(feed string, err error), feeds ...Feed) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())

	m := &merger{
		onChange: onChange,
		onError:  onError,
		entries:  make(map[string]*mergeEntry),
	}

	for i, f := range feeds {
		go f.Run(ctx, m.eventFn(i), m.errorFn(f.Name()))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			m.mu.Lock()
			m.closed = true
			m.mu.Unlock()
		})
	}
}

type merger struct {
	mu       sync.Mutex
	closed   bool
	entries  map[string]*mergeEntry
	onChange func([]models.Project)
	onError  func(feed string, err error)
}

func (m *merger) eventFn(feedIdx int) func(Event) {
	return func(ev Event) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return
		}

		switch ev.Type {
		case Upsert:
			e := m.entries[ev.Key]
			if e == nil {
				e = &mergeEntry{assertedBy: make(map[int]struct{})}
				m.entries[ev.Key] = e
			}
			// Last writer wins per key, whichever feed delivered it.
			e.doc = ev.Doc
			e.assertedBy[feedIdx] = struct{}{}
		case Remove:
			e := m.entries[ev.Key]
			if e == nil {
				return
			}
			delete(e.assertedBy, feedIdx)
			if len(e.assertedBy) == 0 {
				delete(m.entries, ev.Key)
			}
			// A partial retraction keeps the entry; the snapshot
			// below is still emitted.
		}

		m.onChange(m.snapshotLocked())
	}
}

func (m *merger) errorFn(name string) func(error) {
	return func(err error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed || m.onError == nil {
			return
		}
		m.onError(name, err)
	}
}

// snapshotLocked builds the emitted list. Order is by key so consumers get
// a stable sequence; the store imposes no ordering beyond that.
func (m *merger) snapshotLocked() []models.Project {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.Project, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.entries[k].doc)
	}
	return out
}
