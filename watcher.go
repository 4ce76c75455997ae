package damage

import (
	"errors"
	"slices"
)

var (
	// ErrTrackerClosed is returned by Collect after the tracker was closed.
	ErrTrackerClosed = errors.New("damage: tracker closed")

	// ErrWatcherClosed is returned by Collect after the watcher was closed.
	ErrWatcherClosed = errors.New("damage: watcher closed")
)

// Watcher is one consumer's cursor into a tracker's history. It
// remembers the last changeset id the consumer synchronized at and
// turns everything committed since into drainable regions.
//
// Each consumer owns its watcher. A Watcher is not safe for concurrent
// use; Collect itself locks the tracker, so watchers of the same tracker
// may live on different goroutines.
type Watcher struct {
	tracker  *Tracker
	lastSeen ChangesetID
	pending  []Region
	closed   bool
}

// Collect advances the watcher to the tracker's newest changeset and
// classifies what happened in between:
//
//   - NeedFullUpdate: the watcher never synced or fell behind the
//     retained history. Refresh everything, no regions are reported.
//   - NoChanges: nothing was marked since the last Collect.
//   - ChangesAvailable: drain the damaged regions through Next.
//
// Regions left undrained from a previous Collect are discarded. On a
// non-nil error the result is NeedFullUpdate, so callers that ignore
// errors still err toward refreshing.
func (w *Watcher) Collect() (CollectResult, error) {
	if w.closed {
		return NeedFullUpdate, ErrWatcherClosed
	}
	w.pending = w.pending[:0]

	t := w.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return NeedFullUpdate, ErrTrackerClosed
	}

	t.ensureEmptyCurrentLocked()

	if !t.canReconstructLocked(w.lastSeen) {
		Logger().Debug("damage: watcher needs full update",
			"lastSeen", int64(w.lastSeen),
			"first", int64(t.firstChangesetID),
			"last", int64(t.lastChangesetID))
		w.lastSeen = t.lastChangesetID
		return NeedFullUpdate, nil
	}
	if w.lastSeen == t.lastChangesetID {
		return NoChanges, nil
	}

	merged := t.mergeSinceLocked(w.lastSeen)
	for _, tc := range merged.tiles {
		tile := tc.tile
		tc.chunks.ForEach(func(cx, cy int) {
			w.pending = append(w.pending, Region{
				Tile: tile,
				Rect: chunkBounds(cx, cy, t.width, t.height),
			})
		})
	}
	// Next pops from the end; reversing here makes the drain order
	// ascending tile number, then row-major within each tile.
	slices.Reverse(w.pending)
	w.lastSeen = t.lastChangesetID
	return ChangesAvailable, nil
}

// Next pops the next damaged region collected by the last Collect.
// Returns false when all regions are drained. Regions drain in ascending
// tile number, then row-major order within each tile.
func (w *Watcher) Next() (Region, bool) {
	if len(w.pending) == 0 {
		return Region{}, false
	}
	r := w.pending[len(w.pending)-1]
	w.pending = w.pending[:len(w.pending)-1]
	return r, true
}

// LastSeen returns the changeset id the watcher last synchronized at.
// UnknownChangesetID before the first Collect.
func (w *Watcher) LastSeen() ChangesetID {
	return w.lastSeen
}

// Close releases the watcher. Further Collect calls return
// ErrWatcherClosed. Close is idempotent.
func (w *Watcher) Close() {
	w.closed = true
	w.pending = nil
}
