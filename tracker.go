package damage

import (
	"image"
	"slices"
	"sync"
)

// Tracker records which chunks of one image changed, as a history of
// changesets that consumers replay through watchers. It is the
// bookkeeping side only: producers mutate pixels elsewhere and tell the
// tracker what they touched, consumers ask what changed since they last
// looked. The tracker never inspects pixel data.
//
// A Tracker is safe for concurrent use. Producers and consumers may call
// it from different goroutines; one mutex serializes marking, committing
// and collection. Hosts that own an image entity typically embed a
// *Tracker created on first use, keeping its lifetime coupled to the
// image it tracks.
type Tracker struct {
	mu sync.Mutex

	// width and height are the tracked image resolution in pixels.
	width  int
	height int

	// gridW and gridH are the chunk grid dimensions derived from the
	// resolution. Remainder pixels at the right and bottom edges get a
	// final partial chunk.
	gridW int
	gridH int

	// firstChangesetID is the reconstruction floor. history[k] holds the
	// changeset with id firstChangesetID+k+1, so a watcher last synced at
	// id n can be answered incrementally iff n >= firstChangesetID.
	firstChangesetID ChangesetID
	lastChangesetID  ChangesetID
	history          []*changeset

	// current is the open changeset collecting marks until the next
	// commit. Never nil while the tracker is open.
	current *changeset

	// tiles is the sorted set of known tile numbers. Always contains
	// PrimaryTile. Marks on unknown tiles register them implicitly.
	tiles []TileNumber

	closed bool
}

// NewTracker creates a tracker for an image of the given resolution.
// Negative dimensions are treated as zero; marks on an empty grid are
// dropped until the tracker is resized.
func NewTracker(width, height int) *Tracker {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	t := &Tracker{
		width:  width,
		height: height,
		gridW:  chunkSpan(width),
		gridH:  chunkSpan(height),
		tiles:  []TileNumber{PrimaryTile},
	}
	t.current = newChangeset(t.gridW, t.gridH)
	return t
}

// Width returns the tracked image width in pixels.
func (t *Tracker) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// Height returns the tracked image height in pixels.
func (t *Tracker) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.height
}

// Resize updates the tracked resolution. Calling it with the current
// dimensions is a no-op. On a real change the chunk grid is rebuilt; if
// any marks were pending or any history was committed, the change also
// forces a full update, since chunk indices recorded at the old
// resolution are meaningless at the new one.
func (t *Tracker) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if width == t.width && height == t.height {
		return
	}

	// Capture before the grid is rebuilt.
	hadPending := t.current.hasDirty()
	hadHistory := len(t.history) > 0

	t.width = width
	t.height = height
	t.gridW = chunkSpan(width)
	t.gridH = chunkSpan(height)

	if hadPending || hadHistory {
		t.markFullUpdateLocked()
	} else {
		t.current = newChangeset(t.gridW, t.gridH)
	}
	Logger().Debug("damage: resized",
		"width", width, "height", height,
		"gridW", t.gridW, "gridH", t.gridH,
		"fullUpdate", hadPending || hadHistory)
}

// MarkRegion records that the pixels in r changed on the primary tile.
// r is half-open in pixel space. Every chunk it touches is marked in the
// current changeset; nothing is committed until a watcher collects.
func (t *Tracker) MarkRegion(r image.Rectangle) {
	t.MarkTileRegion(PrimaryTile, r)
}

// MarkTileRegion records that the pixels in r changed on the given tile.
// Unknown tiles are registered implicitly. The parts of r outside the
// chunk grid are dropped.
func (t *Tracker) MarkTileRegion(tile TileNumber, r image.Rectangle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		Logger().Warn("damage: mark on closed tracker dropped", "tile", int(tile))
		return
	}

	chunks, ok := chunkRange(r, t.gridW, t.gridH)
	if !ok {
		return
	}
	t.ensureTileLocked(tile)
	t.current.markChunks(tile, chunks)
}

// MarkFullUpdate invalidates everything: history is dropped, pending
// marks are discarded, and the reconstruction floor moves past every
// committed changeset, so each watcher reports NeedFullUpdate on its
// next collect.
func (t *Tracker) MarkFullUpdate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.markFullUpdateLocked()
}

// markFullUpdateLocked collapses all history into an unretrievable gap.
// The id still advances by one so watchers can tell this state change
// from idleness. Caller holds t.mu.
func (t *Tracker) markFullUpdateLocked() {
	t.history = nil
	t.lastChangesetID++
	t.current = newChangeset(t.gridW, t.gridH)
	t.firstChangesetID = t.lastChangesetID
	Logger().Debug("damage: full update", "changesetID", int64(t.lastChangesetID))
}

// AddTile registers a tile number. Adding a tile that is already known
// is a no-op; adding a new one forces a full update, since consumers
// mirror the tile set and must rebuild.
func (t *Tracker) AddTile(tile TileNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.ensureTileLocked(tile) {
		t.markFullUpdateLocked()
	}
}

// RemoveTile unregisters a tile number and forces a full update.
// Removing PrimaryTile or an unknown tile is a no-op.
func (t *Tracker) RemoveTile(tile TileNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || tile == PrimaryTile {
		return
	}
	i, found := slices.BinarySearch(t.tiles, tile)
	if !found {
		return
	}
	t.tiles = slices.Delete(t.tiles, i, i+1)
	t.markFullUpdateLocked()
}

// Tiles returns the known tile numbers in ascending order.
func (t *Tracker) Tiles() []TileNumber {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.tiles)
}

// ensureTileLocked inserts tile into the sorted tile set. Reports whether
// it was newly added. Caller holds t.mu.
func (t *Tracker) ensureTileLocked(tile TileNumber) bool {
	i, found := slices.BinarySearch(t.tiles, tile)
	if found {
		return false
	}
	t.tiles = slices.Insert(t.tiles, i, tile)
	return true
}

// ChangesetCount returns how many committed changesets the tracker
// retains. Frequent collection keeps this short; a full update resets
// it to zero.
func (t *Tracker) ChangesetCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}

// NewWatcher creates a watcher over this tracker. The watcher starts at
// UnknownChangesetID, so its first Collect always reports NeedFullUpdate.
func (t *Tracker) NewWatcher() *Watcher {
	return &Watcher{
		tracker:  t,
		lastSeen: UnknownChangesetID,
	}
}

// Close releases the tracker. Further marks are dropped and collects on
// its watchers return ErrTrackerClosed. Close is idempotent.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.history = nil
	t.current = nil
}

// ensureEmptyCurrentLocked commits the current changeset if it has dirty
// chunks, so collection observes a finalized history. Committing with
// nothing pending is skipped to avoid growing history while idle.
// Caller holds t.mu.
func (t *Tracker) ensureEmptyCurrentLocked() {
	if !t.current.hasDirty() {
		return
	}
	t.history = append(t.history, t.current)
	t.lastChangesetID++
	Logger().Debug("damage: changeset committed",
		"changesetID", int64(t.lastChangesetID),
		"chunks", t.current.dirtyCount(),
		"historyLen", len(t.history))
	t.current = newChangeset(t.gridW, t.gridH)
}

// canReconstructLocked reports whether a watcher last synced at id can
// be answered incrementally from retained history. Caller holds t.mu.
func (t *Tracker) canReconstructLocked(id ChangesetID) bool {
	return id >= t.firstChangesetID
}

// mergeSinceLocked merges every changeset committed after id into one
// fresh changeset at the current grid size. Caller guarantees
// canReconstructLocked(id) and holds t.mu.
func (t *Tracker) mergeSinceLocked(id ChangesetID) *changeset {
	merged := newChangeset(t.gridW, t.gridH)
	for i := int(id - t.firstChangesetID); i < len(t.history); i++ {
		t.history[i].mergeInto(merged)
	}
	return merged
}
