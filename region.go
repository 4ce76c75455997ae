package damage

import (
	"fmt"
	"image"
)

// TileNumber identifies one tile of a tiled (UDIM) image.
//
// Tile numbers follow the UDIM convention: 1001 is the first tile,
// 1001 + u + 10*v addresses the tile at grid position (u, v).
// Plain single-buffer images use PrimaryTile for everything.
type TileNumber int

// PrimaryTile is the tile number of a non-tiled image's only tile.
const PrimaryTile TileNumber = 1001

// ChangesetID identifies one committed changeset. IDs increase
// monotonically over the lifetime of a Tracker and are never reused.
type ChangesetID int64

// UnknownChangesetID is the id a Watcher starts at before its first
// Collect. A watcher at this id is always behind the reconstruction
// floor, so its first Collect reports NeedFullUpdate.
const UnknownChangesetID ChangesetID = -1

// Region is one damaged area of one tile, reported by Watcher.Next.
// Rect is in pixel space, half-open, clamped to the image bounds, and
// covers whole chunks except at the right and bottom image edges.
type Region struct {
	Tile TileNumber
	Rect image.Rectangle
}

func (r Region) String() string {
	return fmt.Sprintf("tile %d %v", r.Tile, r.Rect)
}

// CollectResult tells a consumer how to react after Watcher.Collect.
type CollectResult int

const (
	// NeedFullUpdate means the watcher fell behind the tracker's history
	// window (or never synced) and must refresh everything it mirrors.
	// No regions are reported.
	NeedFullUpdate CollectResult = iota

	// NoChanges means the watcher is up to date. No regions are reported.
	NoChanges

	// ChangesAvailable means damaged regions are ready to drain
	// through Watcher.Next.
	ChangesAvailable
)

// String returns the collect result name.
func (r CollectResult) String() string {
	switch r {
	case NeedFullUpdate:
		return "NeedFullUpdate"
	case NoChanges:
		return "NoChanges"
	case ChangesAvailable:
		return "ChangesAvailable"
	default:
		return "Unknown"
	}
}
