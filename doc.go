// Package damage tracks which parts of an image changed, so consumers
// can update incrementally instead of reprocessing the full image.
//
// # Overview
//
// damage is a changeset-based dirty-region tracker for raster images in
// the GoGPU ecosystem. An image is divided into 256x256 pixel chunks;
// producers mark the pixel rectangles they mutate, and each consumer
// holds a watcher that reports exactly the chunks damaged since that
// consumer last looked. Typical consumers keep GPU textures, scaled
// previews, or CPU copies in sync (see the gputex and mirror
// sub-packages).
//
// # Quick Start
//
//	import "github.com/gogpu/damage"
//
//	// One tracker per image.
//	tracker := damage.NewTracker(1024, 1024)
//	defer tracker.Close()
//
//	// Each consumer owns a watcher.
//	watcher := tracker.NewWatcher()
//
//	// Producer side: mark what changed.
//	tracker.MarkRegion(image.Rect(10, 10, 300, 200))
//
//	// Consumer side: refresh only what is damaged.
//	switch result, _ := watcher.Collect(); result {
//	case damage.NeedFullUpdate:
//	    refreshEverything()
//	case damage.ChangesAvailable:
//	    for region, ok := watcher.Next(); ok; region, ok = watcher.Next() {
//	        refresh(region.Tile, region.Rect)
//	    }
//	}
//
// # Model
//
// Marks accumulate in an open changeset. When any watcher collects, the
// open changeset is committed to a history window identified by
// monotonically increasing changeset ids. A watcher that falls behind
// the window (or never synced, or survived a resize or full-update
// reset) is told to refresh everything rather than being handed a
// meaningless partial diff.
//
// # Tiled Images
//
// UDIM-style tiled images are supported: marks carry a tile number
// (PrimaryTile for plain images) and reported regions name the tile they
// belong to. Adding or removing tiles invalidates all watchers.
//
// # Concurrency
//
// A Tracker is safe for concurrent use. Watchers are single-consumer:
// each consumer creates and drains its own.
package damage
