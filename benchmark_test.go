package damage

import (
	"image"
	"testing"
)

// BenchmarkTracker_MarkRegion benchmarks marking at various image sizes.
func BenchmarkTracker_MarkRegion(b *testing.B) {
	sizes := []struct {
		name   string
		width  int
		height int
	}{
		{"512x512", 512, 512},
		{"1920x1080", 1920, 1080},
		{"4096x4096", 4096, 4096},
	}

	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			tracker := NewTracker(size.width, size.height)
			defer tracker.Close()

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				x := (i * 61) % (size.width - 16)
				y := (i * 37) % (size.height - 16)
				tracker.MarkRegion(image.Rect(x, y, x+16, y+16))
			}
		})
	}
}

// BenchmarkTracker_MarkRegionLarge benchmarks marks spanning many chunks.
func BenchmarkTracker_MarkRegionLarge(b *testing.B) {
	tracker := NewTracker(4096, 4096)
	defer tracker.Close()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tracker.MarkRegion(image.Rect(0, 0, 4096, 4096))
	}
}

// BenchmarkWatcher_Collect benchmarks a full mark-collect-drain cycle.
func BenchmarkWatcher_Collect(b *testing.B) {
	marks := []struct {
		name  string
		rects int
	}{
		{"1rect", 1},
		{"16rects", 16},
		{"256rects", 256},
	}

	for _, m := range marks {
		b.Run(m.name, func(b *testing.B) {
			tracker := NewTracker(4096, 4096)
			defer tracker.Close()
			w := tracker.NewWatcher()
			w.Collect()

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				for r := 0; r < m.rects; r++ {
					x := (r * 257) % 3800
					y := (r * 131) % 3800
					tracker.MarkRegion(image.Rect(x, y, x+32, y+32))
				}
				w.Collect()
				for _, ok := w.Next(); ok; _, ok = w.Next() {
				}
			}
		})
	}
}

// BenchmarkWatcher_CollectNoChanges benchmarks the idle fast path.
func BenchmarkWatcher_CollectNoChanges(b *testing.B) {
	tracker := NewTracker(4096, 4096)
	defer tracker.Close()
	w := tracker.NewWatcher()
	w.Collect()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w.Collect()
	}
}

// BenchmarkTracker_SlowWatcherMerge benchmarks merging a deep history.
func BenchmarkTracker_SlowWatcherMerge(b *testing.B) {
	depths := []struct {
		name    string
		commits int
	}{
		{"4commits", 4},
		{"32commits", 32},
	}

	for _, d := range depths {
		b.Run(d.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				tracker := NewTracker(4096, 4096)
				fast := tracker.NewWatcher()
				slow := tracker.NewWatcher()
				fast.Collect()
				slow.Collect()
				for c := 0; c < d.commits; c++ {
					x := (c * 389) % 3800
					tracker.MarkRegion(image.Rect(x, x, x+16, x+16))
					fast.Collect()
				}
				b.StartTimer()

				slow.Collect()
				for _, ok := slow.Next(); ok; _, ok = slow.Next() {
				}

				b.StopTimer()
				tracker.Close()
				b.StartTimer()
			}
		})
	}
}
