package apiclient

import (
	"sync"
	"sync/atomic"
)

// Indicator is the global busy signal shown while requests are in flight.
type Indicator interface {
	Show()
	Hide()
}

// LoadingTracker reference counts in-flight requests. The indicator is shown
// when the count leaves zero and hidden when it returns to zero.
type LoadingTracker struct {
	mu        sync.Mutex
	count     int
	indicator Indicator
	metrics   *Metrics
}

func NewLoadingTracker(ind Indicator, m *Metrics) *LoadingTracker {
	return &LoadingTracker{indicator: ind, metrics: m}
}

func (t *LoadingTracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	t.metrics.setInflight(t.count)
	if t.count == 1 && t.indicator != nil {
		t.indicator.Show()
	}
}

func (t *LoadingTracker) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return
	}
	t.count--
	t.metrics.setInflight(t.count)
	if t.count == 0 && t.indicator != nil {
		t.indicator.Hide()
	}
}

func (t *LoadingTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// FlagIndicator records indicator state for GET /console/loading.
type FlagIndicator struct {
	visible atomic.Bool
	shows   atomic.Int64
	hides   atomic.Int64
}

func (f *FlagIndicator) Show() {
	f.visible.Store(true)
	f.shows.Add(1)
}

func (f *FlagIndicator) Hide() {
	f.visible.Store(false)
	f.hides.Add(1)
}

func (f *FlagIndicator) Visible() bool { return f.visible.Load() }

func (f *FlagIndicator) Transitions() (shows, hides int64) {
	return f.shows.Load(), f.hides.Load()
}
