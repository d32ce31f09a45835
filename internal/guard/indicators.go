package guard

import (
	"sync"
	"sync/atomic"
)

// DocumentTitle holds the title of the page last allowed by the guard.
type DocumentTitle struct {
	mu    sync.RWMutex
	title string
}

func NewDocumentTitle() *DocumentTitle {
	return &DocumentTitle{title: AppTitle}
}

func (d *DocumentTitle) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
}

func (d *DocumentTitle) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

// ProgressBar is the top-of-page navigation progress indicator.
type ProgressBar struct {
	active    atomic.Int32
	completed atomic.Int64
}

func (p *ProgressBar) Start() { p.active.Add(1) }

func (p *ProgressBar) Done() {
	p.active.Add(-1)
	p.completed.Add(1)
}

func (p *ProgressBar) Active() bool { return p.active.Load() > 0 }

func (p *ProgressBar) Completed() int64 { return p.completed.Load() }
