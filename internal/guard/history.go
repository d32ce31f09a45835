package guard

import (
	"sync"
	"time"
)

const defaultHistoryDepth = 100

type Visit struct {
	Location string    `json:"location"`
	At       time.Time `json:"at"`
}

// History is the console's location bar. It implements session.Navigator.
type History struct {
	mu      sync.RWMutex
	entries []Visit
	depth   int
	nowFunc func() time.Time
}

func NewHistory(start string) *History {
	h := &History{depth: defaultHistoryDepth, nowFunc: time.Now}
	if start != "" {
		h.Navigate(start)
	}
	return h
}

func (h *History) Navigate(location string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.entries); n > 0 && h.entries[n-1].Location == location {
		return
	}
	if len(h.entries) == h.depth {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, Visit{Location: location, At: h.nowFunc().UTC()})
}

func (h *History) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1].Location
}

func (h *History) Entries() []Visit {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Visit, len(h.entries))
	copy(out, h.entries)
	return out
}
