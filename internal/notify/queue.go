// Package notify holds the transient notifications ("toasts") surfaced to the
// operator after API calls and session changes.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const defaultCapacity = 50

// Queue keeps the most recent toasts until they are drained. When full, the
// oldest toast is dropped.
type Queue struct {
	log     *slog.Logger
	max     int
	nowFunc func() time.Time

	mu    sync.Mutex
	items []Toast
}

func NewQueue(log *slog.Logger, capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue{log: log, max: capacity, nowFunc: time.Now}
}

func (q *Queue) Success(message string) { q.push(LevelSuccess, message) }
func (q *Queue) Info(message string)    { q.push(LevelInfo, message) }
func (q *Queue) Error(message string)   { q.push(LevelError, message) }

func (q *Queue) push(level Level, message string) {
	if q == nil || message == "" {
		return
	}
	if q.log != nil {
		q.log.Info("notification", "level", string(level), "message", message)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.max {
		q.items = q.items[1:]
	}
	q.items = append(q.items, Toast{Level: level, Message: message, At: q.nowFunc().UTC()})
}

// Drain returns pending toasts, oldest first, and empties the queue.
func (q *Queue) Drain() []Toast {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		return []Toast{}
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
