package queue

import (
	"sync"
	"time"
)

// PendingReturn is a book return that failed because the loan store was
// unreachable. Replaying a return that actually went through is safe: the
// store answers "already returned" and the item is dropped.
type PendingReturn struct {
	LoanUid     string
	Token       string
	Attempts    int
	MaxAttempts int
	RetryAt     time.Time
}

type RetryQueue struct {
	items []*PendingReturn
	mu    sync.Mutex
}

func NewRetryQueue() *RetryQueue {
	return &RetryQueue{
		items: make([]*PendingReturn, 0),
	}
}

func (q *RetryQueue) Enqueue(item *PendingReturn) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Dequeue removes and returns the first item whose retry time has passed,
// or nil when nothing is due yet.
func (q *RetryQueue) Dequeue() *PendingReturn {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for i, item := range q.items {
		if !item.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item
		}
	}
	return nil
}

// Requeue schedules another attempt with exponentially growing delay.
// It reports false once the item has exhausted its attempts.
func (q *RetryQueue) Requeue(item *PendingReturn, base time.Duration) bool {
	item.Attempts++
	if item.Attempts >= item.MaxAttempts {
		return false
	}
	item.RetryAt = time.Now().Add(base << uint(item.Attempts))
	q.Enqueue(item)
	return true
}

func (q *RetryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
