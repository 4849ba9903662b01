package dispatcher

import (
	"container/heap"
	"context"
	"time"

	"github.com/goliatone/go-dispatch"
	"github.com/goliatone/go-dispatch/policy"
)

// queueItem is one queued command plus its scheduling bookkeeping.
type queueItem struct {
	desc       dispatch.Descriptor
	pol        policy.ExecutionPolicy
	enqueuedAt time.Time
	seq        uint64
	index      int

	// set when a worker picks the item up
	ctx    context.Context
	cancel context.CancelFunc
}

// commandQueue is a priority heap ordered by priority descending, then
// submission order ascending, which keeps FIFO within identical priority
// and within a thread scope.
type commandQueue struct {
	items []*queueItem
}

func newCommandQueue() *commandQueue {
	return &commandQueue{}
}

func (q *commandQueue) Len() int { return len(q.items) }

func (q *commandQueue) Less(i, j int) bool {
	if q.items[i].desc.Priority != q.items[j].desc.Priority {
		return q.items[i].desc.Priority > q.items[j].desc.Priority
	}
	return q.items[i].seq < q.items[j].seq
}

func (q *commandQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *commandQueue) Push(x any) {
	it := x.(*queueItem)
	it.index = len(q.items)
	q.items = append(q.items, it)
}

func (q *commandQueue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	q.items = old[:n-1]
	return it
}

// popReady removes and returns the highest-priority item whose scope the
// ready callback accepts. Skipped items are pushed back, so commands behind
// a locked scope keep their position relative to same-scope peers.
func (q *commandQueue) popReady(ready func(scope string) bool) *queueItem {
	var skipped []*queueItem
	var found *queueItem
	for q.Len() > 0 {
		it := heap.Pop(q).(*queueItem)
		if ready(it.desc.ThreadScope) {
			found = it
			break
		}
		skipped = append(skipped, it)
	}
	for _, it := range skipped {
		heap.Push(q, it)
	}
	return found
}

// remove drops an item still sitting in the queue. Returns false when the
// item already left it.
func (q *commandQueue) remove(it *queueItem) bool {
	if it == nil || it.index < 0 || it.index >= len(q.items) || q.items[it.index] != it {
		return false
	}
	heap.Remove(q, it.index)
	return true
}
