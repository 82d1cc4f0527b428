package memory

import (
	"context"
	"sync"
)

// Queue is a FIFO notification channel. It satisfies both shipping.Publisher
// and shipping.Consumer.
type Queue struct {
	mu      sync.Mutex
	pending []string
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Publish(ctx context.Context, shippingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	q.pending = append(q.pending, shippingID)
	q.mu.Unlock()
	return nil
}

// Poll drains everything published so far.
func (q *Queue) Poll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out, nil
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
