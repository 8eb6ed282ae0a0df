package repository

import (
	"context"
	"sync"

	"atkform/internal/model"

	"go.uber.org/zap"
)

type subscriber struct {
	id int
	fn func([]model.Request)
}

// ChangeFeed is the subscriber list an adapter owns. Publish calls every subscriber
// synchronously, in registration order, each with its own copy of the snapshot.
type ChangeFeed struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

// Subscribe registers fn and returns a func that removes it again.
func (f *ChangeFeed) Subscribe(fn func([]model.Request)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscriber{id: id, fn: fn})

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, s := range f.subs {
			if s.id == id {
				f.subs = append(f.subs[:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish dispatches records to all current subscribers.
func (f *ChangeFeed) Publish(records []model.Request) {
	f.mu.Lock()
	subs := make([]subscriber, len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, s := range subs {
		s.fn(model.CloneRequests(records))
	}
}

// Len reports the number of active subscribers.
func (f *ChangeFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// publishFresh re-reads the full set after a mutation and publishes it. A failed re-read does
// not fail the mutation that already happened; it is logged and subscribers keep their last view.
func publishFresh(ctx context.Context, feed *ChangeFeed, list func(context.Context) ([]model.Request, error), logger *zap.Logger, adapter, op string) {
	records, err := list(ctx)
	if err != nil {
		logger.Warn("refresh after mutation failed",
			zap.String("adapter", adapter),
			zap.String("op", op),
			zap.Error(err))
		return
	}
	feed.Publish(records)
}
