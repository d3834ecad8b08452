package changefeed

import (
	"context"
	"sync"
)

// MemoryFeed is a single-process feed for tests and local runs without Redis.
type MemoryFeed struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func(Change)
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: map[string]map[int]func(Change){}}
}

// Publish delivers synchronously to every current subscriber.
func (f *MemoryFeed) Publish(_ context.Context, c Change) error {
	if _, err := encode(c); err != nil {
		return err
	}
	f.mu.Lock()
	targets := make([]func(Change), 0, len(f.subs[channel(c.BusinessID, c.Table)]))
	for _, fn := range f.subs[channel(c.BusinessID, c.Table)] {
		targets = append(targets, fn)
	}
	f.mu.Unlock()

	for _, fn := range targets {
		fn(c)
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, businessID, table string, fn func(Change)) (func(), error) {
	key := channel(businessID, table)
	f.mu.Lock()
	id := f.next
	f.next++
	if f.subs[key] == nil {
		f.subs[key] = map[int]func(Change){}
	}
	f.subs[key][id] = fn
	f.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[key], id)
			f.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}
