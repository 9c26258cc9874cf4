// Package geoqueue serializes geocoding work: one lookup at a time, globally,
// no matter how many call sites enqueue. The persistent cache is consulted
// first; only real network lookups pass through the throttle.
package geoqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KennyGael/Hazard-Atlas/internal/store"
	"github.com/KennyGael/Hazard-Atlas/pkg/geocode"
)

// Callback receives the outcome of a lookup. A nil coord with a nil error
// means the geocoder found no match for the address.
type Callback func(coord *geocode.Coord, err error)

type item struct {
	address string
	cb      Callback
}

// Queue processes geocode lookups one at a time from a single worker
// goroutine. The worker exits when the queue drains and is restarted by the
// next Enqueue, so an idle queue costs nothing.
type Queue struct {
	client  geocode.Client
	cache   store.Store
	limiter *rate.Limiter

	mu      sync.Mutex
	pending []item
	running bool
}

// New creates a Queue. minInterval is the minimum spacing between network
// lookups (cache hits are delivered immediately and do not consume throttle
// budget).
func New(client geocode.Client, cache store.Store, minInterval time.Duration) *Queue {
	if minInterval <= 0 {
		minInterval = 1100 * time.Millisecond
	}
	return &Queue{
		client:  client,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Enqueue adds an address to the queue. The callback fires from the worker
// goroutine once the lookup completes; enqueuing is safe from any goroutine.
func (q *Queue) Enqueue(address string, cb Callback) {
	q.mu.Lock()
	q.pending = append(q.pending, item{address: address, cb: cb})
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

// Lookup is a synchronous wrapper around Enqueue for request handlers.
func (q *Queue) Lookup(ctx context.Context, address string) (*geocode.Coord, error) {
	type outcome struct {
		coord *geocode.Coord
		err   error
	}
	ch := make(chan outcome, 1)
	q.Enqueue(address, func(coord *geocode.Coord, err error) {
		ch <- outcome{coord: coord, err: err}
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		return out.coord, out.err
	}
}

// Pending reports how many lookups are queued; used by status surfaces.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.process(next)
	}
}

func (q *Queue) process(it item) {
	ctx := context.Background()

	coord, found, err := q.cache.Get(ctx, it.address)
	if err != nil {
		zap.L().Warn("geocode cache read failed, falling through to lookup",
			zap.String("address", it.address),
			zap.Error(err),
		)
	}
	if err == nil && found {
		it.cb(coord, nil)
		return
	}

	if err := q.limiter.Wait(ctx); err != nil {
		it.cb(nil, err)
		return
	}

	coord, err = q.client.Geocode(ctx, it.address)
	if err != nil {
		zap.L().Warn("geocode lookup failed",
			zap.String("address", it.address),
			zap.Error(err),
		)
		it.cb(nil, err)
		return
	}

	// Cache the outcome, explicit misses included.
	if putErr := q.cache.Put(ctx, it.address, coord); putErr != nil {
		zap.L().Error("geocode cache write failed",
			zap.String("address", it.address),
			zap.Error(putErr),
		)
	}

	it.cb(coord, nil)
}
