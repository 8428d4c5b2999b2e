package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Keyed hands out one token bucket per key. Buckets that sit idle for long
// enough to be full again are evicted.
type Keyed struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewKeyed allows burst events per key, refilling one every interval.
func NewKeyed(interval time.Duration, burst int) *Keyed {
	if burst < 1 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	idle := interval * time.Duration(burst)
	return &Keyed{
		limiters: cache.New(idle, 2*idle),
		limit:    rate.Every(interval),
		burst:    burst,
		now:      time.Now,
	}
}

func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.limiter(key).AllowN(k.now(), 1)
}

// Reserve takes a token for key when one is available. Calling undo puts
// the token back, so an attempt that failed does not count against key.
func (k *Keyed) Reserve(key string) (undo func(), ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	at := k.now()
	r := k.limiter(key).ReserveN(at, 1)
	if !r.OK() {
		return nil, false
	}
	if r.DelayFrom(at) > 0 {
		r.CancelAt(at)
		return nil, false
	}
	return func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		r.CancelAt(at)
	}, true
}

func (k *Keyed) limiter(key string) *rate.Limiter {
	var l *rate.Limiter
	if v, ok := k.limiters.Get(key); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(k.limit, k.burst)
	}
	k.limiters.SetDefault(key, l)
	return l
}
