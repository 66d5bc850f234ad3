package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const nextZeroValue = math.MinInt64

// Limiter enforces one or more sliding-window caps ({window: max events})
// independently per category. It is safe for concurrent use.
type Limiter struct {
	running    *int32
	rates      map[time.Duration]int
	categories sync.Map
	retention  time.Duration
	mu         sync.RWMutex
}

type categoryData struct {
	// atomic[0] is the next allowed event (nextZeroValue if unrestricted);
	// atomic[1] is the most recent event's timestamp.
	atomic *[2]int64
	events *ring[int64]
	mu     sync.Mutex
}

type cleanupCategory struct {
	category any
	data     *categoryData
}

var (
	timeNow       = time.Now
	timeNewTicker = time.NewTicker
)

var categoryDataPool = sync.Pool{New: func() any {
	return &categoryData{
		atomic: new([2]int64),
		events: newRing[int64](8),
	}
}}

// NewLimiter constructs a Limiter enforcing every window in rates
// simultaneously. Panics if rates is empty, contains a non-positive
// window or limit, or defines a redundant window (see parseRates).
func NewLimiter(rates map[time.Duration]int) *Limiter {
	retention, ok := parseRates(rates)
	if !ok {
		panic(fmt.Errorf("ratelimit: invalid rates: %v", rates))
	}
	return &Limiter{running: new(int32), rates: rates, retention: retention}
}

// Allow records an event for category at the current time and reports
// whether it was within every configured window. The returned time is
// when the next event would be allowed (the zero Time if another event
// is immediately permitted).
func (x *Limiter) Allow(category any) (time.Time, bool) {
	if x == nil || len(x.rates) == 0 {
		return time.Time{}, true
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	now := timeNow()
	nowUnixNano := now.UnixNano()

	if atomic.CompareAndSwapInt32(x.running, 0, 1) {
		go x.worker()
	}

	var (
		data   *categoryData
		loaded bool
	)
	{
		poolValue := categoryDataPool.Get().(*categoryData)
		*poolValue.atomic = [2]int64{nextZeroValue, nowUnixNano}
		poolValue.mu.Lock()

		var value any
		value, loaded = x.categories.LoadOrStore(category, poolValue)
		if loaded {
			poolValue.mu.Unlock()
			categoryDataPool.Put(poolValue)
			data = value.(*categoryData)
		} else {
			defer poolValue.mu.Unlock()
			data = poolValue
		}
	}

	if next := data.loadNext(); next != nextZeroValue && nowUnixNano < next {
		return time.Unix(0, next), false
	}

	if loaded {
		data.mu.Lock()
		defer data.mu.Unlock()

		if data.atomic[0] != nextZeroValue && nowUnixNano < data.atomic[0] {
			return time.Unix(0, data.atomic[0]), false
		}

		if data.atomic[1] < nowUnixNano {
			data.storeRecent(nowUnixNano)
		}
	}

	data.events.Insert(data.events.Search(nowUnixNano), nowUnixNano)

	remaining := filterEvents(now, x.rates, data.events)
	if remaining <= 0 {
		data.storeNext(nextZeroValue)
		return time.Time{}, true
	}

	next := now.Add(remaining)
	data.storeNext(next.UnixNano())
	return next, true
}

// worker periodically evicts categories that have gone quiet, stopping
// itself once nothing is left to clean up.
func (x *Limiter) worker() {
	var toDelete []cleanupCategory

	ticker := timeNewTicker(time.Duration(math.Max(
		float64(x.retention)*0.5,
		float64(time.Second),
	)))
	defer ticker.Stop()

	for {
		<-ticker.C

		chanceOfStop := true
		x.categories.Range(func(key, value any) bool {
			if data := value.(*categoryData); data.loadRecent() < x.cleanupThreshold() {
				toDelete = append(toDelete, cleanupCategory{key, data})
			} else {
				chanceOfStop = false
			}
			return true
		})

		if len(toDelete) != 0 {
			mustStop := x.cleanup(toDelete, chanceOfStop)
			if mustStop {
				return
			}
			toDelete = toDelete[:0]
		}
	}
}

func (x *Limiter) cleanupThreshold() int64 {
	return timeNow().Add(-x.retention).UnixNano()
}

func (x *Limiter) cleanup(toDelete []cleanupCategory, chanceOfStop bool) (mustStop bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	threshold := x.cleanupThreshold()

	for i, v := range toDelete {
		if v.data.atomic[1] < threshold {
			x.categories.Delete(v.category)
			const maxEventsCap = 1 << 10
			if v.data.events.Cap() <= maxEventsCap {
				v.data.events.RemoveBefore(v.data.events.Len())
				categoryDataPool.Put(v.data)
			}
		} else {
			chanceOfStop = false
		}
		toDelete[i] = cleanupCategory{}
	}

	if chanceOfStop {
		x.categories.Range(func(_, _ any) bool {
			chanceOfStop = false
			return false
		})
		if chanceOfStop {
			*x.running = 0
			return true
		}
	}

	return false
}

func (x *categoryData) loadNext() int64     { return atomic.LoadInt64(&x.atomic[0]) }
func (x *categoryData) storeNext(v int64)   { atomic.StoreInt64(&x.atomic[0], v) }
func (x *categoryData) loadRecent() int64   { return atomic.LoadInt64(&x.atomic[1]) }
func (x *categoryData) storeRecent(v int64) { atomic.StoreInt64(&x.atomic[1], v) }
