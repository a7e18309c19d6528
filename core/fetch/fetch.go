// Package fetch bridges one remote collection endpoint to the collection engine:
// cache-first reads keyed by every effective query parameter, explicit invalidation
// and no automatic retry.
package fetch

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trezcool/masomo-admin/core/apiclient"
	"github.com/trezcool/masomo-admin/core/cache"
	"github.com/trezcool/masomo-admin/core/collection"
)

type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

type (
	// Params are the effective query parameters of one fetch.
	Params map[string]string

	// LoadFunc performs the network request and normalizes the payload.
	LoadFunc func(ctx context.Context, params Params) ([]collection.Record, error)

	Performance struct {
		Source   Source        `json:"source"`
		Duration time.Duration `json:"duration"`
	}

	Result struct {
		Data        []collection.Record `json:"data"`
		Err         *apiclient.Error    `json:"-"`
		Performance Performance         `json:"performance"`
		// Generation identifies the network request that produced Data (0 for cache hits).
		Generation uint64 `json:"generation"`
		// Stale is set when a newer request for the same key was issued while this one
		// was in flight; its data was not written to the cache.
		Stale bool `json:"stale,omitempty"`
	}

	Fetcher struct {
		name  string
		cache *cache.Cache
		load  LoadFunc
		group singleflight.Group
		now   func() time.Time

		mu       sync.Mutex
		latest   map[string]uint64 // newest generation issued per key
		inFlight map[string]int
		waiters  map[string]int     // callers waiting per group key
		flights  map[string]*flight // running loads per group key
		gen      uint64
		trigger  uint64
	}

	flight struct {
		cancel context.CancelFunc
	}
)

func New(name string, c *cache.Cache, load LoadFunc) *Fetcher {
	return &Fetcher{
		name:     name,
		cache:    c,
		load:     load,
		now:      time.Now,
		latest:   make(map[string]uint64),
		inFlight: make(map[string]int),
		waiters:  make(map[string]int),
		flights:  make(map[string]*flight),
	}
}

func (f *Fetcher) Name() string { return f.name }

// Key returns the cache key of params. Without parameters the key is the bare name.
func (f *Fetcher) Key(params Params) string {
	if len(params) == 0 {
		return f.name
	}
	return cache.Key(f.name, params)
}

func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+p[k])
	}
	return strings.Join(parts, "&")
}

// Fetch returns the records for params, from the cache when a fresh entry exists
// unless skipCache is set. Identical concurrent fetches share one request.
func (f *Fetcher) Fetch(ctx context.Context, params Params, skipCache bool) Result {
	start := f.now()
	key := f.Key(params)

	if !skipCache {
		if v, ok := f.cache.Get(key); ok {
			if records, ok := v.([]collection.Record); ok {
				return Result{
					Data:        records,
					Performance: Performance{Source: SourceCache, Duration: f.now().Sub(start)},
				}
			}
		}
	}

	groupKey := f.join(key, skipCache)

	ch := f.group.DoChan(groupKey, func() (interface{}, error) {
		// the load outlives any single caller; it is canceled once every caller left
		loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl := f.start(groupKey, cancel)
		defer f.finish(groupKey, fl)

		gen := f.begin(key)
		defer f.end(key)

		records, err := f.load(loadCtx, params)
		if err != nil {
			return &Result{Generation: gen}, err
		}
		if records == nil {
			records = []collection.Record{}
		}

		res := &Result{Data: records, Generation: gen}
		if f.isLatest(key, gen) {
			f.cache.Set(key, records)
		} else {
			res.Stale = true
		}
		return res, nil
	})

	var (
		res Result
		err error
	)
	select {
	case r := <-ch:
		f.leave(groupKey, false)
		res = *r.Val.(*Result)
		err = r.Err
	case <-ctx.Done():
		f.leave(groupKey, true)
		err = ctx.Err()
	}
	if err != nil {
		res.Data = []collection.Record{}
		res.Err = apiclient.Classify(err)
	}
	res.Performance = Performance{Source: SourceNetwork, Duration: f.now().Sub(start)}
	return res
}

// join registers a caller and returns its singleflight key. The key carries the
// refresh trigger, so a fetch issued after Invalidate never joins an older request,
// and a forced refresh never joins a plain one.
func (f *Fetcher) join(key string, skipCache bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	groupKey := key + "@" + strconv.FormatUint(f.trigger, 10)
	if skipCache {
		groupKey += "#refresh"
	}
	f.waiters[groupKey]++
	return groupKey
}

// leave unregisters a caller. When the last caller of a request gives up, the
// request is canceled and forgotten so that later callers start a new one.
func (f *Fetcher) leave(groupKey string, abandoned bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waiters[groupKey]--; f.waiters[groupKey] > 0 {
		return
	}
	delete(f.waiters, groupKey)
	if !abandoned {
		return
	}
	if fl, ok := f.flights[groupKey]; ok {
		fl.cancel()
		delete(f.flights, groupKey)
	}
	f.group.Forget(groupKey)
}

func (f *Fetcher) start(groupKey string, cancel context.CancelFunc) *flight {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl := &flight{cancel: cancel}
	if f.waiters[groupKey] == 0 {
		// every caller left before the request started
		cancel()
		return fl
	}
	f.flights[groupKey] = fl
	return fl
}

func (f *Fetcher) finish(groupKey string, fl *flight) {
	f.mu.Lock()
	if f.flights[groupKey] == fl {
		delete(f.flights, groupKey)
	}
	f.mu.Unlock()
	fl.cancel()
}

func (f *Fetcher) begin(key string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.latest[key] = f.gen
	f.inFlight[key]++
	return f.gen
}

func (f *Fetcher) end(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight[key]--; f.inFlight[key] <= 0 {
		delete(f.inFlight, key)
	}
}

func (f *Fetcher) isLatest(key string, gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest[key] == gen
}

// Loading reports whether a request for params is in flight.
func (f *Fetcher) Loading(params Params) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight[f.Key(params)] > 0
}

// Invalidate drops every cached entry of this fetcher and bumps the refresh trigger.
// Responses still in flight will not repopulate the cache, and the next fetch does
// not join them.
func (f *Fetcher) Invalidate() uint64 {
	f.cache.Clear(f.name)
	f.cache.ClearPrefix(f.name + ":")

	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.latest {
		f.gen++
		f.latest[key] = f.gen
	}
	f.trigger++
	return f.trigger
}

// RefreshTrigger is bumped by every Invalidate.
func (f *Fetcher) RefreshTrigger() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trigger
}

// Query converts params into url query values, skipping empty values.
func (p Params) Query() url.Values {
	q := make(url.Values, len(p))
	for k, v := range p {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}
