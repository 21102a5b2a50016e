package mimic

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	tls_client "github.com/bogdanfinn/tls-client"

	"github.com/sqdshguy/mimic/internal/singleflight"
)

// cachedClient is an immutable, shareable handle to one constructed
// transport client. The cache holds one reference; every in-flight request
// that obtained the handle holds another. Eviction drops only the cache's
// reference — the garbage collector keeps the handle valid for any holder
// that acquired it before eviction.
type cachedClient struct {
	key  clientKey
	http tls_client.HttpClient
}

// buildFunc constructs a transport client for one configuration.
type buildFunc func() (tls_client.HttpClient, error)

// clientCache is a bounded, concurrency-safe map from connection
// configuration to a shared client handle with least-recently-used
// eviction.
//
// The key→handle mapping is sharded so lookups for distinct keys never
// contend on one lock. The recency order is a single mutex-guarded slice:
// per-touch work is bounded by the capacity and stays off the read path.
type clientCache struct {
	shards    []*cacheShard
	numShards int
	capacity  int

	// orderMu guards order, the keys from least- to most-recently-touched
	// with no duplicates. At rest its key set equals the union of the
	// shard maps' key sets.
	orderMu sync.Mutex
	order   []clientKey

	// builds coalesces concurrent first-time constructions per key when
	// build coalescing is enabled; nil otherwise.
	builds *singleflight.Group

	metrics *MetricsCollector
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[clientKey]*cachedClient
}

func newClientCache(capacity int, coalesce bool, metrics *MetricsCollector) *clientCache {
	numShards := 16
	shards := make([]*cacheShard, numShards)
	for i := range shards {
		shards[i] = &cacheShard{
			store: make(map[clientKey]*cachedClient),
		}
	}
	cc := &clientCache{
		shards:    shards,
		numShards: numShards,
		capacity:  capacity,
		metrics:   metrics,
	}
	if coalesce {
		cc.builds = singleflight.New()
	}
	return cc
}

func (cc *clientCache) shard(key clientKey) *cacheShard {
	hash := fnv.New32a()
	hash.Write([]byte(key.emulation))
	hash.Write([]byte{0})
	hash.Write([]byte(key.proxy))
	hash.Write([]byte{0})
	hash.Write([]byte(strconv.Itoa(key.timeoutBucket)))
	return cc.shards[hash.Sum32()%uint32(cc.numShards)]
}

// getOrBuild returns the cached handle for key, constructing and caching
// one via build on a miss. Every return path counts as a touch, moving key
// to the most-recently-used position. A failed build leaves no entry, so
// the next call for the same key retries construction.
//
// Without build coalescing, concurrent first-time calls for one key may
// each construct; the last stored handle wins for future lookups and every
// returned handle stays valid for its holder. That race is accepted: the
// cost is a briefly duplicated client, never a handle built for a
// different configuration.
func (cc *clientCache) getOrBuild(key clientKey, build buildFunc) (*cachedClient, error) {
	shard := cc.shard(key)

	shard.mu.RLock()
	entry, ok := shard.store[key]
	shard.mu.RUnlock()
	if ok {
		cc.metrics.RecordClientCacheHit(string(key.emulation))
		cc.touch(key)
		return entry, nil
	}

	cc.metrics.RecordClientCacheMiss(string(key.emulation))

	if cc.builds != nil {
		v, err := cc.builds.Do(key.String(), func() (interface{}, error) {
			return cc.buildAndStore(key, shard, build)
		})
		if err != nil {
			return nil, err
		}
		entry := v.(*cachedClient)
		cc.touch(key)
		return entry, nil
	}

	entry, err := cc.buildAndStore(key, shard, build)
	if err != nil {
		return nil, err
	}
	cc.touch(key)
	return entry, nil
}

func (cc *clientCache) buildAndStore(key clientKey, shard *cacheShard, build buildFunc) (*cachedClient, error) {
	// Re-check under the singleflight owner: a racing caller may have
	// stored the entry between our miss and the coalesced build.
	shard.mu.RLock()
	entry, ok := shard.store[key]
	shard.mu.RUnlock()
	if ok {
		return entry, nil
	}

	httpClient, err := build()
	if err != nil {
		return nil, err
	}

	entry = &cachedClient{key: key, http: httpClient}
	shard.mu.Lock()
	shard.store[key] = entry
	shard.mu.Unlock()
	return entry, nil
}

// touch records key as most-recently-used, removing any prior occurrence,
// then evicts least-recently-touched keys while the cache is over
// capacity. Eviction removes the map entry and the recency record
// together; it never invalidates handles already shared out.
func (cc *clientCache) touch(key clientKey) {
	cc.orderMu.Lock()
	defer cc.orderMu.Unlock()

	for i, existing := range cc.order {
		if existing == key {
			cc.order = append(cc.order[:i], cc.order[i+1:]...)
			break
		}
	}
	cc.order = append(cc.order, key)

	for len(cc.order) > cc.capacity {
		oldest := cc.order[0]
		cc.order = cc.order[1:]

		shard := cc.shard(oldest)
		shard.mu.Lock()
		delete(shard.store, oldest)
		shard.mu.Unlock()

		cc.metrics.RecordClientCacheEviction(string(oldest.emulation))
	}

	cc.metrics.RecordClientCacheSize(len(cc.order))
}

// len reports the number of cached configurations.
func (cc *clientCache) len() int {
	cc.orderMu.Lock()
	defer cc.orderMu.Unlock()
	return len(cc.order)
}

// contains reports whether key currently has a cache entry.
func (cc *clientCache) contains(key clientKey) bool {
	shard := cc.shard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	_, ok := shard.store[key]
	return ok
}

func (k clientKey) String() string {
	return fmt.Sprintf("%s|%s|%d", k.emulation, k.proxy, k.timeoutBucket)
}
