package mimic

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	tls_client "github.com/bogdanfinn/tls-client"
)

func testKey(emulation Emulation, proxy string, bucket int) clientKey {
	return clientKey{emulation: emulation, proxy: proxy, timeoutBucket: bucket}
}

// nilBuild stands in for a real construction; cache tests never invoke the
// transport.
func nilBuild() (tls_client.HttpClient, error) {
	return nil, nil
}

func TestClientCacheGetOrBuildCachesHandle(t *testing.T) {
	cache := newClientCache(4, false, nil)
	key := testKey(EmulationChrome124, "", 5000)

	builds := 0
	build := func() (tls_client.HttpClient, error) {
		builds++
		return nil, nil
	}

	first, err := cache.getOrBuild(key, build)
	if err != nil {
		t.Fatalf("getOrBuild() error = %v", err)
	}
	second, err := cache.getOrBuild(key, build)
	if err != nil {
		t.Fatalf("getOrBuild() error = %v", err)
	}

	if builds != 1 {
		t.Errorf("expected 1 build, got %d", builds)
	}
	if first != second {
		t.Error("hit should return the cached handle")
	}
	if first.key != key {
		t.Errorf("handle key = %v, want %v", first.key, key)
	}
}

func TestClientCacheBoundedByCapacity(t *testing.T) {
	cache := newClientCache(3, false, nil)

	buckets := []int{5000, 10000, 15000, 20000, 25000}
	for _, bucket := range buckets {
		if _, err := cache.getOrBuild(testKey(EmulationChrome124, "", bucket), nilBuild); err != nil {
			t.Fatalf("getOrBuild() error = %v", err)
		}
		if got := cache.len(); got > 3 {
			t.Fatalf("cache size %d exceeds capacity 3", got)
		}
	}

	if got := cache.len(); got != 3 {
		t.Errorf("expected 3 cached entries, got %d", got)
	}
}

func TestClientCacheEvictsLeastRecentlyTouched(t *testing.T) {
	cache := newClientCache(3, false, nil)

	keyA := testKey(EmulationChrome124, "", 5000)
	keyB := testKey(EmulationFirefox117, "", 5000)
	keyC := testKey(EmulationSafari160, "", 5000)
	keyD := testKey(EmulationOpera91, "", 5000)

	for _, key := range []clientKey{keyA, keyB, keyC} {
		if _, err := cache.getOrBuild(key, nilBuild); err != nil {
			t.Fatalf("getOrBuild() error = %v", err)
		}
	}

	// Touch A so B becomes the oldest.
	if _, err := cache.getOrBuild(keyA, nilBuild); err != nil {
		t.Fatalf("getOrBuild() error = %v", err)
	}

	if _, err := cache.getOrBuild(keyD, nilBuild); err != nil {
		t.Fatalf("getOrBuild() error = %v", err)
	}

	if cache.contains(keyB) {
		t.Error("expected B to be evicted")
	}
	for name, key := range map[string]clientKey{"A": keyA, "C": keyC, "D": keyD} {
		if !cache.contains(key) {
			t.Errorf("expected %s to survive eviction", name)
		}
	}
}

func TestClientCacheBuildFailureLeavesNoEntry(t *testing.T) {
	cache := newClientCache(4, false, nil)
	key := testKey(EmulationChrome124, "http://bad.proxy:1", 5000)

	buildErr := errors.New("boom")
	builds := 0

	_, err := cache.getOrBuild(key, func() (tls_client.HttpClient, error) {
		builds++
		return nil, buildErr
	})
	if !errors.Is(err, buildErr) {
		t.Fatalf("expected build error, got %v", err)
	}

	if cache.contains(key) {
		t.Error("failed build must not leave a cache entry")
	}
	if got := cache.len(); got != 0 {
		t.Errorf("expected empty recency queue, got %d entries", got)
	}

	// The next call for the same key retries construction.
	if _, err := cache.getOrBuild(key, func() (tls_client.HttpClient, error) {
		builds++
		return nil, nil
	}); err != nil {
		t.Fatalf("retry after failed build errored: %v", err)
	}

	if builds != 2 {
		t.Errorf("expected 2 build attempts, got %d", builds)
	}
	if !cache.contains(key) {
		t.Error("successful rebuild should be cached")
	}
}

func TestClientCacheEvictedHandleStaysUsable(t *testing.T) {
	cache := newClientCache(1, false, nil)

	keyA := testKey(EmulationChrome124, "", 5000)
	keyB := testKey(EmulationFirefox117, "", 5000)

	handle, err := cache.getOrBuild(keyA, nilBuild)
	if err != nil {
		t.Fatalf("getOrBuild() error = %v", err)
	}

	if _, err := cache.getOrBuild(keyB, nilBuild); err != nil {
		t.Fatalf("getOrBuild() error = %v", err)
	}

	if cache.contains(keyA) {
		t.Fatal("expected A to be evicted at capacity 1")
	}

	// Eviction released only the cache's reference; the holder's handle is
	// intact and still describes its configuration.
	if handle.key != keyA {
		t.Errorf("evicted handle key = %v, want %v", handle.key, keyA)
	}
}

func TestClientCacheConcurrentSameKey(t *testing.T) {
	cache := newClientCache(8, false, nil)
	key := testKey(EmulationChrome124, "", 5000)

	var builds atomic.Int32
	var wg sync.WaitGroup

	const goroutines = 32
	handles := make([]*cachedClient, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handle, err := cache.getOrBuild(key, func() (tls_client.HttpClient, error) {
				builds.Add(1)
				return nil, nil
			})
			if err != nil {
				t.Errorf("getOrBuild() error = %v", err)
				return
			}
			handles[i] = handle
		}(i)
	}
	wg.Wait()

	// The documented race allows several constructions, but no caller may
	// ever hold a handle built for a different configuration.
	for i, handle := range handles {
		if handle == nil {
			t.Fatalf("goroutine %d got nil handle", i)
		}
		if handle.key != key {
			t.Errorf("goroutine %d holds handle for %v, want %v", i, handle.key, key)
		}
	}

	if builds.Load() < 1 {
		t.Error("expected at least one construction")
	}

	// The eventually-cached entry serves the key's configuration.
	cached, err := cache.getOrBuild(key, nilBuild)
	if err != nil {
		t.Fatalf("getOrBuild() error = %v", err)
	}
	if cached.key != key {
		t.Errorf("cached handle key = %v, want %v", cached.key, key)
	}
	if got := cache.len(); got != 1 {
		t.Errorf("expected a single recency record, got %d", got)
	}
}

func TestClientCacheConcurrentDistinctKeys(t *testing.T) {
	cache := newClientCache(64, false, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := testKey(EmulationChrome124, "", (i+1)*5000)
			for j := 0; j < 50; j++ {
				if _, err := cache.getOrBuild(key, nilBuild); err != nil {
					t.Errorf("getOrBuild() error = %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if got := cache.len(); got != 32 {
		t.Errorf("expected 32 cached entries, got %d", got)
	}
}

func TestClientCacheBuildCoalescing(t *testing.T) {
	cache := newClientCache(8, true, nil)
	key := testKey(EmulationChrome124, "", 5000)

	var builds atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	const goroutines = 16
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.getOrBuild(key, func() (tls_client.HttpClient, error) {
				builds.Add(1)
				<-release
				return nil, nil
			})
			if err != nil {
				t.Errorf("getOrBuild() error = %v", err)
			}
		}()
	}

	close(release)
	wg.Wait()

	if got := builds.Load(); got != 1 {
		t.Errorf("expected exactly 1 coalesced build, got %d", got)
	}
}
