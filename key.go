package mimic

// DefaultCacheCapacity bounds how many distinct client configurations a
// Client keeps alive unless overridden with WithCacheCapacity.
const DefaultCacheCapacity = 1024

// timeoutBucketMS is the granularity timeouts are coarsened to before they
// enter the cache key. Bucketing keeps a client with a 4s timeout and one
// with a 4.2s timeout on the same connection instead of one cache entry per
// distinct millisecond value.
const timeoutBucketMS = 5000

// clientKey identifies one connection configuration. It is injective over
// the fields that affect client construction: no two distinct
// configurations share a key.
type clientKey struct {
	emulation     Emulation
	proxy         string // verbatim proxy URL, empty when absent
	timeoutBucket int
}

// deriveKey coarsens the volatile parts of opts into a cache-friendly key.
func deriveKey(opts RequestOptions) clientKey {
	_, label := opts.Emulation.resolve()
	return clientKey{
		emulation:     label,
		proxy:         opts.Proxy,
		timeoutBucket: bucketTimeout(opts.Timeout),
	}
}

// bucketTimeout rounds a millisecond timeout up to the next bucket
// boundary. The result is always a positive multiple of timeoutBucketMS;
// zero and negative inputs land in the first bucket.
func bucketTimeout(timeoutMS int) int {
	if timeoutMS < 0 {
		timeoutMS = 0
	}
	buckets := (timeoutMS + timeoutBucketMS - 1) / timeoutBucketMS
	if buckets < 1 {
		buckets = 1
	}
	return buckets * timeoutBucketMS
}
