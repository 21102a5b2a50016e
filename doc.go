// Package mimic is an HTTP client that impersonates real browser network
// fingerprints while keeping a bounded pool of reusable client connections:
//
//   - Browser emulation profiles (Chrome, Firefox, Safari, OkHttp) backed by
//     bogdanfinn/tls-client
//   - Bounded LRU cache of constructed clients keyed by (emulation, proxy,
//     timeout bucket) — at most one live client per connection configuration
//   - Persistent per-client cookie jars and optional outbound proxies
//   - Response normalization: status, headers, cookies, body text, final URL
//   - Middleware chain for cross-cutting concerns (auth, logging, tracing, etc.)
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single *Client instance; cached client
//     handles are shared freely across in-flight requests
//   - Bounded memory under unbounded distinct connection configurations
//   - No hidden globals – callers own the client and its cache
//
// Typical usage:
//
//	client := mimic.New(
//	    mimic.WithCacheCapacity(256),
//	    mimic.WithMetrics(),
//	)
//	resp, err := client.MakeRequest(ctx, mimic.RequestOptions{
//	    URL:       "https://tls.peet.ws/api/all",
//	    Emulation: mimic.EmulationChrome124,
//	    Timeout:   10_000,
//	})
//
// Requests are never retried internally; retry policy belongs to the caller.
// Provide a Logger (e.g. via WithSimpleLogger) and enable debug flags
// selectively (WithDebug / WithDebugConfig) for insight without noise.
package mimic
