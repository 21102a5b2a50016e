package mimic

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
)

// Client executes outbound HTTP requests through cached,
// fingerprint-emulating transport clients. One instance owns one bounded
// client cache; it is safe for concurrent use and meant to be long-lived.
type Client struct {
	cacheCapacity  int
	coalesceBuilds bool
	cache          *clientCache
	factory        func(clientKey) (tls_client.HttpClient, error)
	middleware     []Middleware
	metrics        *MetricsCollector
	debug          *DebugConfig
	logger         Logger

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for
// errors.
func New(options ...Option) *Client {
	client := &Client{
		cacheCapacity:  DefaultCacheCapacity,
		coalesceBuilds: false,
		factory:        buildClient,
		middleware:     []Middleware{},
		metrics:        nil,
		debug:          DefaultDebugConfig(),
		logger:         nil,
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	capacity := client.cacheCapacity
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	client.cache = newClientCache(capacity, client.coalesceBuilds, client.metrics)

	return client
}

// Get performs a GET with the default emulation profile.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.MakeRequest(ctx, RequestOptions{URL: url})
}

// Post performs a POST with the default emulation profile and the given
// content type.
func (c *Client) Post(ctx context.Context, url, contentType, body string) (*Response, error) {
	return c.MakeRequest(ctx, RequestOptions{
		URL:     url,
		Method:  "POST",
		Headers: map[string]string{"Content-Type": contentType},
		Body:    body,
	})
}

// MakeRequest resolves a cached client for the connection configuration in
// opts, sends the request and normalizes the result. Errors carry the
// failure stage in their Type; nothing is retried internally.
func (c *Client) MakeRequest(ctx context.Context, opts RequestOptions) (*Response, error) {
	start := time.Now()
	endpoint := endpointForURL(opts.URL)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting request", "requestID", requestID, "method", opts.Method, "url", opts.URL, "emulation", opts.Emulation)
	}

	handle, err := c.resolveClient(opts, requestID)
	if err != nil {
		c.metrics.RecordError(ErrorTypeBuild, opts.Method, endpoint)
		return nil, err
	}

	method, err := normalizeMethod(opts.Method)
	if err != nil {
		c.metrics.RecordError(ErrorTypeUnsupportedMethod, opts.Method, endpoint)
		return nil, err
	}

	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)

	resp, err := c.send(ctx, handle, method, opts)
	if err != nil {
		c.metrics.RecordError(errorType(err), method, endpoint)
		c.metrics.RecordRequest(method, endpoint, 0, time.Since(start))
		if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
			c.logger.Warn("Request failed", "requestID", requestID, "method", method, "url", opts.URL, "error", err.Error())
		}
		return nil, err
	}

	c.metrics.RecordRequest(method, endpoint, resp.Status, time.Since(start))

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Request complete", "requestID", requestID, "method", method, "url", resp.URL, "status", resp.Status, "duration", time.Since(start))
	}

	return resp, nil
}

// resolveClient derives the cache key for opts and fetches or builds the
// shared client handle.
func (c *Client) resolveClient(opts RequestOptions, requestID string) (*cachedClient, error) {
	key := deriveKey(opts)

	return c.cache.getOrBuild(key, func() (tls_client.HttpClient, error) {
		if c.debug != nil && c.debug.Enabled && c.debug.LogBuilds && c.logger != nil {
			c.logger.Debug("Building client", "requestID", requestID, "emulation", key.emulation, "proxy", key.proxy, "timeoutBucket", key.timeoutBucket)
		}
		httpClient, err := c.factory(key)
		if err != nil && c.debug != nil && c.debug.Enabled && c.debug.LogBuilds && c.logger != nil {
			c.logger.Error("Client build failed", "requestID", requestID, "emulation", key.emulation, "error", err.Error())
		}
		return httpClient, err
	})
}

// send performs the protocol exchange and normalizes the response.
func (c *Client) send(ctx context.Context, handle *cachedClient, method string, opts RequestOptions) (*Response, error) {
	// The request's own deadline uses the unbucketed timeout. Zero leaves
	// it unset; the handle's bucketed client-level timeout still applies.
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.Timeout)*time.Millisecond)
		defer cancel()
	}

	var bodyReader io.Reader
	if opts.Body != "" {
		bodyReader = strings.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, opts.URL, bodyReader)
	if err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeRequest,
			Message: "failed to build request",
			Cause:   err,
			Method:  method,
			URL:     opts.URL,
		}
	}

	for name, value := range opts.Headers {
		req.Header.Add(name, value)
	}

	resp, err := c.roundTrip(handle, req)
	if err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeRequest,
			Message: "request failed",
			Cause:   err,
			Method:  method,
			URL:     opts.URL,
		}
	}
	defer resp.Body.Close()

	return normalizeResponse(resp, method, opts.URL)
}

// roundTrip runs the middleware chain around the transport send.
func (c *Client) roundTrip(handle *cachedClient, req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return handle.http.Do(req)
	}

	current := RoundTripperFunc(handle.http.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

// normalizeResponse extracts the normalized Response from a completed
// exchange, consuming the body.
func normalizeResponse(resp *http.Response, method, requestURL string) (*Response, error) {
	finalURL := requestURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	// One text value per header name; values that are not valid UTF-8 are
	// dropped rather than surfaced as an error.
	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		for _, value := range values {
			if utf8.ValidString(value) {
				headers[name] = value
				break
			}
		}
	}

	// Simplified cookie parser: first Set-Cookie occurrence only, split on
	// ';', each segment trimmed and split on the first '='. Attributes and
	// further Set-Cookie headers are ignored.
	cookies := make(map[string]string)
	if setCookie := resp.Header.Get("Set-Cookie"); setCookie != "" {
		for _, segment := range strings.Split(setCookie, ";") {
			segment = strings.TrimSpace(segment)
			if name, value, ok := strings.Cut(segment, "="); ok {
				cookies[name] = value
			}
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeBodyRead,
			Message: "failed to read response body",
			Cause:   err,
			Method:  method,
			URL:     requestURL,
		}
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    string(body),
		Cookies: cookies,
		URL:     finalURL,
	}, nil
}

// normalizeMethod maps the free-form method string onto the supported set.
// Empty means GET; matching is case-insensitive.
func normalizeMethod(method string) (string, error) {
	if method == "" {
		return http.MethodGet, nil
	}

	upper := strings.ToUpper(method)
	switch upper {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead:
		return upper, nil
	}

	return "", &ClientError{
		Type:    ErrorTypeUnsupportedMethod,
		Message: fmt.Sprintf("unsupported HTTP method: %s", method),
		Method:  method,
	}
}

// CacheLen reports how many client configurations are currently cached.
func (c *Client) CacheLen() int {
	return c.cache.len()
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// ValidateConfigurationStrict panics if configuration is invalid.
func (c *Client) ValidateConfigurationStrict() {
	if err := c.ValidateConfiguration(); err != nil {
		panic(fmt.Sprintf("invalid client configuration: %v", err))
	}
}

func errorType(err error) string {
	if clientErr, ok := err.(*ClientError); ok {
		return clientErr.Type
	}
	return ErrorTypeRequest
}

func endpointForURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
