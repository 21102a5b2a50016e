package mimic

import (
	http "github.com/bogdanfinn/fhttp"
)

// RequestOptions describes a single outbound request. URL is required;
// every other field has a usable zero value.
type RequestOptions struct {
	// URL is the absolute target URL.
	URL string

	// Emulation selects the browser fingerprint the connection presents.
	// Empty or unrecognized selectors fall back to DefaultEmulation.
	Emulation Emulation

	// Headers are attached to the request one entry at a time. Duplicate
	// handling follows the underlying transport.
	Headers map[string]string

	// Method is the HTTP method. Empty means GET. Anything outside
	// GET/POST/PUT/DELETE/PATCH/HEAD is rejected.
	Method string

	// Body is sent verbatim when non-empty; no re-encoding is applied.
	Body string

	// Proxy is an optional outbound proxy URL (http, https or socks5).
	// All traffic from the underlying client goes through it.
	Proxy string

	// Timeout is the request timeout in milliseconds. Zero leaves the
	// per-request deadline unset; the cached client's bucketed timeout
	// still bounds the exchange.
	Timeout int
}

// Response is the normalized result of a completed exchange.
type Response struct {
	// Status is the numeric HTTP status code.
	Status int

	// Headers holds one text value per response header name. Values that
	// are not valid UTF-8 are silently dropped.
	Headers map[string]string

	// Body is the full response body decoded as text.
	Body string

	// Cookies is parsed from the first Set-Cookie header occurrence only,
	// ignoring attributes and any further occurrences.
	Cookies map[string]string

	// URL is the final URL after any redirects the transport followed.
	URL string
}

// Middleware wraps the outbound send. It may mutate the request, observe or
// replace the response, and must call next to proceed.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper is the transport hook middleware chains around.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc adapts a function to RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option represents a configuration option applied by New.
type Option func(*Client)
