package mimic

import (
	"fmt"
	"net/url"

	tls_client "github.com/bogdanfinn/tls-client"
)

// buildClient constructs a transport client for one connection
// configuration: the requested fingerprint profile, a fresh persistent
// cookie jar shared by every request issued through the instance, the
// outbound proxy when one is given, and the bucketed timeout as the
// client-level ceiling. The per-request timeout is applied separately with
// the caller's unbucketed value.
func buildClient(key clientKey) (tls_client.HttpClient, error) {
	profile, _ := key.emulation.resolve()

	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithClientProfile(profile),
		tls_client.WithCookieJar(jar),
		tls_client.WithTimeoutMilliseconds(key.timeoutBucket),
	}

	if key.proxy != "" {
		if err := validateProxyURL(key.proxy); err != nil {
			return nil, &ClientError{
				Type:      ErrorTypeBuild,
				Message:   "failed to configure proxy",
				Cause:     err,
				Emulation: key.emulation,
			}
		}
		options = append(options, tls_client.WithProxyUrl(key.proxy))
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, &ClientError{
			Type:      ErrorTypeBuild,
			Message:   "failed to build HTTP client",
			Cause:     err,
			Emulation: key.emulation,
		}
	}

	return httpClient, nil
}

// validateProxyURL rejects proxy strings the transport would only fault on
// lazily. A usable proxy URL needs a scheme and a host.
func validateProxyURL(proxy string) error {
	u, err := url.Parse(proxy)
	if err != nil {
		return &ClientError{
			Type:    ErrorTypeConfig,
			Message: fmt.Sprintf("invalid proxy URL %q", proxy),
			Cause:   err,
		}
	}
	if u.Scheme == "" || u.Host == "" {
		return &ClientError{
			Type:    ErrorTypeConfig,
			Message: fmt.Sprintf("proxy URL %q must include scheme and host", proxy),
		}
	}
	return nil
}
