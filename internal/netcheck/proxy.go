// Package netcheck verifies that a user supplied proxy can reach the
// internet before it is saved.
package netcheck

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/awsl-project/deskshell/internal/version"
)

// DefaultTimeout bounds a single proxy test.
const DefaultTimeout = 10 * time.Second

// ProxyTester fetches a probe URL through a proxy.
type ProxyTester struct {
	ProbeURL string
	Timeout  time.Duration
}

// NewProxyTester creates a tester that fetches probeURL.
func NewProxyTester(probeURL string) *ProxyTester {
	return &ProxyTester{ProbeURL: probeURL, Timeout: DefaultTimeout}
}

// ParseProxyURL validates raw and returns the parsed proxy URL.
func ParseProxyURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("proxy URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q (use http, https, socks5 or socks5h)", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy URL has no host: %s", raw)
	}
	return u, nil
}

// Test fetches the probe URL through proxyURL and returns a human readable
// success message.
func (p *ProxyTester) Test(ctx context.Context, proxyURL string) (string, error) {
	proxy, err := ParseProxyURL(proxyURL)
	if err != nil {
		return "", err
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyURL(proxy),
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ProbeURL, nil)
	if err != nil {
		return "", fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy test failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusProxyAuthRequired {
		return "", fmt.Errorf("proxy requires authentication (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("probe through proxy returned status %d", resp.StatusCode)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	log.Printf("[Proxy] %s reachable through %s in %v (status %d)", p.ProbeURL, proxy.Redacted(), elapsed, resp.StatusCode)
	return fmt.Sprintf("Proxy connection successful (status %d, %v)", resp.StatusCode, elapsed), nil
}
