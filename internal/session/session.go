// Package session is the HTTP client for the queue site: one cookie jar per
// check, a fixed User-Agent and a TLS policy pinned to the cipher the server
// accepts.
package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rahul/slotwatch/internal/page"
	"golang.org/x/net/publicsuffix"
)

const DefaultTimeout = 30 * time.Second

// NetworkError reports a transport, TLS or HTTP status failure.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client performs requests over a persistent cookie session.
type Client struct {
	UserAgent string

	http   *http.Client
	logger *slog.Logger
}

type options struct {
	timeout   time.Duration
	userAgent string
	ciphers   []uint16
	rootCAs   *x509.CertPool
	logger    *slog.Logger
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithCipherSuites pins the TLS 1.2 cipher suites offered to the server.
// TLS 1.3 is disabled when any suite is pinned, since 1.3 suites cannot be
// configured.
func WithCipherSuites(ids ...uint16) Option {
	return func(o *options) { o.ciphers = ids }
}

// WithRootCAs replaces the system roots, mostly for tests.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(o *options) { o.rootCAs = pool }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func New(opts ...Option) (*Client, error) {
	o := &options{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	tlsCfg := &tls.Config{RootCAs: o.rootCAs}
	if len(o.ciphers) > 0 {
		tlsCfg.CipherSuites = o.ciphers
		tlsCfg.MaxVersion = tls.VersionTLS12
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	// The queue server only speaks HTTP/1.1.
	transport.ForceAttemptHTTP2 = false

	jar, err := newJar()
	if err != nil {
		return nil, err
	}

	return &Client{
		UserAgent: o.userAgent,
		http: &http.Client{
			Timeout:   o.timeout,
			Transport: transport,
			Jar:       jar,
		},
		logger: o.logger,
	}, nil
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return jar, nil
}

// Fetch retrieves url. A non-nil form is posted as
// application/x-www-form-urlencoded in field order; otherwise it is a GET.
func (c *Client) Fetch(ctx context.Context, url string, form *page.Form) ([]byte, error) {
	method := http.MethodGet
	var body io.Reader
	if form != nil {
		method = http.MethodPost
		body = strings.NewReader(form.Encode())
		c.logger.Debug("Requesting", "url", url, "method", method, "form", form.String())
	} else {
		c.logger.Debug("Requesting", "url", url, "method", method)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// Reset discards every stored cookie. It is only called between attempts.
func (c *Client) Reset() error {
	jar, err := newJar()
	if err != nil {
		return err
	}
	c.http.Jar = jar
	return nil
}
