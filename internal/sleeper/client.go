package sleeper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/valyala/fasthttp"
	"golang.org/x/net/proxy"

	"github.com/nao1215/leaguecrawl/internal/ratelimit"
)

// Default client settings.
const (
	// DefaultBaseURL is the public Sleeper API root.
	DefaultBaseURL = "https://api.sleeper.app/v1"

	// DefaultSport is the sport segment used by user and state endpoints.
	DefaultSport = "nfl"

	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the number of extra attempts for rate-limited or
	// unavailable responses.
	DefaultMaxRetries = 5

	// DefaultInitialBackoff is the first retry delay; later delays grow
	// exponentially up to DefaultMaxBackoff.
	DefaultInitialBackoff = 500 * time.Millisecond

	// DefaultMaxBackoff caps a single retry delay.
	DefaultMaxBackoff = 30 * time.Second

	// DefaultUserAgent identifies the crawler to the platform.
	DefaultUserAgent = "leaguecrawl/1.0 (+https://github.com/nao1215/leaguecrawl)"
)

// Client issues requests against the Sleeper API.
// It is safe for concurrent use.
type Client struct {
	baseURL   string
	sport     string
	userAgent string
	proxyAddr string

	http    *fasthttp.Client
	limiter ratelimit.Limiter
	logger  *slog.Logger

	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	seasonMu sync.Mutex
	season   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. for tests or a caching proxy.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithSport sets the sport segment ("nfl", "nba", "lcs").
func WithSport(sport string) Option {
	return func(c *Client) {
		if sport != "" {
			c.sport = sport
		}
	}
}

// WithSeason fixes the season used by FetchUserLeagues. When unset the
// client resolves it from the sport state on first use.
func WithSeason(season string) Option {
	return func(c *Client) {
		c.season = season
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the retry budget for rate-limited and unavailable
// responses. maxRetries of 0 disables retries.
func WithRetry(maxRetries int, initial, maxDelay time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if initial > 0 {
			c.initialBackoff = initial
		}
		if maxDelay > 0 {
			c.maxBackoff = maxDelay
		}
	}
}

// WithLogger sets the logger used for retry notices.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithSOCKS5Proxy routes all requests through the SOCKS5 proxy at addr.
func WithSOCKS5Proxy(addr string) Option {
	return func(c *Client) {
		c.proxyAddr = addr
	}
}

// NewClient creates a Client. The limiter is waited on before every request
// attempt, including retries.
func NewClient(limiter ratelimit.Limiter, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:        DefaultBaseURL,
		sport:          DefaultSport,
		userAgent:      DefaultUserAgent,
		limiter:        limiter,
		timeout:        DefaultTimeout,
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		c.limiter = ratelimit.NewPacer(ratelimit.DefaultCallsPerMinute)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if !strings.HasPrefix(c.baseURL, "http://") && !strings.HasPrefix(c.baseURL, "https://") {
		return nil, ErrInvalidBaseURL
	}

	c.http = &fasthttp.Client{
		Name:                c.userAgent,
		MaxConnsPerHost:     64,
		ReadTimeout:         c.timeout,
		WriteTimeout:        c.timeout,
		MaxIdleConnDuration: time.Minute,
	}

	if c.proxyAddr != "" {
		if !isValidProxyAddress(c.proxyAddr) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		c.http.Dial = func(addr string) (net.Conn, error) {
			return dialer.Dial("tcp", addr)
		}
	}

	return c, nil
}

// isValidProxyAddress checks for "host:port" with a numeric port in range.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// Season returns the season used for user league lookups, resolving it from
// the sport state when it was not configured.
func (c *Client) Season(ctx context.Context) (string, error) {
	c.seasonMu.Lock()
	defer c.seasonMu.Unlock()

	if c.season != "" {
		return c.season, nil
	}
	state, err := c.FetchSportState(ctx)
	if err != nil {
		return "", err
	}
	c.season = state.ActiveSeason()
	return c.season, nil
}

// endpoint joins path segments onto the base URL, escaping each segment.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// response is a completed request attempt.
type response struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

// get performs a GET with rate limiting, a per-attempt timeout and retries
// for retryable failures. op names the operation in returned failures.
func (c *Client) get(ctx context.Context, op, uri string) ([]byte, error) {
	hint := &retryAfterBackOff{}
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialBackoff
	expo.MaxInterval = c.maxBackoff
	expo.Reset()
	hint.BackOff = expo

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		resp, err := c.attempt(ctx, uri)
		if err != nil {
			return nil, backoff.Permanent(newFailure(op, 0, err))
		}
		if !statusOK(resp.status) {
			f := newFailure(op, resp.status, nil)
			if !f.Kind.Retryable() {
				return nil, backoff.Permanent(f)
			}
			hint.next = resp.retryAfter
			return nil, f
		}
		return resp.body, nil
	},
		backoff.WithBackOff(hint),
		backoff.WithMaxTries(uint(c.maxRetries)+1),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.logger.Warn("retrying request", "op", op, "url", uri, "delay", d, "error", err)
		}),
	)
	if err != nil {
		return nil, asFailure(op, err)
	}
	return body, nil
}

// attempt performs one rate-limited request.
func (c *Client) attempt(ctx context.Context, uri string) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.SetUserAgent(c.userAgent)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	// The response buffer is recycled on release.
	return &response{
		status:     resp.StatusCode(),
		body:       append([]byte(nil), resp.Body()...),
		retryAfter: parseRetryAfter(string(resp.Header.Peek("Retry-After"))),
	}, nil
}

func statusOK(status int) bool {
	return status >= 200 && status < 300
}

// parseRetryAfter reads a delay-seconds Retry-After value. HTTP-date values
// are ignored and leave the exponential schedule in charge.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// retryAfterBackOff stretches the next delay to a server-provided hint.
type retryAfterBackOff struct {
	backoff.BackOff
	next time.Duration
}

// NextBackOff returns the larger of the exponential delay and the hint.
func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d != backoff.Stop && b.next > d {
		d = b.next
	}
	b.next = 0
	return d
}
