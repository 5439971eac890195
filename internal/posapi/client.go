package posapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/forneria-pos/internal/obs"
	"github.com/noah-isme/forneria-pos/internal/resilience"
)

const (
	pathCheckout   = "/pos/checkout/"
	pathProduct    = "/pos/productos/%s/"
	pathServerTime = "/pos/server-time/"

	maxBodyBytes = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Breaker     *resilience.Breaker
	CSRFCookie  string
	CSRFHeader  string
	// CSRFToken seeds the cookie jar when the backend never sets the cookie itself.
	CSRFToken string
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// Client talks to the POS backend. The backend's CSRF cookie is kept in a
// cookie jar and echoed in the CSRF header on every write.
type Client struct {
	base       *url.URL
	http       resilience.HTTPClient
	jar        http.CookieJar
	csrfCookie string
	csrfHeader string
	logger     zerolog.Logger
}

// New builds a client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("posapi: invalid base url %q", opts.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("posapi: cookie jar: %w", err)
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	c := &Client{
		base: base,
		http: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(transport), Jar: jar},
			Breaker:     opts.Breaker,
			MaxAttempts: opts.MaxAttempts,
			Timeout:     opts.Timeout,
			Jitter:      0.2,
		},
		jar:        jar,
		csrfCookie: valueOr(opts.CSRFCookie, "csrftoken"),
		csrfHeader: valueOr(opts.CSRFHeader, "X-CSRFToken"),
		logger:     opts.Logger.With().Str("component", "posapi").Logger(),
	}
	if token := strings.TrimSpace(opts.CSRFToken); token != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: c.csrfCookie, Value: token, Path: "/"}})
	}
	return c, nil
}

// Checkout submits one sale. It performs exactly one request. A non-success
// status yields *APIError; transport and decoding failures wrap ErrUnavailable.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (Receipt, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("posapi: encode checkout: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(pathCheckout), bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("posapi: build checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(c.csrfHeader, c.CSRFToken())

	var receipt Receipt
	if err := c.do(ctx, "checkout", httpReq, &receipt, DefaultCheckoutDetail); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// Product fetches the detail of one product.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, errors.New("posapi: product id is required")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(fmt.Sprintf(pathProduct, url.PathEscape(id))), nil)
	if err != nil {
		return Product{}, fmt.Errorf("posapi: build product request: %w", err)
	}
	var product Product
	if err := c.do(ctx, "product", httpReq, &product, "no data"); err != nil {
		return Product{}, err
	}
	return product, nil
}

// ServerTime returns the backend's preformatted current time.
func (c *Client) ServerTime(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(pathServerTime), nil)
	if err != nil {
		return "", fmt.Errorf("posapi: build server-time request: %w", err)
	}
	var out serverTime
	if err := c.do(ctx, "server_time", httpReq, &out, "no data"); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Formatted) == "" {
		return "", unavailable("server_time", errors.New("empty formatted time"))
	}
	return out.Formatted, nil
}

// CSRFToken returns the backend's CSRF cookie value, or "" when none is held.
func (c *Client) CSRFToken() string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == c.csrfCookie {
			return ck.Value
		}
	}
	return ""
}

// Ping checks the backend answers at all. Any HTTP status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(pathServerTime), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return unavailable("ping", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) do(ctx context.Context, endpoint string, req *http.Request, dst any, fallbackDetail string) (err error) {
	start := time.Now()
	defer func() {
		obs.ObserveBackend(endpoint, obs.DurationMillis(time.Since(start)), err)
	}()

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("backend request failed")
		return unavailable(endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return unavailable(endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body errorBody
		if err := json.Unmarshal(data, &body); err != nil {
			c.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("backend error body unreadable")
			return unavailable(endpoint, fmt.Errorf("status %d: %w", resp.StatusCode, err))
		}
		detail := strings.TrimSpace(body.Detail.String())
		if detail == "" {
			detail = fallbackDetail
		}
		c.logger.Info().Int("status", resp.StatusCode).Str("endpoint", endpoint).Str("detail", detail).Msg("backend rejected request")
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Detail: detail}
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return unavailable(endpoint, fmt.Errorf("decode response: %w", err))
	}
	c.logger.Debug().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("backend request ok")
	return nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.base.String(), "/") + path
}

func valueOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
