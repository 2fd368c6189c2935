// Package toast implements the client for the Toast platform API: machine
// credential authentication with token caching, and paginated bulk order
// retrieval. The task executor treats it as an opaque data source returning
// raw records or a classified error.
package toast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/fynch/toast-export-api/internal/domain"
)

// Kind classifies an upstream fetch failure.
type Kind string

// Fetch failure kinds.
const (
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindNetwork     Kind = "network"
	KindNotFound    Kind = "not_found"
)

// FetchError classifies an upstream order-fetch failure. The task core does
// not retry fetches; whatever kind comes back is fatal to the task.
type FetchError struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("toast fetch failed (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// ErrorKind implements the failure-kind convention consumed by the task
// executor.
func (e *FetchError) ErrorKind() string { return "fetch_" + string(e.Kind) }

const (
	ordersPath = "/orders/v2/ordersBulk"
	pageSize   = 100

	userAccessType = "TOAST_MACHINE_CLIENT"

	// Tokens are refreshed an hour before Toast's reported expiry so a
	// long-running export never crosses the boundary mid-fetch.
	tokenExpiryBuffer = time.Hour

	// Used when the auth response carries no usable expiresIn.
	fallbackTokenTTL = 23 * time.Hour
)

// Config holds the upstream API endpoints and machine client credentials.
type Config struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
}

// Client talks to the Toast platform API. It is safe for concurrent use;
// the cached auth token is shared across all in-flight fetches.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Toast API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   cleanhttp.DefaultPooledClient(),
		logger: logger,
	}
}

// authResponse mirrors the login endpoint's envelope.
type authResponse struct {
	Token struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	} `json:"token"`
}

// accessToken returns a valid cached token, authenticating if the cache is
// empty or stale.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"clientId":       c.cfg.ClientID,
		"clientSecret":   c.cfg.ClientSecret,
		"userAccessType": userAccessType,
	})
	if err != nil {
		return "", &FetchError{Kind: KindAuth, Err: fmt.Errorf("marshal auth payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, bytes.NewReader(payload))
	if err != nil {
		return "", &FetchError{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &FetchError{Kind: KindNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{
			Kind: classifyStatus(resp.StatusCode, KindAuth),
			Err:  fmt.Errorf("authentication returned status %d", resp.StatusCode),
		}
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", &FetchError{Kind: KindAuth, Err: fmt.Errorf("decode auth response: %w", err)}
	}
	if auth.Token.AccessToken == "" {
		return "", &FetchError{Kind: KindAuth, Err: errors.New("no access token in authentication response")}
	}

	ttl := time.Duration(auth.Token.ExpiresIn) * time.Second
	if ttl > tokenExpiryBuffer {
		ttl -= tokenExpiryBuffer
	} else if ttl <= 0 {
		ttl = fallbackTokenTTL
	}

	c.token = auth.Token.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)
	c.logger.Info("obtained toast access token", "expires_at", c.tokenExpiry.UTC())
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// FetchOrders retrieves every order for the date range, one business date
// and one page at a time, returning the records undecoded. A 401 mid-fetch
// triggers a single re-authentication; beyond that the client does not
// retry.
func (c *Client) FetchOrders(ctx context.Context, r domain.DateRange, restaurantGUID string) ([]json.RawMessage, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	reauthed := false
	var all []json.RawMessage
	for _, day := range r.BusinessDates() {
		businessDate := day.Format("20060102")
		for page := 1; ; page++ {
			orders, err := c.fetchPage(ctx, token, restaurantGUID, businessDate, page)
			if err != nil {
				var ferr *FetchError
				if errors.As(err, &ferr) && ferr.Kind == KindAuth && !reauthed {
					reauthed = true
					c.invalidateToken()
					if token, err = c.accessToken(ctx); err != nil {
						return nil, err
					}
					if orders, err = c.fetchPage(ctx, token, restaurantGUID, businessDate, page); err != nil {
						return nil, err
					}
				} else {
					return nil, err
				}
			}

			all = append(all, orders...)
			if len(orders) < pageSize {
				break
			}
		}
	}

	c.logger.Info("fetched toast orders",
		"order_count", len(all),
		"business_dates", len(r.BusinessDates()))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, token, restaurantGUID, businessDate string, page int) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("businessDate", businessDate)
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+ordersPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Toast-Restaurant-External-ID", restaurantGUID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			Kind: classifyStatus(resp.StatusCode, KindNetwork),
			Err:  fmt.Errorf("orders request returned status %d for business date %s page %d", resp.StatusCode, businessDate, page),
		}
	}

	var orders []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: fmt.Errorf("decode orders page: %w", err)}
	}
	return orders, nil
}

// classifyStatus maps an upstream HTTP status to a fetch failure kind.
// Statuses outside the taxonomy (including 5xx) report as the fallback.
func classifyStatus(status int, fallback Kind) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusNotFound:
		return KindNotFound
	default:
		return fallback
	}
}
