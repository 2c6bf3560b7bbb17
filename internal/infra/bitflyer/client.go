package bitflyer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lightning_go/internal/domain"
	"lightning_go/internal/infra"
)

var _ domain.MarketDataSource = (*Client)(nil)

// Client is the bitFlyer Lightning REST API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	logger     *slog.Logger
}

// NewClient creates a client from configuration. Private calls are only
// possible when the configuration carries a credential.
func NewClient(cfg *infra.Config) *Client {
	var signer *Signer
	if cfg.HasCredential() {
		signer = NewSigner(cfg.API.APIKey, cfg.API.APISecret)
	}

	return &Client{
		baseURL: cfg.API.RestURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		signer: signer,
		logger: slog.Default().With("module", "bitflyer_client"),
	}
}

// HasCredential reports whether private calls can be signed.
func (c *Client) HasCredential() bool {
	return c.signer != nil
}

// GetBoard fetches the full order book snapshot.
func (c *Client) GetBoard(ctx context.Context, productCode string) (*domain.BoardPayload, error) {
	var board domain.BoardPayload
	if err := c.Do(ctx, http.MethodGet, "/v1/getboard", productParams(productCode), false, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// GetTicker fetches the current ticker.
func (c *Client) GetTicker(ctx context.Context, productCode string) (*domain.TickerPayload, error) {
	var ticker domain.TickerPayload
	if err := c.Do(ctx, http.MethodGet, "/v1/getticker", productParams(productCode), false, &ticker); err != nil {
		return nil, err
	}
	return &ticker, nil
}

// GetExecutions fetches the most recent executions, newest first.
func (c *Client) GetExecutions(ctx context.Context, productCode string, count int) ([]domain.ExecutionPayload, error) {
	params := productParams(productCode)
	if count > 0 {
		params["count"] = count
	}

	var execs []domain.ExecutionPayload
	if err := c.Do(ctx, http.MethodGet, "/v1/getexecutions", params, false, &execs); err != nil {
		return nil, err
	}
	return execs, nil
}

// GetBoardState fetches exchange health and board state.
func (c *Client) GetBoardState(ctx context.Context, productCode string) (*domain.HealthPayload, error) {
	var state domain.HealthPayload
	if err := c.Do(ctx, http.MethodGet, "/v1/getboardstate", productParams(productCode), false, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetMarkets lists tradable products.
func (c *Client) GetMarkets(ctx context.Context) ([]Market, error) {
	var markets []Market
	if err := c.Do(ctx, http.MethodGet, "/v1/getmarkets", nil, false, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

func productParams(code string) map[string]any {
	if code == "" {
		return map[string]any{}
	}
	return map[string]any{"product_code": code}
}

// Do performs one call. GET params become the query string, other methods
// send them as a JSON body. out may be nil when the response is ignored.
func (c *Client) Do(ctx context.Context, method, path string, params map[string]any, private bool, out any) error {
	if private && c.signer == nil {
		return domain.ErrMissingCredential
	}

	var body []byte
	if len(params) > 0 {
		if method == http.MethodGet {
			path += "?" + encodeQuery(params)
		} else {
			b, err := json.Marshal(params)
			if err != nil {
				return err
			}
			body = b
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.NewFatalNetworkError(method+" "+path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	if private {
		for k, v := range c.signer.GenerateHeaders(method, path, string(body)) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		infra.GlobalMetrics.RecordError()
		return domain.NewNetworkError(method+" "+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError(method+" "+path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		infra.GlobalMetrics.RecordError()
		c.logger.Warn("API error", slog.Int("status", resp.StatusCode), slog.String("path", path))
		return &domain.APIError{Status: resp.StatusCode, Path: path, Body: string(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func encodeQuery(params map[string]any) string {
	q := url.Values{}
	for k, v := range params {
		switch val := v.(type) {
		case string:
			q.Set(k, val)
		case int:
			q.Set(k, strconv.Itoa(val))
		case int64:
			q.Set(k, strconv.FormatInt(val, 10))
		default:
			q.Set(k, fmt.Sprint(val))
		}
	}
	return q.Encode()
}
