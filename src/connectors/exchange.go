// REST client for the derivatives exchange, resty with internal retry.
// Signed endpoints use the exchange's HMAC request scheme; market data is
// public. Virtual-mode models share a credential-less client for reads and
// submit orders with the testMode flag set.
package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// APIResponse is the exchange's envelope for signed endpoints.
type APIResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// BookTop is the best bid/ask of the order book for one instrument.
type BookTop struct {
	Symbol string
	Bid    float64
	Ask    float64
}

// Fill is the exchange's report of an executed market order.
type Fill struct {
	OrderID  string  `json:"orderID"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	PosSide  string  `json:"posSide"`
	Quantity float64 `json:"quantity,string"`
	AvgPrice float64 `json:"avgPrice,string"`
}

// PendingAlgoOrder is one conditional order still armed on the exchange.
type PendingAlgoOrder struct {
	AlgoID       string  `json:"algoID"`
	Symbol       string  `json:"symbol"`
	Kind         string  `json:"kind"`
	TriggerPrice float64 `json:"triggerPrice,string"`
}

// Client is an authenticated exchange REST client.
type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

// NewClient builds an authenticated client. Pass empty credentials for a
// public market-data client; signed endpoints will then be rejected by the
// exchange.
func NewClient(apiKey, apiSecret, baseURL string) *Client {
	retryCount := defaultRetryAttempts - 1

	if baseURL == "" {
		baseURL = "https://testnet-api.exchange.example"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		http:      httpClient,
	}
}

func signRequest(path, query, body string, expiry int64, secret string) string {
	base := path
	if query != "" {
		base += query
	}
	base += fmt.Sprintf("%d", expiry)
	if body != "" {
		base += body
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) doRequest(ctx context.Context, method, path, query string, body []byte) (*APIResponse, error) {
	expiry := time.Now().Add(1 * time.Minute).Unix()

	sig := signRequest(path, query, string(body), expiry, c.apiSecret)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("x-access-token", c.apiKey).
		SetHeader("x-request-expiry", fmt.Sprintf("%d", expiry)).
		SetHeader("x-request-signature", sig)

	if query != "" {
		req = req.SetQueryString(query)
	}
	if body != nil {
		req = req.SetBody(body).SetHeader("Content-Type", "application/json")
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}

	raw := resp.Body()

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(raw))
	}

	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, err
	}

	return &apiResp, nil
}

// GetBestBidAsk fetches the top of the order book for a symbol. The
// settlement workflow requires this before any close: ask when closing a
// long, bid when closing a short.
func (c *Client) GetBestBidAsk(ctx context.Context, symbol string) (*BookTop, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		Get("/md/orderbook/top")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var envelope APIResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, err
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("API error: %s", envelope.Msg)
	}

	var book struct {
		Bid string `json:"bid"`
		Ask string `json:"ask"`
	}
	if err := json.Unmarshal(envelope.Data, &book); err != nil {
		return nil, err
	}

	bid, err := strconv.ParseFloat(book.Bid, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid bid for %s: %q", symbol, book.Bid)
	}
	ask, err := strconv.ParseFloat(book.Ask, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ask for %s: %q", symbol, book.Ask)
	}

	if bid <= 0 && ask <= 0 {
		return nil, fmt.Errorf("no live quote for %s", symbol)
	}

	return &BookTop{Symbol: symbol, Bid: bid, Ask: ask}, nil
}

// SubmitMarketOrder places a market order. With testMode the exchange only
// validates and simulates the fill; no real position changes hands.
func (c *Client) SubmitMarketOrder(
	ctx context.Context,
	symbol, side, posSide string,
	quantity float64,
	testMode bool,
) (*Fill, error) {

	body := map[string]interface{}{
		"symbol":      symbol,
		"side":        side,
		"posSide":     posSide,
		"ordType":     "Market",
		"quantity":    strconv.FormatFloat(quantity, 'f', -1, 64),
		"clOrdID":     uuid.NewString(),
		"testMode":    testMode,
		"timeInForce": "ImmediateOrCancel",
	}

	b, _ := json.Marshal(body)

	resp, err := c.doRequest(ctx, "POST", "/v1/orders", "", b)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("API error %d: %s", resp.Code, resp.Msg)
	}

	var fill Fill
	if err := json.Unmarshal(resp.Data, &fill); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"side":     side,
		"posSide":  posSide,
		"qty":      quantity,
		"order_id": fill.OrderID,
		"test":     testMode,
	}).Info("market order submitted")

	return &fill, nil
}

// ListPendingAlgoOrders returns the conditional orders the exchange still
// holds armed for a symbol.
func (c *Client) ListPendingAlgoOrders(ctx context.Context, symbol string) ([]PendingAlgoOrder, error) {
	resp, err := c.doRequest(ctx, "GET", "/v1/algo-orders/active", fmt.Sprintf("symbol=%s", symbol), nil)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("API error %d: %s", resp.Code, resp.Msg)
	}

	var pending []PendingAlgoOrder
	if err := json.Unmarshal(resp.Data, &pending); err != nil {
		return nil, err
	}

	return pending, nil
}

// CancelAllAlgoOrders cancels every conditional order for a symbol.
func (c *Client) CancelAllAlgoOrders(ctx context.Context, symbol string) error {
	resp, err := c.doRequest(ctx, "DELETE", "/v1/algo-orders/all", fmt.Sprintf("symbol=%s", symbol), nil)
	if err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("API error %d: %s", resp.Code, resp.Msg)
	}

	logger.WithField("symbol", symbol).Info("all algo orders cancelled")

	return nil
}
