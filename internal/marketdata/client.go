package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/types"
)

// TransientError marks a failure worth retrying later (network trouble,
// rate limiting). Orchestrators treat it differently from permanent
// failures when deciding retry bookkeeping.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Client fetches daily OHLCV bars from a JSON time-series API. A single
// process-wide limiter spaces requests; a 429 triggers one fixed
// cooldown and a single retry before the error propagates.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	cooldown time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithCooldown(d time.Duration) Option {
	return func(c *Client) { c.cooldown = d }
}

// NewClient builds a Client with one request per rateDelay.
func NewClient(baseURL, apiKey string, rateDelay time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(rateDelay), 1),
		cooldown: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse mirrors the provider's time-series payload. Numeric fields
// arrive as strings.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// GetPrices fetches daily bars for [start, end], ascending by date.
func (c *Client) GetPrices(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	if ticker == "" {
		return nil, errors.New("ticker cannot be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bars, retryAfter, err := c.fetch(ctx, ticker, start, end)
	if retryAfter {
		logger.Warn(ctx, "Rate limited by price API, cooling down",
			"ticker", ticker, "cooldown", c.cooldown.String())
		select {
		case <-time.After(c.cooldown):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		bars, retryAfter, err = c.fetch(ctx, ticker, start, end)
		if retryAfter {
			return nil, &TransientError{Err: fmt.Errorf("still rate limited after cooldown for %s", ticker)}
		}
	}
	if err != nil {
		return nil, err
	}
	return bars, nil
}

func (c *Client) fetch(ctx context.Context, ticker string, start, end time.Time) (bars []types.PriceBar, rateLimited bool, err error) {
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("interval", "1day")
	q.Set("start_date", start.Format("2006-01-02"))
	q.Set("end_date", end.Format("2006-01-02"))
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/time_series?"+q.Encode(), nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, nil
	}
	if resp.StatusCode >= 500 {
		return nil, false, &TransientError{Err: fmt.Errorf("price API returned %d for %s", resp.StatusCode, ticker)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("price API returned %d for %s", resp.StatusCode, ticker)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decoding price response for %s: %w", ticker, err)
	}
	if body.Status == "error" {
		// The provider reports unknown symbols as errors; treat as no data.
		logger.Debug(ctx, "Price API error status", "ticker", ticker, "message", body.Message)
		return nil, false, nil
	}

	bars = make([]types.PriceBar, 0, len(body.Values))
	for _, v := range body.Values {
		bar, err := parseBar(v.Datetime, v.Open, v.High, v.Low, v.Close, v.Volume)
		if err != nil {
			return nil, false, fmt.Errorf("parsing bar for %s at %s: %w", ticker, v.Datetime, err)
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, false, nil
}

func parseBar(datetime, open, high, low, closeP, volume string) (types.PriceBar, error) {
	d, err := time.Parse("2006-01-02", datetime)
	if err != nil {
		return types.PriceBar{}, err
	}
	o, err := strconv.ParseFloat(open, 64)
	if err != nil {
		return types.PriceBar{}, err
	}
	h, err := strconv.ParseFloat(high, 64)
	if err != nil {
		return types.PriceBar{}, err
	}
	l, err := strconv.ParseFloat(low, 64)
	if err != nil {
		return types.PriceBar{}, err
	}
	cl, err := strconv.ParseFloat(closeP, 64)
	if err != nil {
		return types.PriceBar{}, err
	}
	var vol int64
	if volume != "" {
		vol, err = strconv.ParseInt(volume, 10, 64)
		if err != nil {
			return types.PriceBar{}, err
		}
	}
	return types.PriceBar{Date: d, Open: o, High: h, Low: l, Close: cl, Volume: vol}, nil
}
