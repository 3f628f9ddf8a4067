package assetquotes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	drepo "FxCockpit/internal/domain/repository"
	"FxCockpit/pkg/cache"
	xhttp "FxCockpit/pkg/http"
)

// Client fetches daily closes of correlated assets from an HTTP quote service:
//
//	GET {base}/daily?symbol=<ticker>&days=<n>  ->  {"symbol": "...", "closes": [{"date": "2024-03-01", "close": 2050.1}]}
//
// Responses are cached for cacheTTL because daily series change at most once a day.
type Client struct {
	baseURL  string
	http     *xhttp.Client
	cache    cache.Service
	cacheTTL time.Duration
}

var _ drepo.AssetSource = (*Client)(nil)

func New(baseURL string, timeout time.Duration, c cache.Service, opts ...xhttp.ClientOption) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     xhttp.NewClient(opts...),
		cache:    c,
		cacheTTL: 15 * time.Minute,
	}
}

type dailyPoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

type dailyResponse struct {
	Symbol string       `json:"symbol"`
	Closes []dailyPoint `json:"closes"`
}

// DailyCloses returns ascending closes. Any failure is reported as domain.ErrDataUnavailable.
func (c *Client) DailyCloses(ctx context.Context, asset models.Asset, days int) ([]models.DailyClose, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("asset quote service not configured: %w", domain.ErrDataUnavailable)
	}
	key := cache.Key("assetquotes", asset.Ticker, strconv.Itoa(days))

	var resp dailyResponse
	if c.cache != nil {
		if err := c.cache.Get(ctx, key, &resp); err == nil {
			return toCloses(resp)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			// a broken cache must not block the fetch
			_ = c.cache.Delete(ctx, key)
		}
	}

	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/daily",
		QueryParams: map[string][]string{
			"symbol": {asset.Ticker},
			"days":   {strconv.Itoa(days)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s daily closes: %v: %w", asset.Name, err, domain.ErrDataUnavailable)
	}

	closes, err := toCloses(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", asset.Name, err)
	}
	if c.cache != nil {
		_ = c.cache.Set(ctx, key, resp, c.cacheTTL)
	}
	return closes, nil
}

func toCloses(resp dailyResponse) ([]models.DailyClose, error) {
	if len(resp.Closes) == 0 {
		return nil, fmt.Errorf("empty series: %w", domain.ErrDataUnavailable)
	}
	out := make([]models.DailyClose, 0, len(resp.Closes))
	for _, p := range resp.Closes {
		d, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", p.Date, domain.ErrDataUnavailable)
		}
		if p.Close <= 0 {
			continue
		}
		out = append(out, models.DailyClose{Date: d, Close: p.Close})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
