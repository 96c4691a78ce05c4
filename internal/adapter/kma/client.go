// Package kma implements the weather gateway against the KMA village
// forecast API.
package kma

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skyflick/skyflick/internal/config"
	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/observability"
)

const serviceLabel = "kma"

// resultCodeOK is the success code inside the response header. Anything else
// is an error envelope embedded in an otherwise-200 response.
const resultCodeOK = "00"

// Client fetches raw weather observations for a grid cell.
type Client struct {
	serviceKey string
	baseURL    string
	lag        time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a weather gateway client.
func NewClient(cfg config.KMAConfig, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		serviceKey: cfg.ServiceKey,
		baseURL:    cfg.BaseURL,
		lag:        cfg.BaseTimeLag,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Observations fetches the ultra-short-term forecast for a grid cell at the
// most recent published observation slot. Transport errors, non-success
// statuses, and embedded error envelopes all map to the single
// upstream-unavailable kind.
func (c *Client) Observations(ctx context.Context, cell domain.GridCell) ([]domain.ObservationItem, error) {
	baseDate, baseTime := domain.LatestSlot(c.lag)

	params := url.Values{
		"serviceKey": {c.serviceKey},
		"dataType":   {"JSON"},
		"numOfRows":  {"60"},
		"pageNo":     {"1"},
		"base_date":  {baseDate},
		"base_time":  {baseTime},
		"nx":         {strconv.Itoa(cell.X)},
		"ny":         {strconv.Itoa(cell.Y)},
	}
	fullURL := c.baseURL + "/getUltraSrtFcst?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, "create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(serviceLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, "weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.Errorf(domain.KindUpstreamUnavailable,
			"weather API status %d: %s", resp.StatusCode, body)
	}

	// The service reports errors such as invalid keys inside a 200 response,
	// sometimes as XML regardless of the requested dataType. A decode failure
	// is therefore an upstream error, not malformed data.
	var wr weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, "decode weather response: %w", err)
	}
	if wr.Response.Header.ResultCode != resultCodeOK {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return nil, domain.Errorf(domain.KindUpstreamUnavailable,
			"weather API error envelope: %s %s",
			wr.Response.Header.ResultCode, wr.Response.Header.ResultMsg)
	}

	c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "success").Inc()

	raw := wr.Response.Body.Items.Item
	items := make([]domain.ObservationItem, len(raw))
	for i, it := range raw {
		items[i] = domain.ObservationItem{
			Category:     it.Category,
			Value:        it.FcstValue,
			ForecastDate: it.FcstDate,
			ForecastTime: it.FcstTime,
		}
	}
	c.logger.Debug("weather observations fetched",
		"nx", cell.X, "ny", cell.Y,
		"base_date", baseDate, "base_time", baseTime,
		"items", len(items))
	return items, nil
}

// Village forecast API response types.

type weatherResponse struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items struct {
				Item []weatherItem `json:"item"`
			} `json:"items"`
			TotalCount int `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

type weatherItem struct {
	BaseDate  string `json:"baseDate"`
	BaseTime  string `json:"baseTime"`
	Category  string `json:"category"`
	FcstDate  string `json:"fcstDate"`
	FcstTime  string `json:"fcstTime"`
	FcstValue string `json:"fcstValue"`
	Nx        int    `json:"nx"`
	Ny        int    `json:"ny"`
}
