package kma

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyflick/skyflick/internal/config"
	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/observability"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(config.KMAConfig{
		ServiceKey:  "test-key",
		BaseURL:     baseURL,
		BaseTimeLag: domain.DefaultBaseTimeLag,
		Timeout:     5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

const successBody = `{
	"response": {
		"header": {"resultCode": "00", "resultMsg": "NORMAL_SERVICE"},
		"body": {
			"items": {"item": [
				{"category": "T1H", "fcstValue": "16.0", "fcstDate": "20260831", "fcstTime": "1030", "nx": 60, "ny": 127},
				{"category": "SKY", "fcstValue": "4", "fcstDate": "20260831", "fcstTime": "1030", "nx": 60, "ny": 127}
			]},
			"totalCount": 2
		}
	}
}`

func TestClient_Observations(t *testing.T) {
	// Freeze time so the slot parameters are deterministic: 10:25 KST minus
	// the 40-minute lag is 09:45, which truncates to the 09:30 slot.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, 8, 31, 10, 25, 0, 0, time.FixedZone("KST", 9*60*60))))
	defer domain.SetClock(nil)

	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getUltraSrtFcst", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"serviceKey": q.Get("serviceKey"),
			"dataType":   q.Get("dataType"),
			"base_date":  q.Get("base_date"),
			"base_time":  q.Get("base_time"),
			"nx":         q.Get("nx"),
			"ny":         q.Get("ny"),
		}
		w.Write([]byte(successBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	items, err := c.Observations(context.Background(), domain.GridCell{X: 60, Y: 127})

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ObservationItem{
		Category:     "T1H",
		Value:        "16.0",
		ForecastDate: "20260831",
		ForecastTime: "1030",
	}, items[0])

	assert.Equal(t, map[string]string{
		"serviceKey": "test-key",
		"dataType":   "JSON",
		"base_date":  "20260831",
		"base_time":  "0930",
		"nx":         "60",
		"ny":         "127",
	}, gotQuery)
}

func TestClient_Observations_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": {"header": {"resultCode": "30", "resultMsg": "SERVICE_KEY_IS_NOT_REGISTERED_ERROR"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Observations(context.Background(), domain.GridCell{X: 60, Y: 127})

	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
	assert.Contains(t, err.Error(), "30")
}

func TestClient_Observations_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Observations(context.Background(), domain.GridCell{X: 60, Y: 127})

	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
}

func TestClient_Observations_NonJSONBody(t *testing.T) {
	// The service answers some errors as XML despite dataType=JSON, so a
	// decode failure counts as an upstream error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<OpenAPI_ServiceResponse>...</OpenAPI_ServiceResponse>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Observations(context.Background(), domain.GridCell{X: 60, Y: 127})

	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
}

func TestClient_Observations_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := newTestClient(t, srv.URL)
	_, err := c.Observations(context.Background(), domain.GridCell{X: 60, Y: 127})

	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
}
