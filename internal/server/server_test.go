// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barclays/research-data-science/internal/config"
	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/registry"
	"github.com/Barclays/research-data-science/internal/source/fred"
	"github.com/Barclays/research-data-science/internal/source/qad"
)

func date(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeQAD serves the price feature and the S&P universes.
type fakeQAD struct{}

func (fakeQAD) Name() string       { return config.ModuleQAD }
func (fakeQAD) Features() []string { return []string{qad.FeatureClosingPrice} }
func (fakeQAD) Close()             {}

// ApplyFeature writes 42 on the first grid date and one more on every
// following date, so derived measures are distinguishable from the raw one.
func (fakeQAD) ApplyFeature(ctx context.Context, p *panel.Panel, feature string) error {
	observations := make([]panel.Observation, 0, len(p.Rows))
	for i, row := range p.Rows {
		observations = append(observations, panel.Observation{Key: row.Key, Date: row.Date, Value: 42 + float64(i)})
	}
	p.AsofMergeMeasure(ctx, feature, observations, panel.MergeOptions{AllowExactMatch: true})
	return nil
}

func (fakeQAD) SP500Panel(_ context.Context, start, end time.Time, freq panel.Frequency) (*panel.Panel, error) {
	return panel.New(panel.KeyNameCusip, []string{"037833100"}, start, end, freq)
}

func (fakeQAD) SP1500Panel(ctx context.Context, start, end time.Time, freq panel.Frequency) (*panel.Panel, error) {
	return fakeQAD{}.SP500Panel(ctx, start, end, freq)
}

func (fakeQAD) DatastreamIndexPanel(_ context.Context, _ string, start, end time.Time, freq panel.Frequency) (*panel.Panel, error) {
	return panel.New(panel.KeyNameSedol, []string{"B0YBKJ7"}, start, end, freq)
}

func (fakeQAD) SearchIndexes(context.Context, string) ([]qad.DatastreamIndex, error) {
	return nil, nil
}

// fakeFred serves a single canned series.
type fakeFred struct{}

func (fakeFred) Name() string       { return config.ModuleFred }
func (fakeFred) Features() []string { return []string{fred.FeatureGDP} }
func (fakeFred) Close()             {}

func (fakeFred) ApplyFeature(context.Context, *panel.Panel, string) error { return nil }

func (fakeFred) SeriesObservations(context.Context, string, time.Time, time.Time) ([]panel.Observation, error) {
	return []panel.Observation{{Date: date("2023-01-26"), Value: 26137.98}}, nil
}

func (fakeFred) Search(context.Context, string) ([]fred.Series, error) {
	return []fred.Series{{ID: "GDP", Title: "Gross Domestic Product"}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("HTTP_PORT", "3000")

	srv, err := NewServer(t.Context(), registry.FromModules(1, fakeQAD{}, fakeFred{}))
	require.NoError(t, err)
	return srv
}

func TestStatusRoutes(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/-/healthz", "/-/ready"} {
		response, err := srv.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusOK, response.StatusCode)

		var status statusResponse
		require.NoError(t, json.NewDecoder(response.Body).Decode(&status))
		assert.Equal(t, "ctrlaltdata", status.Name)
		assert.Equal(t, "OK", status.Status)
	}
}

func TestBuildPanel(t *testing.T) {
	t.Run("explicit keys with features", func(t *testing.T) {
		srv := newTestServer(t)

		body := `{
			"keyName": "cusip",
			"keys": ["037833100"],
			"start": "2023-01-31",
			"end": "2023-02-28",
			"frequency": "M",
			"features": ["closing_price"]
		}`
		request := httptest.NewRequest(http.MethodPost, "/panels", strings.NewReader(body))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		response, err := srv.App().Test(request)
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusOK, response.StatusCode)

		var result panel.Panel
		require.NoError(t, json.NewDecoder(response.Body).Decode(&result))
		assert.Equal(t, "cusip", result.KeyName)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, 42.0, result.Rows[0].Measures["closing_price"])
	})

	t.Run("trailing aggregation", func(t *testing.T) {
		srv := newTestServer(t)

		body := `{
			"keyName": "cusip",
			"keys": ["037833100"],
			"start": "2023-01-31",
			"end": "2023-02-28",
			"frequency": "M",
			"features": ["closing_price"],
			"trailing": [{"measure": "closing_price", "days": 31, "aggregate": "mean"}]
		}`
		request := httptest.NewRequest(http.MethodPost, "/panels", strings.NewReader(body))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		response, err := srv.App().Test(request)
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusOK, response.StatusCode)

		var result panel.Panel
		require.NoError(t, json.NewDecoder(response.Body).Decode(&result))
		require.Len(t, result.Rows, 2)
		assert.Equal(t, 42.0, result.Rows[0].Measures["closing_price_trailing_31d"],
			"january's window only sees its own quote")
		assert.Equal(t, 42.5, result.Rows[1].Measures["closing_price_trailing_31d"],
			"february's window averages both quotes")
	})

	t.Run("trailing with unknown aggregate", func(t *testing.T) {
		srv := newTestServer(t)

		body := `{
			"keyName": "cusip",
			"keys": ["037833100"],
			"start": "2023-01-31",
			"end": "2023-02-28",
			"features": ["closing_price"],
			"trailing": [{"measure": "closing_price", "days": 31, "aggregate": "median"}]
		}`
		request := httptest.NewRequest(http.MethodPost, "/panels", strings.NewReader(body))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		response, err := srv.App().Test(request)
		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("index universe as csv", func(t *testing.T) {
		srv := newTestServer(t)

		body := `{"index": "sp500", "start": "2023-01-31", "end": "2023-01-31", "frequency": "M"}`
		request := httptest.NewRequest(http.MethodPost, "/panels?format=csv", strings.NewReader(body))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		response, err := srv.App().Test(request)
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusOK, response.StatusCode)
		assert.Contains(t, response.Header.Get(fiber.HeaderContentType), "text/csv")

		payload, err := io.ReadAll(response.Body)
		require.NoError(t, err)
		assert.Contains(t, string(payload), "cusip,date,in_index")
		assert.Contains(t, string(payload), "037833100,2023-01-31,1")
	})

	t.Run("bad key name", func(t *testing.T) {
		srv := newTestServer(t)

		body := `{"keyName": "isin", "keys": ["X"], "start": "2023-01-31", "end": "2023-02-28"}`
		request := httptest.NewRequest(http.MethodPost, "/panels", strings.NewReader(body))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		response, err := srv.App().Test(request)
		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("unknown feature", func(t *testing.T) {
		srv := newTestServer(t)

		body := `{
			"keyName": "cusip", "keys": ["037833100"],
			"start": "2023-01-31", "end": "2023-02-28",
			"features": ["momentum"]
		}`
		request := httptest.NewRequest(http.MethodPost, "/panels", strings.NewReader(body))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		response, err := srv.App().Test(request)
		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("feature of disabled module", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "3000")
		srv, err := NewServer(t.Context(), registry.FromModules(1, fakeQAD{}))
		require.NoError(t, err)

		body := `{
			"keyName": "cusip", "keys": ["037833100"],
			"start": "2023-01-31", "end": "2023-02-28",
			"features": ["gdp"]
		}`
		request := httptest.NewRequest(http.MethodPost, "/panels", strings.NewReader(body))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		response, err := srv.App().Test(request)
		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, response.StatusCode)
	})
}

func TestFredEndpoints(t *testing.T) {
	t.Run("series", func(t *testing.T) {
		srv := newTestServer(t)

		response, err := srv.App().Test(httptest.NewRequest(http.MethodGet,
			"/fred/series/GDP?start=2023-01-01&end=2023-03-31", nil))
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusOK, response.StatusCode)

		var payload struct {
			Series       string              `json:"series"`
			Observations []panel.Observation `json:"observations"`
		}
		require.NoError(t, json.NewDecoder(response.Body).Decode(&payload))
		assert.Equal(t, "GDP", payload.Series)
		require.Len(t, payload.Observations, 1)
		assert.Equal(t, 26137.98, payload.Observations[0].Value)
	})

	t.Run("series with bad dates", func(t *testing.T) {
		srv := newTestServer(t)

		response, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/fred/series/GDP", nil))
		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("search", func(t *testing.T) {
		srv := newTestServer(t)

		response, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/fred/search?q=gdp", nil))
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusOK, response.StatusCode)

		var payload struct {
			Series []fred.Series `json:"series"`
		}
		require.NoError(t, json.NewDecoder(response.Body).Decode(&payload))
		require.Len(t, payload.Series, 1)
		assert.Equal(t, "GDP", payload.Series[0].ID)
	})

	t.Run("search without query", func(t *testing.T) {
		srv := newTestServer(t)

		response, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/fred/search", nil))
		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("fred disabled", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "3000")
		srv, err := NewServer(t.Context(), registry.FromModules(1, fakeQAD{}))
		require.NoError(t, err)

		response, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/fred/search?q=gdp", nil))
		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, response.StatusCode)
	})
}
