// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package fred implements the FRED data-source module over the St. Louis
// Fed web service. The client fetches every archived release of a series,
// the module on top reduces them to point-in-time panel features.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Barclays/research-data-science/internal/secrets"
)

// The realtime bounds that make the observations endpoint return every
// archived release instead of only the latest one.
const (
	realtimeEarliest = "1776-07-04"
	realtimeLatest   = "9999-12-31"
)

const dateLayout = "2006-01-02"

// ReleaseObservation is one archived release of a series value: the value
// reported for Date, first published on RealtimeStart.
type ReleaseObservation struct {
	Date          time.Time
	RealtimeStart time.Time
	Value         float64
}

// Series is a FRED search result.
type Series struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Frequency string `json:"frequency"`
	Units     string `json:"units"`
}

// Client is the volatile data layer for FRED.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds the FRED client, resolving the API key through the
// secrets provider and routing through the configured proxy when set.
func NewClient(cfg Config, provider secrets.Provider) (*Client, error) {
	apiKey, err := provider.FetchSecret(cfg.APIKeySecret)
	if err != nil {
		return nil, fmt.Errorf("error resolving fred api key: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("error parsing fred proxy url: %w", err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		http:    httpClient,
	}, nil
}

// Observations fetches every archived release of the series between start
// and end. Missing values, reported as ".", are skipped.
func (c *Client) Observations(ctx context.Context, seriesID string, start, end time.Time) ([]ReleaseObservation, error) {
	query := url.Values{
		"series_id":         {seriesID},
		"observation_start": {start.Format(dateLayout)},
		"observation_end":   {end.Format(dateLayout)},
		"realtime_start":    {realtimeEarliest},
		"realtime_end":      {realtimeLatest},
	}

	var payload struct {
		Observations []struct {
			Date          string `json:"date"`
			RealtimeStart string `json:"realtime_start"`
			Value         string `json:"value"`
		} `json:"observations"`
	}
	if err := c.get(ctx, "/series/observations", query, &payload); err != nil {
		return nil, err
	}

	observations := make([]ReleaseObservation, 0, len(payload.Observations))
	for _, obs := range payload.Observations {
		if obs.Value == "." {
			continue
		}

		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing observation value %q: %w", obs.Value, err)
		}
		date, err := time.Parse(dateLayout, obs.Date)
		if err != nil {
			return nil, fmt.Errorf("error parsing observation date %q: %w", obs.Date, err)
		}
		realtimeStart, err := time.Parse(dateLayout, obs.RealtimeStart)
		if err != nil {
			return nil, fmt.Errorf("error parsing realtime start %q: %w", obs.RealtimeStart, err)
		}

		observations = append(observations, ReleaseObservation{
			Date:          date,
			RealtimeStart: realtimeStart,
			Value:         value,
		})
	}
	return observations, nil
}

// Search performs a full-text search over series titles and descriptions.
func (c *Client) Search(ctx context.Context, text string) ([]Series, error) {
	var payload struct {
		Series []Series `json:"seriess"`
	}
	if err := c.get(ctx, "/series/search", url.Values{"search_text": {text}}, &payload); err != nil {
		return nil, err
	}
	return payload.Series, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("api_key", c.apiKey)
	query.Set("file_type", "json")

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("error creating fred request: %w", err)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return fmt.Errorf("error calling fred: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("fred returned status %d: %s", response.StatusCode, body)
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding fred response: %w", err)
	}
	return nil
}
