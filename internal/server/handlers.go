// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Barclays/research-data-science/internal/analysis"
	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/registry"
	"github.com/Barclays/research-data-science/internal/source"
)

const requestDateLayout = "2006-01-02"

type panelRequest struct {
	// Index selects a membership universe: "sp500", "sp1500" or a
	// Datastream index-list code or name. Leave empty to build the panel
	// from explicit keys instead.
	Index     string            `json:"index"`
	KeyName   string            `json:"keyName"`
	Keys      []string          `json:"keys"`
	Start     string            `json:"start"`
	End       string            `json:"end"`
	Frequency string            `json:"frequency"`
	Features  []string          `json:"features"`
	Trailing  []trailingRequest `json:"trailing"`
}

// trailingRequest asks for a trailing-window aggregation of an attached
// measure, computed per security over the window's past days.
type trailingRequest struct {
	Measure   string `json:"measure"`
	Out       string `json:"out"`
	Days      int    `json:"days"`
	Aggregate string `json:"aggregate"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(errorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    err.Error(),
	})
}

// statusForError maps domain failures to response codes: bad inputs to 400,
// requests for disabled modules to 422, everything else to 500.
func statusForError(err error) int {
	var notEnabled registry.NotEnabledError
	switch {
	case errors.As(err, &notEnabled):
		return http.StatusUnprocessableEntity
	case errors.Is(err, source.ErrUnknownFeature),
		errors.Is(err, panel.ErrUnsupportedKeyName),
		errors.Is(err, panel.ErrBadDateRange),
		errors.Is(err, panel.ErrNotValid),
		errors.Is(err, analysis.ErrBadArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleBuildPanel(c *fiber.Ctx) error {
	var request panelRequest
	if err := c.BodyParser(&request); err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("error parsing request body: %w", err))
	}

	start, err := time.Parse(requestDateLayout, request.Start)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("error parsing start date: %w", err))
	}
	end, err := time.Parse(requestDateLayout, request.End)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("error parsing end date: %w", err))
	}

	freq := panel.Frequency(request.Frequency)
	if request.Frequency == "" {
		freq = panel.MonthEnd
	}

	ctx := c.UserContext()
	p, err := s.buildBasePanel(c, request, start, end, freq)
	if err != nil {
		return errorJSON(c, statusForError(err), err)
	}

	if err := s.registry.ApplyFeatures(ctx, p, request.Features); err != nil {
		return errorJSON(c, statusForError(err), err)
	}

	for _, trailing := range request.Trailing {
		if err := s.applyTrailing(ctx, p, trailing); err != nil {
			return errorJSON(c, statusForError(err), err)
		}
	}

	if c.Query("format") == "csv" {
		buffer := new(bytes.Buffer)
		if err := p.WriteCSV(buffer); err != nil {
			return errorJSON(c, http.StatusInternalServerError, err)
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		return c.Status(http.StatusOK).Send(buffer.Bytes())
	}
	return c.Status(http.StatusOK).JSON(p)
}

func (s *Server) buildBasePanel(c *fiber.Ctx, request panelRequest, start, end time.Time, freq panel.Frequency) (*panel.Panel, error) {
	if request.Index == "" {
		return panel.New(request.KeyName, request.Keys, start, end, freq)
	}

	qadModule, err := s.registry.QAD()
	if err != nil {
		return nil, err
	}

	ctx := c.UserContext()
	switch strings.ToLower(request.Index) {
	case "sp500":
		return qadModule.SP500Panel(ctx, start, end, freq)
	case "sp1500":
		return qadModule.SP1500Panel(ctx, start, end, freq)
	}
	return qadModule.DatastreamIndexPanel(ctx, request.Index, start, end, freq)
}

// applyTrailing runs a trailing-window aggregation over the panel on the
// registry's bulk-execution backend.
func (s *Server) applyTrailing(ctx context.Context, p *panel.Panel, request trailingRequest) error {
	var fn func([]float64) float64
	switch request.Aggregate {
	case "", "mean":
		fn = analysis.Mean
	case "max":
		fn = analysis.Max
	default:
		return fmt.Errorf("%w: unknown aggregate %q", analysis.ErrBadArgument, request.Aggregate)
	}

	out := request.Out
	if out == "" {
		out = fmt.Sprintf("%s_trailing_%dd", request.Measure, request.Days)
	}

	window := analysis.Window{Past: time.Duration(request.Days) * 24 * time.Hour}
	return analysis.ApplyTimeWindowed(ctx, s.registry.Backend(), p, request.Measure, out, window, fn)
}

func (s *Server) handleFredSeries(c *fiber.Ctx) error {
	fredModule, err := s.registry.Fred()
	if err != nil {
		return errorJSON(c, statusForError(err), err)
	}

	start, err := time.Parse(requestDateLayout, c.Query("start"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("error parsing start date: %w", err))
	}
	end, err := time.Parse(requestDateLayout, c.Query("end"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("error parsing end date: %w", err))
	}

	seriesID := c.Params("id")
	observations, err := fredModule.SeriesObservations(c.UserContext(), seriesID, start, end)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"series":       seriesID,
		"observations": observations,
	})
}

func (s *Server) handleFredSearch(c *fiber.Ctx) error {
	fredModule, err := s.registry.Fred()
	if err != nil {
		return errorJSON(c, statusForError(err), err)
	}

	text := c.Query("q")
	if text == "" {
		return errorJSON(c, http.StatusBadRequest, errors.New("missing query parameter q"))
	}

	series, err := fredModule.Search(c.UserContext(), text)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"series": series})
}
