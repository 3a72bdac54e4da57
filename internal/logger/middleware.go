// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeaderName = "x-request-id"

	// RequestCompletedMessage is emitted once for every handled request.
	RequestCompletedMessage = "request completed"
)

// requestLog is the shape of the structured payload attached to request logs.
type requestLog struct {
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Bytes      int    `json:"bytes,omitempty"`
}

// requestID returns the request id from the incoming headers, generating a
// random one when the caller did not supply it.
func requestID(c *fiber.Ctx) string {
	if id := c.Get(requestIDHeaderName, ""); id != "" {
		return id
	}

	id, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Errorf("error generating request id: %w", err))
	}
	return id.String()
}

// RequestMiddlewareLogger is a fiber middleware to log all requests.
// It injects a request-scoped logger in the user context and logs the request
// outcome with its latency. Paths matching one of excludedPrefix are skipped.
func RequestMiddlewareLogger(logger Logger, excludedPrefix []string) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		path := string(c.Request().URI().RequestURI())
		for _, prefix := range excludedPrefix {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()

		reqLogger := logger.WithName("request").WithName(requestID(c))
		c.SetUserContext(WithContext(c.UserContext(), reqLogger))

		err := c.Next()

		statusCode := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); err != nil && ok {
			statusCode = fiberErr.Code
		}

		reqLogger.Info(RequestCompletedMessage,
			"http", requestLog{
				Method:     c.Method(),
				Path:       path,
				StatusCode: statusCode,
				Bytes:      len(c.Response().Body()),
			},
			"responseTime", float64(time.Since(start).Milliseconds()),
		)

		return err
	}
}
