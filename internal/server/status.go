// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type statusResponse struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

// statusRoutes adds the liveness and readiness probes under the /-/ prefix.
func statusRoutes(app *fiber.App, serviceName, version string) {
	handler := func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(statusResponse{
			Name:    serviceName,
			Status:  "OK",
			Version: version,
		})
	}

	app.Get("/-/healthz", handler)
	app.Get("/-/ready", handler)
}
