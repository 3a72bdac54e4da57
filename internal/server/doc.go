// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the data-access layer over HTTP using the Fiber
// framework. It wires the request-logging middleware, health-check routes
// and the panel and FRED endpoints.
package server
