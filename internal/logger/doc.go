// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the structured logging surface used across the
// data-access layer, together with helpers to carry a logger inside a
// context.Context.
package logger
