// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"fmt"

	"github.com/vigialabs/vigia-go/internal/logging"
)

// Policy selects how the Guard handles panics escaping SDK entry points.
type Policy int

const (
	// PolicyProduction swallows the panic after reporting it out-of-band,
	// so an SDK defect can never crash the host application.
	PolicyProduction Policy = iota

	// PolicyAllowUncaught surfaces the panic as a wrapped error, for
	// development and integration testing.
	PolicyAllowUncaught
)

// Guard protects public SDK entry points against panics in the engine.
type Guard struct {
	policy Policy
	ping   *Ping
}

// NewGuard builds a Guard. ping may be nil, in which case production
// policy only logs.
func NewGuard(policy Policy, ping *Ping) *Guard {
	return &Guard{policy: policy, ping: ping}
}

// RunProtected runs fn, converting a panic into an error per policy. The
// label names the operation in logs and ping reports. An error returned by
// fn passes through unchanged.
func (g *Guard) RunProtected(label string, fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		failure := fmt.Errorf("internal failure in %s: %v", label, r)
		if g.policy == PolicyAllowUncaught {
			err = failure
			return
		}
		logging.Error().Str("op", label).Msg(failure.Error())
		if g.ping != nil {
			g.ping.Send(failure.Error())
		}
		err = nil
	}()
	return fn()
}
