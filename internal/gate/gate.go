// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package gate decides, per request, whether the site is served normally or
// replaced by the maintenance/development placeholder. The decision is a
// pure function of the gate settings, the internal-request classification
// and the caller's identity; the middleware in this package wires those
// three inputs into the router chain.
package gate

import "porteiro/internal/sitemode"

// Identity carries the two facts about the caller the gate cares about.
// It deliberately knows nothing about users, roles or sessions.
type Identity struct {
	Authenticated bool
	Elevated      bool
}

// Decision is the outcome of the gate for one request.
type Decision int

const (
	// Pass lets the request through to the real site.
	Pass Decision = iota
	// Intercept replaces the response with the placeholder page.
	Intercept
)

func (d Decision) String() string {
	if d == Intercept {
		return "intercept"
	}
	return "pass"
}

// Decide applies the gate rules in order: a disabled gate passes everything;
// internal requests always pass so operators and platform tooling can never
// lock themselves out; elevated callers pass; everyone else is intercepted.
func Decide(s sitemode.Settings, internal bool, id Identity) Decision {
	if !s.Enabled {
		return Pass
	}
	if internal {
		return Pass
	}
	if id.Elevated {
		return Pass
	}
	return Intercept
}
