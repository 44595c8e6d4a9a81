// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sitemode holds the gate's persisted state: whether the site is
// online, which placeholder applies when it is not, and the operator actions
// that move between the three states. Reads are total. A missing or mangled
// stored record degrades to defaults field by field, never to an error.
package sitemode

// Mode selects which placeholder template applies while the gate is closed.
type Mode string

const (
	ModeMaintenance Mode = "maintenance"
	ModeDevelopment Mode = "development"
)

// ParseMode clamps arbitrary input to a valid Mode. Anything that is not
// exactly "development" becomes maintenance.
func ParseMode(s string) Mode {
	if s == string(ModeDevelopment) {
		return ModeDevelopment
	}
	return ModeMaintenance
}

// Badge returns the badge text shown on the placeholder page for this mode.
func (m Mode) Badge() string {
	if m == ModeDevelopment {
		return "DESENVOLVIMENTO"
	}
	return "MANUTENÇÃO"
}

// Status is the derived public state of the site. It is never stored;
// Settings.Status computes it from the enabled flag and the mode.
type Status string

const (
	StatusOnline      Status = "online"
	StatusMaintenance Status = "maintenance"
	StatusDevelopment Status = "development"
)

// Target names a state an operator can switch the site to. Unlike Mode it
// includes online, and unlike ParseMode an unknown target is not clamped:
// the switch treats it as a forged link and ignores it.
type Target string

const (
	TargetOnline      Target = "online"
	TargetMaintenance Target = "maintenance"
	TargetDevelopment Target = "development"
)

// ValidTarget reports whether s names one of the three switchable states.
func ValidTarget(s string) bool {
	switch Target(s) {
	case TargetOnline, TargetMaintenance, TargetDevelopment:
		return true
	}
	return false
}
