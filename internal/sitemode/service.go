// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sitemode

import (
	"fmt"
	"log/slog"

	"porteiro/internal/models"
	"porteiro/internal/sanitize"
)

// KV is the settings storage the service reads and writes. The database
// store satisfies it directly; the Valkey-backed settings cache wraps it.
type KV interface {
	All(siteID string) (models.Settings, error)
	SetMany(siteID string, values map[string]string) error
}

// Service resolves, saves and switches gate state for a site.
type Service struct {
	kv KV
}

// NewService returns a Service backed by the given settings storage.
func NewService(kv KV) *Service {
	return &Service{kv: kv}
}

// Resolve returns the complete gate settings for a site. It never fails:
// a storage error is logged and the defaults are served, so the gate keeps
// a defined answer under any store condition.
func (s *Service) Resolve(siteID string) Settings {
	raw, err := s.kv.All(siteID)
	if err != nil {
		slog.Error("settings read failed, serving defaults", "site", siteID, "error", err)
		return Defaults()
	}
	return FromKV(raw)
}

// Input is the raw form/API payload for a settings save. All fields arrive
// as strings; Save coerces each one independently.
type Input struct {
	Enabled            string
	Mode               string
	TitleMaintenance   string
	MessageMaintenance string
	TitleDevelopment   string
	MessageDevelopment string
}

// Save sanitizes every field of input and persists the result. Sanitization
// itself cannot fail (bad values clamp or fall back to defaults), so the
// only error is a storage one. The returned Settings is the record a
// subsequent Resolve would observe.
func (s *Service) Save(siteID string, input Input) (Settings, error) {
	clean := Settings{
		Enabled:            parseBool(input.Enabled),
		Mode:               ParseMode(input.Mode),
		TitleMaintenance:   sanitize.Plain(input.TitleMaintenance),
		MessageMaintenance: sanitize.Rich(input.MessageMaintenance),
		TitleDevelopment:   sanitize.Plain(input.TitleDevelopment),
		MessageDevelopment: sanitize.Rich(input.MessageDevelopment),
	}

	if err := s.kv.SetMany(siteID, clean.KV()); err != nil {
		return clean.resolved(), fmt.Errorf("save gate settings: %w", err)
	}
	return clean.resolved(), nil
}

// Switch moves the site to target. Online lowers the gate but preserves the
// stored mode, so re-enabling remembers the last template choice. An unknown
// target writes nothing and reports applied=false; it is indistinguishable
// from a forged link and is not an error.
func (s *Service) Switch(siteID, target string) (Settings, bool, error) {
	cur := s.Resolve(siteID)

	var values map[string]string
	switch Target(target) {
	case TargetOnline:
		cur.Enabled = false
		values = map[string]string{keyEnabled: boolValue(false)}
	case TargetMaintenance:
		cur.Enabled = true
		cur.Mode = ModeMaintenance
		values = map[string]string{keyEnabled: boolValue(true), keyMode: string(ModeMaintenance)}
	case TargetDevelopment:
		cur.Enabled = true
		cur.Mode = ModeDevelopment
		values = map[string]string{keyEnabled: boolValue(true), keyMode: string(ModeDevelopment)}
	default:
		slog.Warn("ignoring unknown mode target", "site", siteID, "target", target)
		return cur, false, nil
	}

	if err := s.kv.SetMany(siteID, values); err != nil {
		return cur, false, fmt.Errorf("switch mode: %w", err)
	}
	return cur, true, nil
}

// resolved applies the read-path fallbacks to a just-sanitized record, so
// Save returns exactly what Resolve would: empty sanitized titles and
// messages show up as their defaults.
func (s Settings) resolved() Settings {
	d := Defaults()
	if s.TitleMaintenance == "" {
		s.TitleMaintenance = d.TitleMaintenance
	}
	if s.MessageMaintenance == "" {
		s.MessageMaintenance = d.MessageMaintenance
	}
	if s.TitleDevelopment == "" {
		s.TitleDevelopment = d.TitleDevelopment
	}
	if s.MessageDevelopment == "" {
		s.MessageDevelopment = d.MessageDevelopment
	}
	return s
}
