// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sitemode

import "porteiro/internal/models"

// Settings key names in the site_settings table. The gate. prefix keeps
// them grouped next to whatever other settings a site accumulates.
const (
	keyEnabled      = "gate.enabled"
	keyMode         = "gate.mode"
	keyTitleMaint   = "gate.title_maintenance"
	keyMessageMaint = "gate.message_maintenance"
	keyTitleDev     = "gate.title_development"
	keyMessageDev   = "gate.message_development"
)

// Settings is the complete gate state for one site. Every field is always
// valid: construction goes through FromKV or Defaults, both of which clamp.
type Settings struct {
	Enabled            bool   `json:"enabled"`
	Mode               Mode   `json:"mode"`
	TitleMaintenance   string `json:"title_maintenance"`
	MessageMaintenance string `json:"message_maintenance"`
	TitleDevelopment   string `json:"title_development"`
	MessageDevelopment string `json:"message_development"`
}

// Defaults returns the record used when nothing is stored yet. Titles are
// plain text; messages are restricted HTML as rendered on the placeholder.
func Defaults() Settings {
	return Settings{
		Enabled:            false,
		Mode:               ModeMaintenance,
		TitleMaintenance:   "Site em manutenção",
		MessageMaintenance: "<p>Estamos realizando melhorias no momento. Voltamos em alguns instantes.</p>",
		TitleDevelopment:   "Site em desenvolvimento",
		MessageDevelopment: "<p>Este site ainda está em construção. Volte em breve para conferir as novidades.</p>",
	}
}

// FromKV overlays stored values onto the defaults. Absent or empty keys keep
// the default; the mode is clamped; the enabled flag parses "1"/"true"/"on".
func FromKV(raw models.Settings) Settings {
	s := Defaults()
	if raw == nil {
		return s
	}
	s.Enabled = parseBool(raw.Get(keyEnabled, "0"))
	s.Mode = ParseMode(raw.Get(keyMode, string(ModeMaintenance)))
	s.TitleMaintenance = raw.Get(keyTitleMaint, s.TitleMaintenance)
	s.MessageMaintenance = raw.Get(keyMessageMaint, s.MessageMaintenance)
	s.TitleDevelopment = raw.Get(keyTitleDev, s.TitleDevelopment)
	s.MessageDevelopment = raw.Get(keyMessageDev, s.MessageDevelopment)
	return s
}

// KV returns the storage representation of the record, one value per key.
func (s Settings) KV() map[string]string {
	return map[string]string{
		keyEnabled:      boolValue(s.Enabled),
		keyMode:         string(s.Mode),
		keyTitleMaint:   s.TitleMaintenance,
		keyMessageMaint: s.MessageMaintenance,
		keyTitleDev:     s.TitleDevelopment,
		keyMessageDev:   s.MessageDevelopment,
	}
}

// Status derives the public state from the stored flags.
func (s Settings) Status() Status {
	if !s.Enabled {
		return StatusOnline
	}
	if s.Mode == ModeDevelopment {
		return StatusDevelopment
	}
	return StatusMaintenance
}

// ActiveTitle returns the placeholder title for the current mode.
func (s Settings) ActiveTitle() string {
	if s.Mode == ModeDevelopment {
		return s.TitleDevelopment
	}
	return s.TitleMaintenance
}

// ActiveMessage returns the placeholder message for the current mode.
func (s Settings) ActiveMessage() string {
	if s.Mode == ModeDevelopment {
		return s.MessageDevelopment
	}
	return s.MessageMaintenance
}

func parseBool(s string) bool {
	switch s {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
