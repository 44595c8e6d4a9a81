// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// gate_event.go records gate state changes in the database for audit and
// debugging purposes. Each entry captures who changed what, and when.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Gate event actions.
const (
	GateActionSwitch = "switch"
	GateActionSave   = "save"
)

// GateEventStore handles gate audit trail operations.
type GateEventStore struct {
	db *sql.DB
}

// NewGateEventStore creates a new GateEventStore.
func NewGateEventStore(db *sql.DB) *GateEventStore {
	return &GateEventStore{db: db}
}

// Log records a gate state change. Best-effort: an audit write failure must
// never block the mode switch or settings save that caused it.
func (s *GateEventStore) Log(siteID, actor, action, detail string) {
	_, err := s.db.Exec(`
		INSERT INTO gate_events (site_id, actor, action, detail)
		VALUES ($1, $2, $3, $4)
	`, siteID, actor, action, detail)
	if err != nil {
		slog.Warn("failed to log gate event",
			"site", siteID,
			"actor", actor,
			"action", action,
			"error", err,
		)
		return
	}
	slog.Debug("gate event logged",
		"site", siteID,
		"actor", actor,
		"action", action,
		"detail", detail,
	)
}

// Recent returns the most recent gate events for a site, newest first.
// Limited to the specified count.
func (s *GateEventStore) Recent(siteID string, limit int) ([]GateEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, site_id, actor, action, detail, created_at
		FROM gate_events
		WHERE site_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("query gate events: %w", err)
	}
	defer rows.Close()

	var events []GateEvent
	for rows.Next() {
		var e GateEvent
		if err := rows.Scan(&e.ID, &e.SiteID, &e.Actor, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gate event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GateEvent represents a single gate state change.
type GateEvent struct {
	ID        int64
	SiteID    string
	Actor     string
	Action    string
	Detail    string
	CreatedAt time.Time
}
