// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"time"

	"porteiro/internal/models"
)

// SettingStore manages per-site configuration in the database. It backs the
// gate's settings resolution, so every method is scoped by site.
type SettingStore struct {
	db *sql.DB
}

// NewSettingStore returns a new SettingStore backed by the given database.
func NewSettingStore(db *sql.DB) *SettingStore {
	return &SettingStore{db: db}
}

// All returns every setting for a site as a convenience map.
func (s *SettingStore) All(siteID string) (models.Settings, error) {
	rows, err := s.db.Query(`SELECT key, value FROM site_settings WHERE site_id = $1 ORDER BY key`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(models.Settings)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// Get returns a single setting by key, or the fallback if not found.
func (s *SettingStore) Get(siteID, key, fallback string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM site_settings WHERE site_id = $1 AND key = $2`, siteID, key).Scan(&val)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	if val == "" {
		return fallback, nil
	}
	return val, nil
}

// Set upserts a single setting. Creates it if it doesn't exist.
func (s *SettingStore) Set(siteID, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO site_settings (site_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (site_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		siteID, key, value, time.Now(),
	)
	return err
}

// SetMany updates multiple settings in a single transaction. Concurrent
// writers resolve last-writer-wins per key.
func (s *SettingStore) SetMany(siteID string, values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO site_settings (site_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (site_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for k, v := range values {
		if _, err := stmt.Exec(siteID, k, v, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
