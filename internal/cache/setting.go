// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// setting.go provides a Valkey-backed read-through cache for site settings.
// The gate consults settings on every request, so reads must not hit
// Postgres each time. Writes go to the source first and then drop the
// cached entry, so the next read repopulates from fresh data.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"porteiro/internal/models"
)

const (
	// settingKeyPrefix is the Valkey key prefix for cached settings.
	settingKeyPrefix = "settings:"

	// DefaultSettingTTL bounds how stale a settings read can be if an
	// invalidation is lost (e.g. Valkey restart between write and delete).
	DefaultSettingTTL = 30 * time.Second
)

// SettingSource is the persistent store the cache sits in front of.
type SettingSource interface {
	All(siteID string) (models.Settings, error)
	SetMany(siteID string, values map[string]string) error
}

// SettingCache caches settings per site in Valkey. It satisfies the same
// contract as the underlying store, so callers do not know it is there.
type SettingCache struct {
	client *redis.Client
	source SettingSource
	ttl    time.Duration
}

// NewSettingCache creates a settings cache over source backed by client.
func NewSettingCache(client *redis.Client, source SettingSource, ttl time.Duration) *SettingCache {
	if ttl == 0 {
		ttl = DefaultSettingTTL
	}
	return &SettingCache{client: client, source: source, ttl: ttl}
}

// All returns the settings of a site, serving from Valkey when possible.
// A cache failure is logged and falls back to the source; a source failure
// is returned to the caller untouched.
func (sc *SettingCache) All(siteID string) (models.Settings, error) {
	ctx := context.Background()
	key := settingKeyPrefix + siteID

	val, err := sc.client.Get(ctx, key).Bytes()
	if err == nil {
		var settings models.Settings
		if jsonErr := json.Unmarshal(val, &settings); jsonErr == nil {
			slog.Debug("settings cache hit", "site", siteID)
			return settings, nil
		}
		slog.Warn("settings cache corrupt entry", "site", siteID)
	} else if err != redis.Nil {
		slog.Warn("settings cache get error", "site", siteID, "error", err)
	}

	settings, err := sc.source.All(siteID)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(settings); jsonErr == nil {
		if setErr := sc.client.Set(ctx, key, data, sc.ttl).Err(); setErr != nil {
			slog.Warn("settings cache set error", "site", siteID, "error", setErr)
		}
	}
	return settings, nil
}

// SetMany writes settings to the source and invalidates the cached site.
// The delete happens after the write so a concurrent read cannot
// repopulate the cache with data older than what was just stored.
func (sc *SettingCache) SetMany(siteID string, values map[string]string) error {
	if err := sc.source.SetMany(siteID, values); err != nil {
		return err
	}
	if err := sc.client.Del(context.Background(), settingKeyPrefix+siteID).Err(); err != nil {
		slog.Warn("settings cache invalidate error", "site", siteID, "error", err)
	}
	return nil
}
