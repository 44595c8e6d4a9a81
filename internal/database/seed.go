package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"porteiro/internal/sitemode"
)

// Seed populates the database with initial development data. It creates a
// default admin user, a published home page and the default gate settings
// if no users exist yet. The admin will be prompted to set up 2FA on first
// login (totp_enabled = false).
func Seed(db *sql.DB, siteID string) error {
	// Check if any users exist already.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	// Hash the default admin password.
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	// Insert default admin user. 2FA is not enabled — they must set it up
	// on first login.
	var adminID string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, "admin@porteiro.local", string(hash), "Admin", "admin", false).Scan(&adminID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	// A published home page, so the site answers something while online.
	_, err = db.Exec(`
		INSERT INTO pages (site_id, title, slug, body, body_format, status, author_id, published_at)
		VALUES ($1, $2, $3, $4, 'markdown', 'published', $5, NOW())
	`, siteID, "Bem-vindo", "home",
		"# Bem-vindo\n\nEste site é servido pelo Porteiro.", adminID)
	if err != nil {
		return fmt.Errorf("seed insert home page: %w", err)
	}

	// Gate settings start from the defaults: site online, maintenance
	// template remembered.
	for key, value := range sitemode.Defaults().KV() {
		if _, err := db.Exec(`
			INSERT INTO site_settings (site_id, key, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (site_id, key) DO NOTHING
		`, siteID, key, value); err != nil {
			return fmt.Errorf("seed insert setting %s: %w", key, err)
		}
	}

	slog.Info("database seeded with default admin user",
		"email", "admin@porteiro.local",
		"password", "admin",
	)

	return nil
}
