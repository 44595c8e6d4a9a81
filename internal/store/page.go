// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"porteiro/internal/models"
)

const pageColumns = `id, site_id, title, slug, body, body_format, status,
       meta_description, author_id, publish_at, published_at, created_at, updated_at`

// PageStore handles all page-related database operations.
type PageStore struct {
	db *sql.DB
}

// NewPageStore creates a new PageStore with the given database connection.
func NewPageStore(db *sql.DB) *PageStore {
	return &PageStore{db: db}
}

func scanPage(row interface{ Scan(...any) error }) (*models.Page, error) {
	p := &models.Page{}
	err := row.Scan(
		&p.ID, &p.SiteID, &p.Title, &p.Slug, &p.Body, &p.BodyFormat, &p.Status,
		&p.MetaDescription, &p.AuthorID, &p.PublishAt, &p.PublishedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all pages for a site, most recently updated first.
func (s *PageStore) List(siteID string) ([]models.Page, error) {
	rows, err := s.db.Query(`
		SELECT `+pageColumns+`
		FROM pages
		WHERE site_id = $1
		ORDER BY updated_at DESC
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()
	return collectPages(rows)
}

// ListPublished returns the published pages of a site, newest first. Used
// for the public index.
func (s *PageStore) ListPublished(siteID string) ([]models.Page, error) {
	rows, err := s.db.Query(`
		SELECT `+pageColumns+`
		FROM pages
		WHERE site_id = $1 AND status = 'published'
		ORDER BY published_at DESC NULLS LAST
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list published pages: %w", err)
	}
	defer rows.Close()
	return collectPages(rows)
}

func collectPages(rows *sql.Rows) ([]models.Page, error) {
	var pages []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// FindByID retrieves a page by its UUID. Returns nil if not found.
func (s *PageStore) FindByID(id uuid.UUID) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRow(`
		SELECT `+pageColumns+`
		FROM pages WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page by id: %w", err)
	}
	return p, nil
}

// FindPublishedBySlug retrieves a published page by slug. Used for public
// rendering; drafts and scheduled pages stay invisible here.
func (s *PageStore) FindPublishedBySlug(siteID, slug string) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRow(`
		SELECT `+pageColumns+`
		FROM pages WHERE site_id = $1 AND slug = $2 AND status = 'published'
	`, siteID, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page by slug: %w", err)
	}
	return p, nil
}

// SlugTaken reports whether another page of the site already uses the slug.
func (s *PageStore) SlugTaken(siteID, slug string, excludeID uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pages WHERE site_id = $1 AND slug = $2 AND id <> $3
	`, siteID, slug, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new page and returns it with the generated ID.
func (s *PageStore) Create(p *models.Page) (*models.Page, error) {
	if p.Status == models.PageStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}

	created, err := scanPage(s.db.QueryRow(`
		INSERT INTO pages (site_id, title, slug, body, body_format, status,
		                   meta_description, author_id, publish_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+pageColumns,
		p.SiteID, p.Title, p.Slug, p.Body, p.BodyFormat, p.Status,
		p.MetaDescription, p.AuthorID, p.PublishAt, p.PublishedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return created, nil
}

// Update modifies an existing page.
func (s *PageStore) Update(p *models.Page) error {
	if p.Status == models.PageStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}

	_, err := s.db.Exec(`
		UPDATE pages SET
			title = $1, slug = $2, body = $3, body_format = $4, status = $5,
			meta_description = $6, publish_at = $7, published_at = $8,
			updated_at = NOW()
		WHERE id = $9
	`, p.Title, p.Slug, p.Body, p.BodyFormat, p.Status,
		p.MetaDescription, p.PublishAt, p.PublishedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return nil
}

// Delete removes a page by ID.
func (s *PageStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return nil
}

// ListDue returns scheduled pages across all sites whose publish time has
// passed. The publish-due job promotes them.
func (s *PageStore) ListDue(now time.Time) ([]models.Page, error) {
	rows, err := s.db.Query(`
		SELECT `+pageColumns+`
		FROM pages
		WHERE status = 'scheduled' AND publish_at IS NOT NULL AND publish_at <= $1
		ORDER BY publish_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list due pages: %w", err)
	}
	defer rows.Close()
	return collectPages(rows)
}

// MarkPublished promotes a scheduled page to published at the given time.
func (s *PageStore) MarkPublished(id uuid.UUID, now time.Time) error {
	_, err := s.db.Exec(`
		UPDATE pages SET status = 'published', published_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'scheduled'
	`, now, id)
	if err != nil {
		return fmt.Errorf("mark page published: %w", err)
	}
	return nil
}

// CountByStatus returns the number of pages of a site in a given status.
func (s *PageStore) CountByStatus(siteID string, status models.PageStatus) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pages WHERE site_id = $1 AND status = $2
	`, siteID, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}
