// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// BodyFormat selects how a page body is rendered.
type BodyFormat string

const (
	BodyFormatMarkdown BodyFormat = "markdown"
	BodyFormatHTML     BodyFormat = "html"
)

// PageStatus represents the publishing state of a page.
type PageStatus string

const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusScheduled PageStatus = "scheduled"
	PageStatusPublished PageStatus = "published"
)

// Page represents a published document on the site. Scheduled pages carry a
// future PublishAt and are promoted to published by the publish-due job.
type Page struct {
	ID              uuid.UUID  `json:"id"`
	SiteID          string     `json:"site_id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Body            string     `json:"body"`
	BodyFormat      BodyFormat `json:"body_format"`
	Status          PageStatus `json:"status"`
	MetaDescription *string    `json:"meta_description,omitempty"`
	AuthorID        uuid.UUID  `json:"author_id"`
	PublishAt       *time.Time `json:"publish_at,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsPublished returns true if the page is in published status.
func (p *Page) IsPublished() bool {
	return p.Status == PageStatusPublished
}

// Due returns true if the page is scheduled and its publish time has passed.
func (p *Page) Due(now time.Time) bool {
	return p.Status == PageStatusScheduled && p.PublishAt != nil && !p.PublishAt.After(now)
}
