package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the lifecycle state of a content item.
type ItemStatus string

const (
	StatusPlanned   ItemStatus = "planned"
	StatusReady     ItemStatus = "ready"
	StatusGenerated ItemStatus = "generated"
	StatusPublished ItemStatus = "published"
)

// ContentItem is the unit of publishable content.
//
// Invariants: AssembledHTML is non-null exactly when status is generated
// or published; the publish fields are non-null exactly when status is
// published.
type ContentItem struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	OwnerID         uuid.UUID  `db:"owner_id"         json:"owner_id"`
	Slug            string     `db:"slug"             json:"slug"`
	Title           string     `db:"title"            json:"title"`
	Status          ItemStatus `db:"status"           json:"status"`
	AssembledHTML   *string    `db:"assembled_html"   json:"assembled_html,omitempty"`
	PublishedDomain *string    `db:"published_domain" json:"published_domain,omitempty"`
	PublishedPath   *string    `db:"published_path"   json:"published_path,omitempty"`
	PublishedSlug   *string    `db:"published_slug"   json:"published_slug,omitempty"`
	PublishedAt     *time.Time `db:"published_at"     json:"published_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// PublishedURL returns the public address of a published item, or empty
// when the item is not published.
func (ci *ContentItem) PublishedURL() string {
	if ci.Status != StatusPublished || ci.PublishedDomain == nil || ci.PublishedPath == nil || ci.PublishedSlug == nil {
		return ""
	}
	if *ci.PublishedPath == "/" {
		return "https://" + *ci.PublishedDomain + "/" + *ci.PublishedSlug
	}
	return "https://" + *ci.PublishedDomain + *ci.PublishedPath + "/" + *ci.PublishedSlug
}
