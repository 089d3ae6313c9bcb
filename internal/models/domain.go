package models

import (
	"time"

	"github.com/google/uuid"
)

// Domain is a customer-owned publish target. Publishing requires the
// domain to be verified.
type Domain struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	OwnerID   uuid.UUID `db:"owner_id"   json:"owner_id"`
	Name      string    `db:"name"       json:"name"`
	Verified  bool      `db:"verified"   json:"verified"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Subdirectory is a registered path under a domain that pages can be
// published into.
type Subdirectory struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	DomainID  uuid.UUID `db:"domain_id"  json:"domain_id"`
	Path      string    `db:"path"       json:"path"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DomainCreateRequest is the payload for registering a domain.
type DomainCreateRequest struct {
	Name string `binding:"required" json:"name"`
}
