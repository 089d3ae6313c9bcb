package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FieldKind enumerates the known site context field kinds. Each kind has
// its own payload schema; unknown kinds are rejected at the store boundary
// rather than stored as opaque blobs.
type FieldKind string

const (
	FieldHomepageSummary FieldKind = "homepage_summary"
	FieldSitemap         FieldKind = "sitemap"
	FieldBrandAssets     FieldKind = "brand_assets"
	FieldHeroContent     FieldKind = "hero_content"
	FieldContactInfo     FieldKind = "contact_info"
)

// SiteContextField is one extracted fact about a target site, unique per
// (owner, scope, kind). Writes are upserts; the latest write wins.
type SiteContextField struct {
	OwnerID   uuid.UUID       `db:"owner_id"   json:"owner_id"`
	ScopeID   *uuid.UUID      `db:"scope_id"   json:"scope_id,omitempty"` // Nullable project/domain scope
	Kind      FieldKind       `db:"field_kind" json:"kind"`
	Payload   json.RawMessage `db:"payload"    json:"payload"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// FieldPayload is the tagged-variant interface implemented by every known
// payload schema.
type FieldPayload interface {
	Kind() FieldKind
	Validate() error
}

// HomepageSummary captures the parsed homepage: title, description and the
// visible text features later phases and the generator build on.
type HomepageSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Headings    []string `json:"headings,omitempty"`
	BodyText    string   `json:"body_text,omitempty"`
}

func (HomepageSummary) Kind() FieldKind { return FieldHomepageSummary }

func (p HomepageSummary) Validate() error {
	if p.URL == "" {
		return errors.New("homepage summary requires a url")
	}
	if p.Title == "" && p.BodyText == "" {
		return errors.New("homepage summary requires a title or body text")
	}
	return nil
}

// SitemapEntry is one discovered page URL.
type SitemapEntry struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Sitemap lists the pages discovered for the site.
type Sitemap struct {
	Entries []SitemapEntry `json:"entries"`
}

func (Sitemap) Kind() FieldKind { return FieldSitemap }

func (p Sitemap) Validate() error {
	if len(p.Entries) == 0 {
		return errors.New("sitemap requires at least one entry")
	}
	for i, e := range p.Entries {
		if e.URL == "" {
			return fmt.Errorf("sitemap entry %d has an empty url", i)
		}
	}
	return nil
}

// BrandAssets holds logo, favicon and palette information extracted from
// the homepage.
type BrandAssets struct {
	LogoURL    string   `json:"logo_url,omitempty"`
	FaviconURL string   `json:"favicon_url,omitempty"`
	Colors     []string `json:"colors,omitempty"`
}

func (BrandAssets) Kind() FieldKind { return FieldBrandAssets }

func (p BrandAssets) Validate() error {
	if p.LogoURL == "" && p.FaviconURL == "" && len(p.Colors) == 0 {
		return errors.New("brand assets payload is empty")
	}
	return nil
}

// HeroContent holds the above-the-fold copy of the homepage.
type HeroContent struct {
	Heading    string `json:"heading"`
	Subheading string `json:"subheading,omitempty"`
	CTAText    string `json:"cta_text,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

func (HeroContent) Kind() FieldKind { return FieldHeroContent }

func (p HeroContent) Validate() error {
	if p.Heading == "" {
		return errors.New("hero content requires a heading")
	}
	return nil
}

// ContactInfo holds contact details scraped from the site.
type ContactInfo struct {
	Emails    []string `json:"emails,omitempty"`
	Phones    []string `json:"phones,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
}

func (ContactInfo) Kind() FieldKind { return FieldContactInfo }

func (p ContactInfo) Validate() error {
	if len(p.Emails) == 0 && len(p.Phones) == 0 && len(p.Addresses) == 0 {
		return errors.New("contact info payload is empty")
	}
	return nil
}

// DecodeFieldPayload decodes and validates a raw payload against the
// schema for the given kind. Unknown kinds return ErrUnknownFieldKind.
func DecodeFieldPayload(kind FieldKind, raw json.RawMessage) (FieldPayload, error) {
	var payload FieldPayload

	switch kind {
	case FieldHomepageSummary:
		payload = &HomepageSummary{}
	case FieldSitemap:
		payload = &Sitemap{}
	case FieldBrandAssets:
		payload = &BrandAssets{}
	case FieldHeroContent:
		payload = &HeroContent{}
	case FieldContactInfo:
		payload = &ContactInfo{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFieldKind, kind)
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", kind, err)
	}

	return payload, nil
}

// EncodeFieldPayload validates a payload and marshals it for storage.
func EncodeFieldPayload(payload FieldPayload) (json.RawMessage, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", payload.Kind(), err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", payload.Kind(), err)
	}

	return raw, nil
}
