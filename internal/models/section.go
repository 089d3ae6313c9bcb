package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SectionType enumerates the known section kinds of a comparison page.
type SectionType string

const (
	SectionHero            SectionType = "hero"
	SectionSummary         SectionType = "summary"
	SectionComparisonTable SectionType = "comparison_table"
	SectionFeatures        SectionType = "features"
	SectionPricing         SectionType = "pricing"
	SectionProsCons        SectionType = "pros_cons"
	SectionTestimonials    SectionType = "testimonials"
	SectionFAQ             SectionType = "faq"
	SectionCTA             SectionType = "cta"
)

// canonicalSectionOrder is the single source of truth for document order.
// Assembly sorts by this table, never by submission order.
var canonicalSectionOrder = map[SectionType]int{
	SectionHero:            10,
	SectionSummary:         20,
	SectionComparisonTable: 30,
	SectionFeatures:        40,
	SectionPricing:         50,
	SectionProsCons:        60,
	SectionTestimonials:    70,
	SectionFAQ:             80,
	SectionCTA:             90,
}

// OrderKey returns the canonical position of a section type within an
// assembled document. Unknown types return ErrUnknownSectionType.
func (st SectionType) OrderKey() (int, error) {
	key, ok := canonicalSectionOrder[st]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSectionType, st)
	}
	return key, nil
}

// Valid reports whether the section type is known.
func (st SectionType) Valid() bool {
	_, ok := canonicalSectionOrder[st]
	return ok
}

// Section is one named, typed content fragment belonging to a content
// item, unique per (content item, section id). Re-saving the same section
// id replaces the prior value.
type Section struct {
	ContentItemID uuid.UUID       `db:"content_item_id" json:"content_item_id"`
	SectionID     string          `db:"section_id"      json:"section_id"`
	SectionType   SectionType     `db:"section_type"    json:"section_type"`
	OrderKey      int             `db:"order_key"       json:"order_key"`
	HTML          string          `db:"html"            json:"html"`
	Metadata      json.RawMessage `db:"metadata"        json:"metadata,omitempty"`
	UpdatedAt     time.Time       `db:"updated_at"      json:"updated_at"`
}

// SortSections orders sections by the canonical order table, breaking ties
// by section id so output is deterministic.
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].OrderKey != sections[j].OrderKey {
			return sections[i].OrderKey < sections[j].OrderKey
		}
		return sections[i].SectionID < sections[j].SectionID
	})
}
