package acquire

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pagemill/pagemill/internal/models"
)

// maxSitemapEntries caps how many discovered pages are persisted.
const maxSitemapEntries = 200

// homepagePhase fetches and parses the homepage and persists its summary.
// Its parsed document is the upstream input of the brand, content and
// contact phases.
func (o *Orchestrator) homepagePhase(ctx context.Context, state *runState) (PhaseStatus, string, error) {
	body, err := o.fetcher.Fetch(ctx, state.targetURL)
	if err != nil {
		return PhaseFailed, "", err
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return PhaseFailed, "", err
	}

	summary := ExtractHomepageSummary(doc, state.targetURL)
	if err := summary.Validate(); err != nil {
		return PhaseFailed, "", fmt.Errorf("homepage yielded no usable facts: %w", err)
	}

	if err := o.persist(ctx, state, summary); err != nil {
		return PhaseFailed, "", err
	}

	// Only expose the document to dependent phases once facts persisted.
	state.homepage = doc

	if summary.Description == "" || len(summary.Headings) == 0 {
		return PhasePartial, "description or headings missing", nil
	}
	return PhaseSuccess, "", nil
}

// sitemapPhase discovers the site's pages. It fetches sitemap.xml
// directly, so it runs even when the homepage phase failed; when no
// sitemap is served it falls back to same-host links on the homepage
// document if one is available.
func (o *Orchestrator) sitemapPhase(ctx context.Context, state *runState) (PhaseStatus, string, error) {
	sitemap, fetchErr := o.fetchSitemapXML(ctx, state.targetURL)
	status := PhaseSuccess
	detail := ""

	if fetchErr != nil {
		if state.homepage == nil {
			return PhaseFailed, "", fetchErr
		}
		sitemap = ExtractLinkedPages(state.homepage, state.targetURL)
		status = PhasePartial
		detail = "sitemap.xml unavailable, fell back to homepage links"
	}

	if len(sitemap.Entries) > maxSitemapEntries {
		sitemap.Entries = sitemap.Entries[:maxSitemapEntries]
	}
	if len(sitemap.Entries) == 0 {
		return PhaseFailed, "", fmt.Errorf("no pages discovered for %s", state.targetURL)
	}

	if err := o.persist(ctx, state, sitemap); err != nil {
		return PhaseFailed, "", err
	}

	return status, detail, nil
}

// brandPhase extracts logo, favicon and palette from the homepage.
func (o *Orchestrator) brandPhase(ctx context.Context, state *runState) (PhaseStatus, string, error) {
	assets := ExtractBrandAssets(state.homepage, state.targetURL)
	if err := assets.Validate(); err != nil {
		return PhaseFailed, "", fmt.Errorf("no brand assets found: %w", err)
	}

	if err := o.persist(ctx, state, assets); err != nil {
		return PhaseFailed, "", err
	}

	if assets.LogoURL == "" || assets.FaviconURL == "" {
		return PhasePartial, "logo or favicon missing", nil
	}
	return PhaseSuccess, "", nil
}

// contentPhase extracts the above-the-fold copy from the homepage.
func (o *Orchestrator) contentPhase(ctx context.Context, state *runState) (PhaseStatus, string, error) {
	hero := ExtractHeroContent(state.homepage, state.targetURL)
	if err := hero.Validate(); err != nil {
		return PhaseFailed, "", fmt.Errorf("no hero content found: %w", err)
	}

	if err := o.persist(ctx, state, hero); err != nil {
		return PhaseFailed, "", err
	}

	if hero.Subheading == "" && hero.CTAText == "" {
		return PhasePartial, "heading only", nil
	}
	return PhaseSuccess, "", nil
}

// contactPhase extracts contact details from the homepage.
func (o *Orchestrator) contactPhase(ctx context.Context, state *runState) (PhaseStatus, string, error) {
	contact := ExtractContactInfo(state.homepage)
	if err := contact.Validate(); err != nil {
		return PhaseFailed, "", fmt.Errorf("no contact info found: %w", err)
	}

	if err := o.persist(ctx, state, contact); err != nil {
		return PhaseFailed, "", err
	}

	if len(contact.Emails) == 0 {
		return PhasePartial, "no email addresses", nil
	}
	return PhaseSuccess, "", nil
}

// fetchSitemapXML fetches and parses /sitemap.xml relative to the target.
func (o *Orchestrator) fetchSitemapXML(ctx context.Context, targetURL string) (models.Sitemap, error) {
	base, err := url.Parse(targetURL)
	if err != nil {
		return models.Sitemap{}, fmt.Errorf("parse target url: %w", err)
	}

	sitemapURL := base.Scheme + "://" + base.Host + "/sitemap.xml"

	body, err := o.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return models.Sitemap{}, err
	}
	if !strings.Contains(string(body), "<urlset") {
		return models.Sitemap{}, fmt.Errorf("%s is not a sitemap", sitemapURL)
	}

	return ParseSitemapXML(body)
}
