package acquire_test

import (
	"strings"
	"testing"

	"github.com/pagemill/pagemill/internal/acquire"
)

// ogFallbackHTML has no <title> but carries og: meta tags.
const ogFallbackHTML = `<!DOCTYPE html>
<html>
<head>
  <meta property="og:title" content="OG Title Fallback">
  <meta property="og:description" content="OG description fallback.">
</head>
<body><p>Some body content here.</p></body>
</html>`

// strippedHTML has script/style/nav content that must not leak into body text.
const strippedHTML = `<!DOCTYPE html>
<html>
<head><title>Stripped</title></head>
<body>
  <nav>Navigation links</nav>
  <script>var tracking = true;</script>
  <style>.hidden { display: none; }</style>
  <main><p>Visible page content.</p></main>
</body>
</html>`

func TestExtractHomepageSummary(t *testing.T) {
	doc, err := acquire.ParseDocument([]byte(homepageHTML))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	summary := acquire.ExtractHomepageSummary(doc, testTargetURL)

	if summary.Title != "Example Co" {
		t.Errorf("Title = %q, want %q", summary.Title, "Example Co")
	}
	if summary.Description != "We compare things." {
		t.Errorf("Description = %q, want meta description", summary.Description)
	}
	if len(summary.Headings) == 0 || summary.Headings[0] != "Compare everything" {
		t.Errorf("Headings = %v, want first heading %q", summary.Headings, "Compare everything")
	}
	if !strings.Contains(summary.BodyText, "comparison engine") {
		t.Errorf("BodyText = %q, want main content", summary.BodyText)
	}
}

func TestExtractHomepageSummaryOGFallback(t *testing.T) {
	doc, err := acquire.ParseDocument([]byte(ogFallbackHTML))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	summary := acquire.ExtractHomepageSummary(doc, testTargetURL)

	if summary.Title != "OG Title Fallback" {
		t.Errorf("Title = %q, want og:title fallback", summary.Title)
	}
	if summary.Description != "OG description fallback." {
		t.Errorf("Description = %q, want og:description fallback", summary.Description)
	}
}

func TestExtractBodyTextStripsNonContent(t *testing.T) {
	doc, err := acquire.ParseDocument([]byte(strippedHTML))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	summary := acquire.ExtractHomepageSummary(doc, testTargetURL)

	if !strings.Contains(summary.BodyText, "Visible page content.") {
		t.Errorf("BodyText = %q, want visible content", summary.BodyText)
	}
	for _, leaked := range []string{"tracking", "display: none", "Navigation"} {
		if strings.Contains(summary.BodyText, leaked) {
			t.Errorf("BodyText leaked non-content %q", leaked)
		}
	}
}

func TestExtractBrandAssetsResolvesRelativeURLs(t *testing.T) {
	doc, err := acquire.ParseDocument([]byte(homepageHTML))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	assets := acquire.ExtractBrandAssets(doc, testTargetURL)

	if assets.LogoURL != "https://example.com/logo.svg" {
		t.Errorf("LogoURL = %q, want resolved absolute url", assets.LogoURL)
	}
	if assets.FaviconURL != "https://example.com/favicon.ico" {
		t.Errorf("FaviconURL = %q, want resolved absolute url", assets.FaviconURL)
	}
	if len(assets.Colors) != 1 || assets.Colors[0] != "#112233" {
		t.Errorf("Colors = %v, want theme-color", assets.Colors)
	}
}

func TestExtractHeroContent(t *testing.T) {
	doc, err := acquire.ParseDocument([]byte(homepageHTML))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	hero := acquire.ExtractHeroContent(doc, testTargetURL)

	if hero.Heading != "Compare everything" {
		t.Errorf("Heading = %q, want h1 text", hero.Heading)
	}
	if hero.Subheading != "The fastest comparison engine." {
		t.Errorf("Subheading = %q, want paragraph after h1", hero.Subheading)
	}
	if hero.CTAText != "Get started" {
		t.Errorf("CTAText = %q, want cta link text", hero.CTAText)
	}
}

func TestExtractContactInfo(t *testing.T) {
	doc, err := acquire.ParseDocument([]byte(homepageHTML))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	contact := acquire.ExtractContactInfo(doc)

	if len(contact.Emails) != 1 || contact.Emails[0] != "hello@example.com" {
		t.Errorf("Emails = %v, want mailto address", contact.Emails)
	}
	if len(contact.Phones) != 1 || contact.Phones[0] != "+15550100" {
		t.Errorf("Phones = %v, want tel number", contact.Phones)
	}
}

func TestParseSitemapXML(t *testing.T) {
	sitemap, err := acquire.ParseSitemapXML([]byte(sitemapXML))
	if err != nil {
		t.Fatalf("ParseSitemapXML() error = %v", err)
	}

	if len(sitemap.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(sitemap.Entries))
	}
	if sitemap.Entries[1].URL != "https://example.com/pricing" {
		t.Errorf("second entry = %q, want pricing url", sitemap.Entries[1].URL)
	}
}

func TestExtractLinkedPagesSameHostOnly(t *testing.T) {
	html := `<html><body>
		<a href="/pricing">Pricing</a>
		<a href="https://example.com/about#team">About</a>
		<a href="https://other.example.net/external">External</a>
		<a href="/pricing">Pricing again</a>
	</body></html>`

	doc, err := acquire.ParseDocument([]byte(html))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	sitemap := acquire.ExtractLinkedPages(doc, testTargetURL)

	if len(sitemap.Entries) != 2 {
		t.Fatalf("got %d entries, want 2 (deduped, same host only): %v", len(sitemap.Entries), sitemap.Entries)
	}
	for _, e := range sitemap.Entries {
		if strings.Contains(e.URL, "other.example.net") {
			t.Errorf("external host leaked into sitemap: %q", e.URL)
		}
		if strings.Contains(e.URL, "#") {
			t.Errorf("fragment not stripped: %q", e.URL)
		}
	}
}
