package acquire

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagemill/pagemill/internal/models"
)

// maxBodyTextRunes caps the stored homepage body text.
const maxBodyTextRunes = 4000

// maxHeadings caps the number of stored headings.
const maxHeadings = 20

// nonContentSelectors lists elements stripped before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer"

// ParseDocument parses fetched HTML into a goquery document.
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ExtractHomepageSummary extracts the homepage facts later phases and the
// section generator build on.
func ExtractHomepageSummary(doc *goquery.Document, pageURL string) models.HomepageSummary {
	summary := models.HomepageSummary{URL: pageURL}

	summary.Title = extractPageTitle(doc)
	summary.Description = extractMetaDescription(doc)

	doc.Find("h1, h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); text != "" {
			summary.Headings = append(summary.Headings, text)
		}
		return len(summary.Headings) < maxHeadings
	})

	summary.BodyText = truncateRunes(extractBodyText(doc), maxBodyTextRunes)

	return summary
}

// ExtractBrandAssets extracts logo, favicon and theme colors. Relative
// asset URLs are resolved against the page URL.
func ExtractBrandAssets(doc *goquery.Document, pageURL string) models.BrandAssets {
	assets := models.BrandAssets{}

	if logo, exists := doc.Find("img[class*='logo'], header img").First().Attr("src"); exists {
		assets.LogoURL = resolveURL(pageURL, logo)
	}
	if favicon, exists := doc.Find("link[rel='icon'], link[rel='shortcut icon']").First().Attr("href"); exists {
		assets.FaviconURL = resolveURL(pageURL, favicon)
	}
	doc.Find("meta[name='theme-color']").Each(func(_ int, s *goquery.Selection) {
		if color, exists := s.Attr("content"); exists && strings.TrimSpace(color) != "" {
			assets.Colors = append(assets.Colors, strings.TrimSpace(color))
		}
	})

	return assets
}

// ExtractHeroContent extracts the above-the-fold copy: the first h1, its
// nearest paragraph, a call-to-action link and a hero image.
func ExtractHeroContent(doc *goquery.Document, pageURL string) models.HeroContent {
	hero := models.HeroContent{}

	heading := doc.Find("h1").First()
	hero.Heading = strings.TrimSpace(heading.Text())

	if sub := heading.NextFiltered("p"); sub.Length() > 0 {
		hero.Subheading = strings.TrimSpace(sub.Text())
	} else if sub := doc.Find("header p, main > p").First(); sub.Length() > 0 {
		hero.Subheading = strings.TrimSpace(sub.Text())
	}

	if cta := doc.Find("a[class*='cta'], a[class*='btn'], button[class*='cta']").First(); cta.Length() > 0 {
		hero.CTAText = strings.TrimSpace(cta.Text())
	}

	if img, exists := doc.Find("main img, section img").First().Attr("src"); exists {
		hero.ImageURL = resolveURL(pageURL, img)
	}

	return hero
}

// ExtractContactInfo extracts contact details from mailto/tel links and
// address elements.
func ExtractContactInfo(doc *goquery.Document) models.ContactInfo {
	contact := models.ContactInfo{}
	seenEmails := map[string]bool{}
	seenPhones := map[string]bool{}

	doc.Find("a[href^='mailto:']").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		email := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(email, '?'); i >= 0 {
			email = email[:i]
		}
		email = strings.TrimSpace(email)
		if email != "" && !seenEmails[email] {
			seenEmails[email] = true
			contact.Emails = append(contact.Emails, email)
		}
	})

	doc.Find("a[href^='tel:']").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		phone := strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
		if phone != "" && !seenPhones[phone] {
			seenPhones[phone] = true
			contact.Phones = append(contact.Phones, phone)
		}
	})

	doc.Find("address").Each(func(_ int, s *goquery.Selection) {
		if addr := strings.Join(strings.Fields(s.Text()), " "); addr != "" {
			contact.Addresses = append(contact.Addresses, addr)
		}
	})

	return contact
}

// sitemapURLSet mirrors the <urlset> element of the sitemap protocol.
type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// ParseSitemapXML parses a sitemap.xml body into sitemap entries.
func ParseSitemapXML(body []byte) (models.Sitemap, error) {
	var urlset sitemapURLSet
	if err := xml.Unmarshal(body, &urlset); err != nil {
		return models.Sitemap{}, fmt.Errorf("parse sitemap xml: %w", err)
	}

	sitemap := models.Sitemap{}
	for _, u := range urlset.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			sitemap.Entries = append(sitemap.Entries, models.SitemapEntry{URL: loc})
		}
	}

	return sitemap, nil
}

// ExtractLinkedPages collects same-host links from a document as a
// sitemap fallback when no sitemap.xml is served.
func ExtractLinkedPages(doc *goquery.Document, pageURL string) models.Sitemap {
	base, err := url.Parse(pageURL)
	if err != nil {
		return models.Sitemap{}
	}

	sitemap := models.Sitemap{}
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, parseErr := url.Parse(strings.TrimSpace(href))
		if parseErr != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host || abs.Scheme != base.Scheme {
			return
		}
		abs.Fragment = ""
		link := abs.String()
		if seen[link] {
			return
		}
		seen[link] = true
		sitemap.Entries = append(sitemap.Entries, models.SitemapEntry{
			URL:   link,
			Title: strings.TrimSpace(s.Text()),
		})
	})

	return sitemap
}

/// extractPageTitle prefers <title>, falling back to og:title.
func extractPageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}
	return ""
}

// extractMetaDescription prefers the description meta tag, falling back to
// og:description.
func extractMetaDescription(doc *goquery.Document) string {
	if desc, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		return strings.TrimSpace(desc)
	}
	if ogDesc, exists := doc.Find("meta[property='og:description']").Attr("content"); exists {
		return strings.TrimSpace(ogDesc)
	}
	return ""
}

// extractBodyText prefers <main> content, falling back to <body> with
// non-content elements stripped.
func extractBodyText(doc *goquery.Document) string {
	main := doc.Find("main").First()
	if main.Length() > 0 {
		main.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(main.Text())
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		body.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(body.Text())
	}

	return ""
}

func resolveURL(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
