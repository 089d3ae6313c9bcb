package assemble

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/pagemill/pagemill/internal/models"
)

// envelopeStyles is the shared style block wrapped around every assembled
// document. Kept deliberately small; page-specific styling belongs in the
// sections themselves.
const envelopeStyles = `.pm-page{max-width:960px;margin:0 auto;padding:0 1rem;font-family:system-ui,sans-serif;line-height:1.6}
.pm-page section{margin:2.5rem 0}
.pm-page img{max-width:100%}
.pm-page table{width:100%;border-collapse:collapse}
.pm-page th,.pm-page td{padding:.5rem;border:1px solid #ddd;text-align:left}`

// envelopeScript wires progressive enhancement for assembled pages.
const envelopeScript = `document.querySelectorAll('.pm-page [data-pm-toggle]').forEach(function(el){
el.addEventListener('click',function(){el.classList.toggle('pm-open')})})`

// pageMetadata is the structured-metadata block embedded as JSON-LD.
type pageMetadata struct {
	Context  string   `json:"@context"`
	Type     string   `json:"@type"`
	Name     string   `json:"name"`
	Slug     string   `json:"identifier"`
	Sections []string `json:"hasPart"`
}

// buildDocument concatenates the sections (already in canonical order)
// and wraps the body with the shared presentation envelope: one style and
// script block and one structured-metadata block, computed once per
// assembly call. Output depends only on section type and content, so
// re-running with the same inputs is byte-identical.
func buildDocument(item *models.ContentItem, stored []models.Section) string {
	sectionTypes := make([]string, 0, len(stored))
	for _, sec := range stored {
		sectionTypes = append(sectionTypes, string(sec.SectionType))
	}

	meta := pageMetadata{
		Context:  "https://schema.org",
		Type:     "WebPage",
		Name:     item.Title,
		Slug:     item.Slug,
		Sections: sectionTypes,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		// pageMetadata only holds strings; marshal cannot fail in practice.
		metaJSON = []byte(`{}`)
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(item.Title))
	b.WriteString("</title>\n")
	b.WriteString("<style>")
	b.WriteString(envelopeStyles)
	b.WriteString("</style>\n")
	b.WriteString("<script type=\"application/ld+json\">")
	b.Write(metaJSON)
	b.WriteString("</script>\n")
	b.WriteString("</head>\n<body>\n<div class=\"pm-page\">\n")

	for _, sec := range stored {
		b.WriteString("<section data-section-type=\"")
		b.WriteString(html.EscapeString(string(sec.SectionType)))
		b.WriteString("\" data-section-id=\"")
		b.WriteString(html.EscapeString(sec.SectionID))
		b.WriteString("\">\n")
		b.WriteString(sec.HTML)
		b.WriteString("\n</section>\n")
	}

	b.WriteString("</div>\n<script>")
	b.WriteString(envelopeScript)
	b.WriteString("</script>\n</body>\n</html>\n")

	return b.String()
}
