// Package vcard converts profiles to vCard 3.0 text and parses scanned
// vCard payloads back into contact fields.
package vcard

import (
	"strings"
	"time"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

const (
	beginMarker = "BEGIN:VCARD"
	endMarker   = "END:VCARD"
	version     = "3.0"

	// MIMEType is the content type of a .vcf file.
	MIMEType = "text/vcard"
	// FileName is the name used for downloads and shares.
	FileName = "contact.vcf"
)

// platformLabels maps profile link keys to the TYPE parameter written on URL lines.
var platformLabels = map[string]string{
	models.PlatformLinkedIn:  "LinkedIn",
	models.PlatformTwitter:   "Twitter",
	models.PlatformInstagram: "Instagram",
	models.PlatformTikTok:    "TikTok",
}

var valueEscaper = strings.NewReplacer("\\", "\\\\", "\n", "\\n", ",", "\\,", ";", "\\;")

// Encode renders p as vCard 3.0 text. Output depends only on p and rev.
func Encode(p *models.Profile, rev time.Time) string {
	lines := []string{
		beginMarker,
		"VERSION:" + version,
		"FN:" + escape(p.DisplayName),
		"N:" + structuredName(p),
	}

	if v := strings.TrimSpace(p.Company); v != "" {
		lines = append(lines, "ORG:"+escape(v))
	}
	if v := strings.TrimSpace(p.Role); v != "" {
		lines = append(lines, "TITLE:"+escape(v))
	}
	if v := strings.TrimSpace(p.Phone); v != "" {
		lines = append(lines, "TEL;TYPE=CELL,VOICE:"+escape(v))
	}
	if v := strings.TrimSpace(p.Email); v != "" {
		lines = append(lines, "EMAIL;TYPE=WORK,INTERNET:"+escape(v))
	}
	for _, platform := range models.Platforms {
		u := NormalizeURL(p.Link(platform))
		if u == "" {
			continue
		}
		lines = append(lines, "URL;TYPE="+platformLabels[platform]+":"+escape(u))
	}

	lines = append(lines, "REV:"+rev.UTC().Format(time.RFC3339), endMarker)
	return strings.Join(lines, "\n")
}

// NormalizeURL prefixes https:// when the value has no http(s) scheme.
func NormalizeURL(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	lower := strings.ToLower(v)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return v
	}
	return "https://" + v
}

// structuredName builds the N value: family;given;additional;prefix;suffix.
// Without explicit parts the display name is split so that the last word is
// the family name.
func structuredName(p *models.Profile) string {
	n := p.Name
	if n.IsZero() {
		words := strings.Fields(p.DisplayName)
		if len(words) > 0 {
			n.Family = words[len(words)-1]
			n.Given = strings.Join(words[:len(words)-1], " ")
		}
	}
	parts := []string{n.Family, n.Given, n.Additional, n.Prefix, n.Suffix}
	for i, part := range parts {
		parts[i] = escape(strings.TrimSpace(part))
	}
	return strings.Join(parts, ";")
}

func escape(v string) string {
	return valueEscaper.Replace(v)
}

// Generator encodes profiles stamped with the current time.
type Generator struct {
	Now func() time.Time
}

// NewGenerator returns a Generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{Now: time.Now}
}

// Generate encodes p with a REV of the generator's current time.
func (g *Generator) Generate(p *models.Profile) string {
	now := time.Now
	if g != nil && g.Now != nil {
		now = g.Now
	}
	return Encode(p, now())
}
