package vcard

import (
	"strings"

	govcard "github.com/emersion/go-vcard"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// Fields are the contact values recovered from a scanned vCard.
type Fields struct {
	DisplayName  string
	Name         models.NameParts
	Organization string
	Title        string
	Phone        string
	Email        string
	Links        map[string]string
	Revision     string
}

// IsVCard reports whether text is shaped like a vCard: it starts with the
// begin marker and contains the end marker.
func IsVCard(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	return strings.HasPrefix(upper, beginMarker) && strings.Contains(upper, endMarker)
}

// Decode parses a scanned payload. Missing properties decode as empty fields;
// only a payload without the begin/end markers is rejected.
func Decode(text string) (*Fields, error) {
	if !IsVCard(text) {
		return nil, apperrors.ErrInvalidFormat
	}

	card, err := govcard.NewDecoder(strings.NewReader(sanitize(text))).Decode()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidFormat, err)
	}

	f := &Fields{
		DisplayName: unprotect(card.Value(govcard.FieldFormattedName)),
		Title:       unprotect(card.Value(govcard.FieldTitle)),
		Phone:       unprotect(card.Value(govcard.FieldTelephone)),
		Email:       unprotect(card.Value(govcard.FieldEmail)),
		Revision:    card.Value(govcard.FieldRevision),
		Links:       map[string]string{},
	}

	if name := card.Name(); name != nil {
		f.Name = models.NameParts{
			Family:     unprotect(name.FamilyName),
			Given:      unprotect(name.GivenName),
			Additional: unprotect(name.AdditionalName),
			Prefix:     unprotect(name.HonorificPrefix),
			Suffix:     unprotect(name.HonorificSuffix),
		}
	}

	if org := card.Value(govcard.FieldOrganization); org != "" {
		f.Organization = unprotect(strings.Split(org, ";")[0])
	}

	for _, u := range card[govcard.FieldURL] {
		platform := platformOf(u.Params)
		if platform == "" || f.Links[platform] != "" {
			continue
		}
		f.Links[platform] = unprotect(u.Value)
	}

	return f, nil
}

// platformOf maps a URL line's TYPE parameter to a profile link key.
func platformOf(params govcard.Params) string {
	for _, raw := range params[govcard.ParamType] {
		for _, t := range strings.Split(raw, ",") {
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "linkedin":
				return models.PlatformLinkedIn
			case "twitter", "x":
				return models.PlatformTwitter
			case "instagram":
				return models.PlatformInstagram
			case "tiktok":
				return models.PlatformTikTok
			}
		}
	}
	return ""
}

// sanitize drops blank lines and lines that are neither PROPERTY:VALUE nor a
// folded continuation, so one garbled line does not fail the whole card.
func sanitize(text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		folded := line[0] == ' ' || line[0] == '\t'
		if !folded && !strings.Contains(line, ":") {
			continue
		}
		b.WriteString(protectSemicolons(line))
		b.WriteString("\r\n")
	}
	return b.String()
}

// escapedSemicolon stands in for "\;" while go-vcard parses the card: its
// decoder splits structured values on every ';' and does not unescape "\;".
const escapedSemicolon = "\uE000"

func protectSemicolons(line string) string {
	if !strings.Contains(line, `\;`) {
		return line
	}
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			if line[i+1] == ';' {
				b.WriteString(escapedSemicolon)
			} else {
				b.WriteByte(c)
				b.WriteByte(line[i+1])
			}
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func unprotect(v string) string {
	return strings.ReplaceAll(v, escapedSemicolon, ";")
}
