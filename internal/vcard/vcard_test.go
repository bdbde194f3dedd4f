package vcard_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/vcard"
)

var rev = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func janeDoe() *models.Profile {
	return &models.Profile{
		DisplayName: "Jane Doe",
		Email:       "jane@co.com",
		Phone:       "+1-555-0100",
		Links:       map[string]string{models.PlatformLinkedIn: "linkedin.com/in/jane"},
	}
}

func TestEncode_JaneDoe(t *testing.T) {
	got := vcard.Encode(janeDoe(), rev)

	want := strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:Jane Doe",
		"N:Doe;Jane;;;",
		"TEL;TYPE=CELL,VOICE:+1-555-0100",
		"EMAIL;TYPE=WORK,INTERNET:jane@co.com",
		"URL;TYPE=LinkedIn:https://linkedin.com/in/jane",
		"REV:2024-05-01T12:30:00Z",
		"END:VCARD",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestEncode_PropertyOrder(t *testing.T) {
	p := &models.Profile{
		DisplayName: "Ada Lovelace",
		Name:        models.NameParts{Family: "Lovelace", Given: "Ada", Prefix: "Countess"},
		Company:     "Analytical Engines",
		Role:        "Programmer",
		Phone:       "+44 20 0000",
		Email:       "ada@example.com",
		Links: map[string]string{
			models.PlatformTikTok:    "tiktok.com/@ada",
			models.PlatformInstagram: "http://instagram.com/ada",
			"x":                      "x.com/ada",
			models.PlatformLinkedIn:  "https://linkedin.com/in/ada",
		},
	}

	lines := strings.Split(vcard.Encode(p, rev), "\n")
	var props []string
	for _, l := range lines {
		props = append(props, strings.SplitN(l, ":", 2)[0])
	}

	assert.Equal(t, []string{
		"BEGIN", "VERSION", "FN", "N", "ORG", "TITLE",
		"TEL;TYPE=CELL,VOICE", "EMAIL;TYPE=WORK,INTERNET",
		"URL;TYPE=LinkedIn", "URL;TYPE=Twitter", "URL;TYPE=Instagram", "URL;TYPE=TikTok",
		"REV", "END",
	}, props)
	assert.Contains(t, lines, "N:Lovelace;Ada;;Countess;")
	assert.Contains(t, lines, "URL;TYPE=Twitter:https://x.com/ada")
	assert.Contains(t, lines, "URL;TYPE=Instagram:http://instagram.com/ada")
}

func TestEncode_OmitsEmptyOptionalFields(t *testing.T) {
	p := &models.Profile{
		DisplayName: "Solo",
		Email:       "solo@example.com",
		Company:     "   ",
		Links:       map[string]string{models.PlatformTwitter: ""},
	}

	got := vcard.Encode(p, rev)

	for _, prop := range []string{"ORG", "TITLE", "TEL", "URL"} {
		assert.NotContains(t, got, "\n"+prop, "property %s should be omitted", prop)
	}
	for _, line := range strings.Split(got, "\n") {
		if line == "BEGIN:VCARD" || line == "END:VCARD" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		require.Len(t, parts, 2, line)
		assert.NotEmpty(t, parts[1], "line %q has an empty value", line)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	p := janeDoe()
	p.Links[models.PlatformInstagram] = "instagram.com/jane"

	a := vcard.Encode(p, rev)
	b := vcard.Encode(p, rev)
	assert.Equal(t, a, b)

	stripRev := func(s string) string {
		var out []string
		for _, l := range strings.Split(s, "\n") {
			if !strings.HasPrefix(l, "REV:") {
				out = append(out, l)
			}
		}
		return strings.Join(out, "\n")
	}
	c := vcard.Encode(p, rev.Add(time.Hour))
	assert.NotEqual(t, a, c)
	assert.Equal(t, stripRev(a), stripRev(c))
}

func TestGenerator_UsesClock(t *testing.T) {
	g := &vcard.Generator{Now: func() time.Time { return rev }}
	assert.Contains(t, g.Generate(janeDoe()), "REV:2024-05-01T12:30:00Z")
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"":                          "",
		"  ":                        "",
		"linkedin.com/in/jane":      "https://linkedin.com/in/jane",
		"http://example.com":        "http://example.com",
		"https://example.com":       "https://example.com",
		"HTTPS://example.com/UPPER": "HTTPS://example.com/UPPER",
	}
	for in, want := range cases {
		assert.Equal(t, want, vcard.NormalizeURL(in), in)
	}
}

func TestIsVCard(t *testing.T) {
	assert.True(t, vcard.IsVCard("BEGIN:VCARD\nFN:x\nEND:VCARD"))
	assert.True(t, vcard.IsVCard("  begin:vcard\r\nFN:x\r\nend:vcard\r\n"))
	assert.False(t, vcard.IsVCard("hello"))
	assert.False(t, vcard.IsVCard("FN:x\nEND:VCARD"))
	assert.False(t, vcard.IsVCard("BEGIN:VCARD\nFN:x"))
	assert.False(t, vcard.IsVCard(""))
}

func TestDecode_RoundTrip(t *testing.T) {
	profiles := []*models.Profile{
		janeDoe(),
		{
			DisplayName: "Ada Lovelace",
			Email:       "ada@example.com",
			Company:     "Analytical Engines",
			Role:        "Programmer",
			Links: map[string]string{
				models.PlatformTwitter:   "twitter.com/ada",
				models.PlatformInstagram: "instagram.com/ada",
				models.PlatformTikTok:    "https://tiktok.com/@ada",
			},
		},
		{DisplayName: "Mononym", Email: "m@example.com"},
	}

	for _, p := range profiles {
		t.Run(p.DisplayName, func(t *testing.T) {
			f, err := vcard.Decode(vcard.Encode(p, rev))
			require.NoError(t, err)

			assert.Equal(t, p.DisplayName, f.DisplayName)
			assert.Equal(t, p.Email, f.Email)
			assert.Equal(t, p.Phone, f.Phone)
			assert.Equal(t, p.Company, f.Organization)
			assert.Equal(t, p.Role, f.Title)
			for _, platform := range models.Platforms {
				want := vcard.NormalizeURL(p.Link(platform))
				assert.Equal(t, want, f.Links[platform], platform)
			}
		})
	}
}

func TestDecode_NameParts(t *testing.T) {
	f, err := vcard.Decode(vcard.Encode(janeDoe(), rev))
	require.NoError(t, err)
	assert.Equal(t, "Doe", f.Name.Family)
	assert.Equal(t, "Jane", f.Name.Given)
	assert.Equal(t, "2024-05-01T12:30:00Z", f.Revision)
}

func TestEncode_EscapesSemicolons(t *testing.T) {
	p := &models.Profile{DisplayName: "Ann, O'Neil; Jr", Company: "A;B, Inc"}
	got := vcard.Encode(p, rev)
	assert.Contains(t, got, "\nFN:Ann\\, O'Neil\\; Jr\n")
	assert.Contains(t, got, "\nN:Jr;Ann\\, O'Neil\\;;;;\n")
	assert.Contains(t, got, "\nORG:A\\;B\\, Inc\n")

	f, err := vcard.Decode(got)
	require.NoError(t, err)
	assert.Equal(t, "Ann, O'Neil; Jr", f.DisplayName)
	assert.Equal(t, "A;B, Inc", f.Organization)
	assert.Equal(t, "Jr", f.Name.Family)
	assert.Equal(t, "Ann, O'Neil;", f.Name.Given)
	assert.Empty(t, f.Name.Additional)
}

func TestDecode_EscapedBackslashBeforeSeparator(t *testing.T) {
	card := "BEGIN:VCARD\nVERSION:3.0\nFN:X\nORG:Acme\\\\;Sales\nEND:VCARD"
	f, err := vcard.Decode(card)
	require.NoError(t, err)
	assert.Equal(t, "Acme\\", f.Organization)
}

func TestDecode_MissingPropertiesAreEmpty(t *testing.T) {
	f, err := vcard.Decode("BEGIN:VCARD\nVERSION:3.0\nFN:Only Name\nEND:VCARD")
	require.NoError(t, err)
	assert.Equal(t, "Only Name", f.DisplayName)
	assert.Empty(t, f.Email)
	assert.Empty(t, f.Phone)
	assert.Empty(t, f.Links)
}

func TestDecode_ToleratesGarbledLines(t *testing.T) {
	payload := "BEGIN:VCARD\nVERSION:3.0\nFN:John Doe\nthis line is noise\n\nEMAIL:john@example.com\nTEL:+1234567890\nEND:VCARD"
	f, err := vcard.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", f.DisplayName)
	assert.Equal(t, "john@example.com", f.Email)
	assert.Equal(t, "+1234567890", f.Phone)
}

func TestDecode_RejectsNonVCard(t *testing.T) {
	_, err := vcard.Decode("hello")
	assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)
}
