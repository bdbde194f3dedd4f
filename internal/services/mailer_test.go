package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobless-scripts/Snap-Card/internal/share"
)

func TestSendGridMailer_Share(t *testing.T) {
	var got sendGridMailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key", "cards@snap.test")
	m.Endpoint = srv.URL
	f := share.VCardFile("BEGIN:VCARD\nEND:VCARD")

	require.True(t, m.CanShare(f))
	require.NoError(t, m.Share(context.Background(), f, "bob@example.com"))

	require.Len(t, got.Attachments, 1)
	att := got.Attachments[0]
	assert.Equal(t, "contact.vcf", att.Filename)
	assert.Equal(t, "text/vcard", att.Type)
	raw, err := base64.StdEncoding.DecodeString(att.Content)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCARD\nEND:VCARD", string(raw))
	assert.Equal(t, "bob@example.com", got.Personalizations[0].To[0].Email)
}

func TestSendGridMailer_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key", "cards@snap.test")
	m.Endpoint = srv.URL
	err := m.Share(context.Background(), share.VCardFile("x"), "bob@example.com")
	assert.ErrorContains(t, err, "http 401")

	unconfigured := NewSendGridMailer("", "")
	assert.False(t, unconfigured.CanShare(share.VCardFile("x")))
	assert.False(t, m.CanShare(share.File{Name: "a.png", MIMEType: "image/png"}))
}
