package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Tobless-scripts/Snap-Card/internal/share"
	"github.com/Tobless-scripts/Snap-Card/internal/vcard"
)

// SendGridMailer shares vCards by e-mail as a .vcf attachment.
type SendGridMailer struct {
	APIKey     string
	FromEmail  string
	FromName   string
	HTTPClient *http.Client
	Endpoint   string
}

func NewSendGridMailer(apiKey string, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		APIKey:    strings.TrimSpace(apiKey),
		FromEmail: strings.TrimSpace(fromEmail),
		FromName:  "Snap Card",
		Endpoint:  "https://api.sendgrid.com/v3/mail/send",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendGridEmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To      []sendGridEmailAddress `json:"to"`
	Subject string                 `json:"subject"`
}

type sendGridAttachment struct {
	Content     string `json:"content"`
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition"`
}

type sendGridMailSendRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridEmailAddress      `json:"from"`
	Content          []sendGridContent         `json:"content"`
	Attachments      []sendGridAttachment      `json:"attachments,omitempty"`
}

// CanShare is true for vCard files once the mailer has credentials.
func (m *SendGridMailer) CanShare(f share.File) bool {
	return m != nil && m.APIKey != "" && m.FromEmail != "" && f.MIMEType == vcard.MIMEType
}

// Share mails f to recipient.
func (m *SendGridMailer) Share(ctx context.Context, f share.File, recipient string) error {
	if m == nil {
		return fmt.Errorf("sendgrid mailer not configured")
	}
	if m.APIKey == "" {
		return fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if m.FromEmail == "" {
		return fmt.Errorf("missing SHARE_FROM_EMAIL")
	}
	to := strings.TrimSpace(recipient)
	if to == "" {
		return fmt.Errorf("missing recipient")
	}

	reqBody := sendGridMailSendRequest{
		Personalizations: []sendGridPersonalization{{
			To:      []sendGridEmailAddress{{Email: to}},
			Subject: "A contact card for you",
		}},
		From: sendGridEmailAddress{Email: m.FromEmail, Name: m.FromName},
		Content: []sendGridContent{{
			Type:  "text/plain",
			Value: "The attached contact card can be opened by your address book.\n",
		}},
		Attachments: []sendGridAttachment{{
			Content:     base64.StdEncoding.EncodeToString(f.Data),
			Type:        f.MIMEType,
			Filename:    f.Name,
			Disposition: "attachment",
		}},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// SendGrid returns 202 Accepted on success.
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid mail send http %d", resp.StatusCode)
	}
	return nil
}
