package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	siteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

	// ScanAction is the reCAPTCHA v3 action the scan page submits.
	ScanAction = "scan"
)

// Recaptcha is the HumanVerifier backed by Google's siteverify endpoint.
// v2 answers carry no score and pass on success alone; v3 answers must
// reach MinScore and, when Action is set, name that action.
type Recaptcha struct {
	Secret   string
	MinScore float64
	Action   string
	Endpoint string
	Client   *http.Client
}

type siteVerifyAnswer struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// NewRecaptcha returns a verifier for anonymous scans. A blank secret
// yields a disabled verifier.
func NewRecaptcha(secret string, minScore float64) *Recaptcha {
	return &Recaptcha{
		Secret:   strings.TrimSpace(secret),
		MinScore: minScore,
		Action:   ScanAction,
		Endpoint: siteVerifyURL,
		Client:   &http.Client{Timeout: 8 * time.Second},
	}
}

func (v *Recaptcha) Enabled() bool {
	return v != nil && v.Secret != ""
}

// Verify reports whether token belongs to a human. A false result carries a
// short reason; an error means siteverify could not be asked.
func (v *Recaptcha) Verify(ctx context.Context, token, remoteIP string) (bool, string, error) {
	if !v.Enabled() {
		return false, "verifier_not_configured", nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false, "missing_token", nil
	}

	ans, err := v.ask(ctx, token, strings.TrimSpace(remoteIP))
	if err != nil {
		return false, "", err
	}

	switch {
	case !ans.Success && len(ans.ErrorCodes) > 0:
		return false, strings.Join(ans.ErrorCodes, ","), nil
	case !ans.Success:
		return false, "verification_failed", nil
	case ans.Score == nil:
		return true, "", nil
	case v.Action != "" && ans.Action != v.Action:
		return false, "action_mismatch", nil
	case *ans.Score < v.MinScore:
		return false, fmt.Sprintf("low_score:%.1f", *ans.Score), nil
	}
	return true, "", nil
}

func (v *Recaptcha) ask(ctx context.Context, token, remoteIP string) (*siteVerifyAnswer, error) {
	form := url.Values{"secret": {v.Secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	endpoint := v.Endpoint
	if endpoint == "" {
		endpoint = siteVerifyURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siteverify: http %d", resp.StatusCode)
	}

	var ans siteVerifyAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return nil, fmt.Errorf("siteverify: %w", err)
	}
	return &ans, nil
}
