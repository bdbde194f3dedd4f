package models

// ShareCardRequest asks for the caller's card to be e-mailed. Without a
// recipient the card is returned as a download.
type ShareCardRequest struct {
	Recipient string `json:"recipient" validate:"omitempty,email,max=254"`
}

// ScanTextRequest carries a QR payload that was already decoded on the
// client.
type ScanTextRequest struct {
	Text      string `json:"text" validate:"required,max=4296"`
	Recipient string `json:"recipient" validate:"omitempty,email,max=254"`
}
