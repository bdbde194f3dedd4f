package models

import "time"

// ScannedContact is a contact saved by scanning another user's card.
// Records are append-only.
type ScannedContact struct {
	ID           string    `json:"id" bson:"_id" firestore:"-"`
	UserID       string    `json:"user_id" bson:"user_id" firestore:"user_id"`
	Name         string    `json:"name" bson:"name" firestore:"name"`
	Email        string    `json:"email" bson:"email,omitempty" firestore:"email"`
	Phone        string    `json:"phone" bson:"phone,omitempty" firestore:"phone"`
	Organization string    `json:"organization,omitempty" bson:"organization,omitempty" firestore:"organization"`
	Title        string    `json:"title,omitempty" bson:"title,omitempty" firestore:"title"`
	RawVCard     string    `json:"raw_vcard" bson:"raw_vcard" firestore:"rawVCard"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" firestore:"createdAt"`
}

// ListContactsQuery filters the saved-contacts listing.
type ListContactsQuery struct {
	Search string `json:"q"`
}

// ScanResult is returned by the scan endpoints.
type ScanResult struct {
	Format   string          `json:"format"`
	Contact  *ScannedContact `json:"contact,omitempty"`
	Saved    bool            `json:"saved"`
	Export   string          `json:"export,omitempty"`
	RawVCard string          `json:"raw_vcard,omitempty"`
}
