package models

import "time"

// Social platform keys accepted in Profile.Links.
const (
	PlatformLinkedIn  = "linkedin"
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
)

// Platforms lists the social platforms in card order.
var Platforms = []string{PlatformLinkedIn, PlatformTwitter, PlatformInstagram, PlatformTikTok}

// NameParts is the structured name carried in the vCard N property.
type NameParts struct {
	Family     string `json:"family,omitempty" bson:"family,omitempty"`
	Given      string `json:"given,omitempty" bson:"given,omitempty"`
	Additional string `json:"additional,omitempty" bson:"additional,omitempty"`
	Prefix     string `json:"prefix,omitempty" bson:"prefix,omitempty"`
	Suffix     string `json:"suffix,omitempty" bson:"suffix,omitempty"`
}

// IsZero reports whether no part is set.
func (n NameParts) IsZero() bool {
	return n == NameParts{}
}

// Profile is the user-editable card data stored per Firebase UID.
type Profile struct {
	UserID      string            `json:"user_id" bson:"user_id" firestore:"user_id"`
	Email       string            `json:"email" bson:"email,omitempty" firestore:"email"`
	DisplayName string            `json:"display_name" bson:"display_name,omitempty" firestore:"display_name"`
	Name        NameParts         `json:"name" bson:"name,omitempty" firestore:"name"`
	Company     string            `json:"company" bson:"company,omitempty" firestore:"company"`
	Role        string            `json:"role" bson:"role,omitempty" firestore:"role"`
	Phone       string            `json:"phone" bson:"phone,omitempty" firestore:"phone"`
	PhotoURL    string            `json:"photo_url" bson:"photo_url,omitempty" firestore:"photo_url"`
	Links       map[string]string `json:"links,omitempty" bson:"links,omitempty" firestore:"links"`
	UpdatedAt   time.Time         `json:"updated_at" bson:"updated_at" firestore:"updated_at"`
}

// Link returns the profile URL for platform, treating "x" as twitter.
func (p *Profile) Link(platform string) string {
	if p.Links == nil {
		return ""
	}
	if v := p.Links[platform]; v != "" {
		return v
	}
	if platform == PlatformTwitter {
		return p.Links["x"]
	}
	return ""
}

// PublicProfile is safe to share with other authenticated users.
type PublicProfile struct {
	UserID      string            `json:"user_id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name"`
	Company     string            `json:"company,omitempty"`
	Role        string            `json:"role,omitempty"`
	PhotoURL    string            `json:"photo_url"`
	Links       map[string]string `json:"links,omitempty"`
}

// UpsertProfileRequest updates only the fields that are present.
type UpsertProfileRequest struct {
	DisplayName *string           `json:"display_name" validate:"omitempty,max=120"`
	Name        *NameParts        `json:"name"`
	Company     *string           `json:"company" validate:"omitempty,max=120"`
	Role        *string           `json:"role" validate:"omitempty,max=120"`
	Phone       *string           `json:"phone" validate:"omitempty,max=40"`
	PhotoURL    *string           `json:"photo_url" validate:"omitempty,max=2048"`
	Links       map[string]string `json:"links" validate:"omitempty,dive,keys,oneof=linkedin twitter x instagram tiktok,endkeys,max=512"`
}
