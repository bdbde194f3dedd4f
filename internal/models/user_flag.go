package models

import "time"

// UserFlag counts rejected profile photos for a user.
type UserFlag struct {
	UserID       string    `json:"user_id" bson:"user_id"`
	Strikes      int       `json:"strikes" bson:"strikes"`
	LastReason   string    `json:"last_reason,omitempty" bson:"last_reason,omitempty"`
	LastStrikeAt time.Time `json:"last_strike_at" bson:"last_strike_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}
