package models

// CameraDevice is a capture device reported by the host.
type CameraDevice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
