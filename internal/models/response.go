package models

// APIResponse is a generic API response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
	}
}

// NewKindErrorResponse creates an error response tagged with an error kind
// so clients can render the matching dismissible banner.
func NewKindErrorResponse(kind string, message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
		Kind:    kind,
	}
}

// NewValidationErrorResponse creates a validation error response
func NewValidationErrorResponse(errors map[string]string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   "Validation failed",
		Errors:  errors,
	}
}

// QRCodeResponse is returned when a QR code is requested as a data URI.
type QRCodeResponse struct {
	DataURI string `json:"data_uri"`
	Size    int    `json:"size"`
	Margin  int    `json:"margin"`
	Modules int    `json:"modules"`
	VCard   string `json:"vcard"`
}

// ShareResponse reports which export path completed.
type ShareResponse struct {
	Outcome   string `json:"outcome"`
	Recipient string `json:"recipient,omitempty"`
}
