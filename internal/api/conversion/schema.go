package conversion

// ConversionRequest reports an outcome the widget observed, such as a
// purchase or a booking.
type ConversionRequest struct {
	SessionID string         `json:"sessionId" binding:"required"`
	Type      string         `json:"type" binding:"required"`
	Value     float64        `json:"value"`
	Currency  string         `json:"currency"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// LeadRequest carries contact details from the widget lead form.
type LeadRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
}

// Ack is the minimal payload of both endpoints.
type Ack struct {
	Message string `json:"message"`
}
