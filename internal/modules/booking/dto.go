package booking

type CreateBookingRequest struct {
	SessionID      string            `json:"session_id" binding:"required"`
	ExamType       string            `json:"exam_type" binding:"required"`
	ExamDate       string            `json:"exam_date" binding:"required"`
	ContactRef     string            `json:"contact_ref"`
	IdempotencyKey string            `json:"idempotency_key"`
	Attributes     map[string]string `json:"attributes"`

	// Set from the authenticated identity, never from the body.
	StudentID string `json:"-"`
}

type CreateBookingResult struct {
	BookingID        string `json:"booking_id"`
	ExternalID       string `json:"external_id"`
	Status           string `json:"status"`
	CreditsRemaining int    `json:"credits_remaining"`
	Idempotent       bool   `json:"idempotent,omitempty"`
}

type CancelBookingResult struct {
	Status          string `json:"status"`
	CreditsRestored int    `json:"credits_restored"`
}
