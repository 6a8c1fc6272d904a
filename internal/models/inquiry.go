package models

// Inquiry is a question sent to the office through the contact form.
// Anonymous visitors may send one, in which case UserID is empty.
type Inquiry struct {
	// ID is the unique identifier for the inquiry (UUID format).
	ID string

	// UserID is the account that sent the inquiry, empty if anonymous.
	UserID string

	// Username of the sender, filled in when listing. Empty for anonymous
	// inquiries and for senders whose account was removed.
	Username string

	Title   string
	Content string

	// CreatedAt is the Unix timestamp when the inquiry was received.
	CreatedAt int64
}
