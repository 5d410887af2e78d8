package models

// Notification is an outbound email addressed to one or more users.
type Notification struct {
	Recipients []string
	Subject    string
	HTMLBody   string
}
